package pricing

import (
	"errors"

	"github.com/konsultanku/backend/internal/models"
)

// ErrInvalidPrice is returned for a zero or negative price.
var ErrInvalidPrice = errors.New("price must be > 0")

// ErrUnknownOrderType is returned for an order type outside chat/request.
var ErrUnknownOrderType = errors.New("unknown order type")

// Deductions applied to request orders before the split, in subunits.
const (
	flatServiceFee = 5_000_000
	adminFee       = 1_000_000
)

// flatFeeTitles are the services whose price carries the flat service fee
// on top of the admin fee.
var flatFeeTitles = map[string]bool{
	"Company Incorporation":  true,
	"Trademark Registration": true,
	"Halal Certification":    true,
}

// ConsultantShare computes the consultant's earned share of a completed
// payment, in integer subunits.
//
// Request orders: net = price - adminFee, minus the flat service fee when
// the title is on the flat-fee schedule; the consultant keeps half the net.
// Chat orders: the consultant keeps 60% of the price.
//
// All arithmetic floors toward zero (integer division); a negative net
// clamps to a zero share rather than a negative credit.
func ConsultantShare(price int64, title, orderType string) (int64, error) {
	if price <= 0 {
		return 0, ErrInvalidPrice
	}
	switch orderType {
	case models.OrderTypeRequest:
		net := price - adminFee
		if flatFeeTitles[title] {
			net -= flatServiceFee
		}
		if net < 0 {
			return 0, nil
		}
		return net / 2, nil
	case models.OrderTypeChat:
		return price * 3 / 5, nil
	default:
		return 0, ErrUnknownOrderType
	}
}
