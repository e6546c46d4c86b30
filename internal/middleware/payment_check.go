package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const ctxPaymentKey contextKey = "parsed_payment"

// ServiceCatalog is the set of service titles that can be purchased.
// PaymentCheck rejects unknown titles before the lifecycle service runs.
var ServiceCatalog = map[string]bool{
	"Company Incorporation":  true,
	"Trademark Registration": true,
	"Halal Certification":    true,
	"Tax Advisory":           true,
	"Legal Consultation":     true,
	"Business Coaching":      true,
}

// parsedPayment is stored in context so the handler can read the checked
// fields without re-parsing the body.
type parsedPayment struct {
	Price int64  `json:"price" validate:"required,gt=0"`
	Title string `json:"title" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=chat request"`
}

// PaymentFromCtx returns the payment fields parsed by PaymentCheck.
func PaymentFromCtx(ctx context.Context) (price int64, title, orderType string, ok bool) {
	p, ok := ctx.Value(ctxPaymentKey).(*parsedPayment)
	if !ok {
		return 0, "", "", false
	}
	return p.Price, p.Title, p.Type, true
}

// PaymentCheck validates the price, title and order type of a payment
// creation request. Reads the body to peek at the fields, then replaces
// r.Body so the downstream handler can re-read it.
func PaymentCheck() func(http.Handler) http.Handler {
	validate := validator.New()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedPayment
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if err := validate.Struct(&peek); err != nil {
				http.Error(w, fmt.Sprintf(`{"error":"invalid payment: %s"}`, err), http.StatusBadRequest)
				return
			}
			if !ServiceCatalog[peek.Title] {
				http.Error(w, fmt.Sprintf(`{"error":"service %q is not offered"}`, peek.Title), http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), ctxPaymentKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
