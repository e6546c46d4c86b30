package router

import (
	"net/http"

	"github.com/konsultanku/backend/internal/auth"
	"github.com/konsultanku/backend/internal/middleware"
	"github.com/konsultanku/backend/internal/models"
	"github.com/konsultanku/backend/internal/notify"
	"github.com/konsultanku/backend/internal/orders"
	"github.com/konsultanku/backend/internal/wallet"
)

// New returns an http.Handler that serves the API under /api/v1.
func New(authHandler *auth.Handler, orderHandler *orders.Handler, walletHandler *wallet.Handler, notifyHandler *notify.Handler, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := middleware.BearerAuth(validator)
	clientOnly := middleware.RequireRole(models.RoleClient)
	consultantOnly := middleware.RequireRole(models.RoleConsultant)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleConsultant)
	paymentCheck := middleware.PaymentCheck()

	handle := func(pattern string, h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) {
		var handler http.Handler = h
		for i := len(wrap) - 1; i >= 0; i-- {
			handler = wrap[i](handler)
		}
		mux.Handle(pattern, handler)
	}

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	handle("POST "+base+"/payments", orderHandler.CreatePayment, authed, clientOnly, paymentCheck)
	handle("POST "+base+"/payments/{orderID}/confirm", orderHandler.ConfirmPayment, authed, adminOnly)

	handle("GET "+base+"/orders", orderHandler.ListOrders, authed)
	handle("GET "+base+"/orders/{orderID}", orderHandler.GetOrder, authed)
	handle("GET "+base+"/orders/{orderID}/artifacts", orderHandler.Artifacts, authed)
	handle("GET "+base+"/assignments", orderHandler.ListAssignments, authed, consultantOnly)
	handle("POST "+base+"/orders/{orderID}/assign", orderHandler.Assign, authed, staff)
	handle("POST "+base+"/orders/{orderID}/deliver", orderHandler.Deliver, authed, consultantOnly)
	handle("POST "+base+"/orders/{orderID}/complete", orderHandler.Complete, authed, staff)

	handle("GET "+base+"/notifications", notifyHandler.List, authed)

	handle("GET "+base+"/wallet", walletHandler.Balance, authed, consultantOnly)
	handle("POST "+base+"/wallet/withdrawals", walletHandler.InitiateWithdrawal, authed, consultantOnly)
	handle("POST "+base+"/withdrawals/{entryID}/settle", walletHandler.SettleWithdrawal, authed, adminOnly)
	handle("POST "+base+"/withdrawals/{entryID}/fail", walletHandler.FailWithdrawal, authed, adminOnly)

	return mux
}
