package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
	"go.uber.org/zap"
)

const apiKeyHeader = "api-key"

type merchantContextKey struct{}

type API struct {
	ctx       *core.Context
	logger    *zap.Logger
	merchants service.MerchantManager
	payments  service.PaymentService
	refunds   service.RefundService
	customers service.CustomerService
	webhooks  service.WebhookService
}

type Services struct {
	Merchants service.MerchantManager
	Payments  service.PaymentService
	Refunds   service.RefundService
	Customers service.CustomerService
	Webhooks  service.WebhookService
}

func NewAPI(ctx *core.Context, services Services) *API {
	return &API{
		ctx:       ctx,
		logger:    ctx.Logger().Named("api"),
		merchants: services.Merchants,
		payments:  services.Payments,
		refunds:   services.Refunds,
		customers: services.Customers,
		webhooks:  services.Webhooks,
	}
}

// Handler returns the full router wrapped in the CORS policy.
func (a *API) Handler() http.Handler {
	router := mux.NewRouter()
	a.Configure(router)

	return cors.New(cors.Options{
		AllowedOrigins:   a.ctx.Config().Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", apiKeyHeader},
		AllowCredentials: false,
	}).Handler(router)
}

func (a *API) Configure(router *mux.Router) {
	router.Use(a.timeoutMiddleware)

	router.HandleFunc("/health", a.health).Methods("GET")
	router.Handle("/metrics", a.ctx.Metrics().Handler()).Methods("GET")
	router.HandleFunc("/webhooks/{merchant_id}/{connector}", a.handleWebhook).Methods("POST")

	authed := router.NewRoute().Subrouter()
	authed.Use(a.authMiddleware)

	authed.HandleFunc("/payments", a.createPayment).Methods("POST")
	authed.HandleFunc("/payments", a.listPayments).Methods("GET")
	authed.HandleFunc("/payments/{id}", a.retrievePayment).Methods("GET")
	authed.HandleFunc("/payments/{id}", a.updatePayment).Methods("POST")
	authed.HandleFunc("/payments/{id}/confirm", a.confirmPayment).Methods("POST")
	authed.HandleFunc("/payments/{id}/capture", a.capturePayment).Methods("POST")
	authed.HandleFunc("/payments/{id}/cancel", a.cancelPayment).Methods("POST")

	authed.HandleFunc("/payment_methods", a.createPaymentMethod).Methods("POST")
	authed.HandleFunc("/payment_methods/verify", a.verifyPaymentMethod).Methods("POST")

	authed.HandleFunc("/refunds", a.createRefund).Methods("POST")
	authed.HandleFunc("/refunds", a.listRefunds).Methods("GET")
	authed.HandleFunc("/refunds/{id}", a.retrieveRefund).Methods("GET")
	authed.HandleFunc("/refunds/{id}", a.updateRefund).Methods("POST")

	authed.HandleFunc("/customers", a.createCustomer).Methods("POST")
	authed.HandleFunc("/customers/{id}", a.retrieveCustomer).Methods("GET")
	authed.HandleFunc("/customers/{id}", a.updateCustomer).Methods("POST")
	authed.HandleFunc("/customers/{id}", a.deleteCustomer).Methods("DELETE")
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchant, err := a.merchants.Authenticate(r.Context(), r.Header.Get(apiKeyHeader))
		if err != nil {
			a.writeJSON(w, http.StatusUnauthorized, &messages.ErrorResponse{Error: messages.ErrorBody{
				Type:    "unauthorized",
				Code:    "invalid_api_key",
				Message: "missing or invalid api key",
			}})
			return
		}

		ctx := context.WithValue(r.Context(), merchantContextKey{}, merchant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) timeoutMiddleware(next http.Handler) http.Handler {
	timeout := a.ctx.Config().Server.RequestTimeout
	if timeout <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func merchantFromContext(ctx context.Context) *db.MerchantAccount {
	merchant, _ := ctx.Value(merchantContextKey{}).(*db.MerchantAccount)
	return merchant
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	resp := &messages.HealthResponse{
		Status:         "ok",
		Database:       "ok",
		CacheAvailable: a.ctx.CacheHealth().Available(),
	}

	status := http.StatusOK
	if err := a.pingDatabase(r.Context()); err != nil {
		a.logger.Error("database health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	a.writeJSON(w, status, resp)
}

func (a *API) pingDatabase(ctx context.Context) error {
	sqlDB, err := a.ctx.DB().DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
