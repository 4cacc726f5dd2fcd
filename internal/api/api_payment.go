package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
)

func (a *API) createPayment(w http.ResponseWriter, r *http.Request) {
	var req messages.PaymentRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.CreatePayment(r.Context(), merchantFromContext(r.Context()), toPaymentsRequest("", &req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req messages.PaymentRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.UpdatePayment(r.Context(), merchantFromContext(r.Context()), toPaymentsRequest(mux.Vars(r)["id"], &req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req messages.PaymentRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.ConfirmPayment(r.Context(), merchantFromContext(r.Context()), toPaymentsRequest(mux.Vars(r)["id"], &req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) capturePayment(w http.ResponseWriter, r *http.Request) {
	var req messages.CaptureRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.CapturePayment(r.Context(), merchantFromContext(r.Context()), &operations.PaymentsCaptureRequest{
		PaymentID:       mux.Vars(r)["id"],
		AmountToCapture: req.AmountToCapture,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) cancelPayment(w http.ResponseWriter, r *http.Request) {
	var req messages.CancelRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.CancelPayment(r.Context(), merchantFromContext(r.Context()), &operations.PaymentsCancelRequest{
		PaymentID:          mux.Vars(r)["id"],
		CancellationReason: req.CancellationReason,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) retrievePayment(w http.ResponseWriter, r *http.Request) {
	forceSync, _ := strconv.ParseBool(r.URL.Query().Get("force_sync"))

	data, err := a.payments.RetrievePayment(r.Context(), merchantFromContext(r.Context()), &operations.PaymentsRetrieveRequest{
		PaymentID: mux.Vars(r)["id"],
		ForceSync: forceSync,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	constraints := storage.PaymentIntentConstraints{CustomerID: query.Get("customer_id")}
	for _, status := range query["status"] {
		constraints.Status = append(constraints.Status, db.IntentStatus(status))
	}

	var err error
	if constraints.Limit, err = intParam(query.Get("limit")); err != nil {
		a.error(w, err)
		return
	}
	if constraints.Offset, err = intParam(query.Get("offset")); err != nil {
		a.error(w, err)
		return
	}
	if constraints.CreatedAfter, err = timeParam(query.Get("created_after")); err != nil {
		a.error(w, err)
		return
	}
	if constraints.CreatedBefore, err = timeParam(query.Get("created_before")); err != nil {
		a.error(w, err)
		return
	}

	intents, err := a.payments.ListPayments(r.Context(), merchantFromContext(r.Context()), constraints)
	if err != nil {
		a.error(w, err)
		return
	}

	resp := &messages.PaymentListResponse{Count: len(intents), Data: make([]messages.PaymentResponse, 0, len(intents))}
	for _, intent := range intents {
		resp.Data = append(resp.Data, *intentResponse(intent))
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) verifyPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req messages.VerifyRequest
	if !a.decode(w, r, &req) {
		return
	}

	data, err := a.payments.VerifyPaymentMethod(r.Context(), merchantFromContext(r.Context()), toVerifyRequest(&req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, paymentResponse(data))
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, core.NewValidationError("%q is not a valid non-negative integer", value)
	}
	return n, nil
}

func timeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, core.NewValidationError("%q is not an RFC 3339 timestamp", value)
	}
	return t, nil
}
