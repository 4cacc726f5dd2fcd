package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
)

func (a *API) createRefund(w http.ResponseWriter, r *http.Request) {
	var req messages.RefundRequest
	if !a.decode(w, r, &req) {
		return
	}

	refund, err := a.refunds.CreateRefund(r.Context(), merchantFromContext(r.Context()), &operations.RefundRequest{
		RefundID:   req.RefundID,
		PaymentID:  req.PaymentID,
		MerchantID: req.MerchantID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		RefundType: db.RefundType(req.RefundType),
		Metadata:   req.Metadata,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, refundResponse(refund))
}

func (a *API) retrieveRefund(w http.ResponseWriter, r *http.Request) {
	forceSync, _ := strconv.ParseBool(r.URL.Query().Get("force_sync"))

	refund, err := a.refunds.RetrieveRefund(r.Context(), merchantFromContext(r.Context()), &operations.RefundsRetrieveRequest{
		RefundID:  mux.Vars(r)["id"],
		ForceSync: forceSync,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, refundResponse(refund))
}

func (a *API) updateRefund(w http.ResponseWriter, r *http.Request) {
	var req messages.RefundUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}

	refund, err := a.refunds.UpdateRefund(r.Context(), merchantFromContext(r.Context()), &operations.RefundUpdateRequest{
		RefundID: mux.Vars(r)["id"],
		Reason:   req.Reason,
		Metadata: req.Metadata,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, refundResponse(refund))
}

func (a *API) listRefunds(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	constraints := storage.RefundConstraints{PaymentID: query.Get("payment_id")}
	for _, status := range query["status"] {
		constraints.Status = append(constraints.Status, db.RefundStatus(status))
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

	refunds, err := a.refunds.ListRefunds(r.Context(), merchantFromContext(r.Context()), constraints)
	if err != nil {
		a.error(w, err)
		return
	}

	resp := &messages.RefundListResponse{Count: len(refunds), Data: make([]messages.RefundResponse, 0, len(refunds))}
	for i := range refunds {
		resp.Data = append(resp.Data, *refundResponse(&refunds[i]))
	}

	a.writeJSON(w, http.StatusOK, resp)
}
