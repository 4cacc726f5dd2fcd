package api

import (
	"net/http"

	"github.com/go-openapi/strfmt"
	"github.com/gorilla/mux"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
)

func (a *API) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req messages.CustomerRequest
	if !a.decode(w, r, &req) {
		return
	}

	customer, err := a.customers.CreateCustomer(r.Context(), merchantFromContext(r.Context()), toCustomerRequest("", &req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (a *API) retrieveCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.customers.RetrieveCustomer(r.Context(), merchantFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (a *API) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req messages.CustomerRequest
	if !a.decode(w, r, &req) {
		return
	}

	customer, err := a.customers.UpdateCustomer(r.Context(), merchantFromContext(r.Context()), toCustomerRequest(mux.Vars(r)["id"], &req))
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (a *API) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.customers.DeleteCustomer(r.Context(), merchantFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, customerResponse(customer))
}

func (a *API) createPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req messages.PaymentMethodRequest
	if !a.decode(w, r, &req) {
		return
	}

	pm, err := a.customers.CreatePaymentMethod(r.Context(), merchantFromContext(r.Context()), &service.PaymentMethodRequest{
		CustomerID:        req.CustomerID,
		Token:             req.Token,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		Data:              req.Data,
	})
	if err != nil {
		a.error(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, &messages.PaymentMethodResponse{
		PaymentMethodID:   pm.PaymentMethodID,
		PaymentToken:      pm.Token,
		CustomerID:        pm.CustomerID,
		PaymentMethod:     pm.PaymentMethod,
		PaymentMethodType: pm.PaymentMethodType,
		Created:           strfmt.DateTime(pm.CreatedAt),
	})
}

func toCustomerRequest(id string, req *messages.CustomerRequest) *service.CustomerRequest {
	out := &service.CustomerRequest{
		CustomerID:       req.CustomerID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PhoneCountryCode: req.PhoneCountryCode,
		Description:      req.Description,
		Metadata:         req.Metadata,
	}
	if id != "" {
		out.CustomerID = id
	}
	return out
}
