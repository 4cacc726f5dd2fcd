package api

import (
	"github.com/go-openapi/strfmt"
	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
)

func toPaymentsRequest(id string, req *messages.PaymentRequest) *operations.PaymentsRequest {
	out := &operations.PaymentsRequest{
		PaymentID:         req.PaymentID,
		MerchantID:        req.MerchantID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		CaptureMethod:     req.CaptureMethod,
		Confirm:           req.Confirm,
		CustomerID:        req.CustomerID,
		Customer:          toCustomerDetails(req.Customer),
		Description:       req.Description,
		ReturnURL:         req.ReturnURL,
		SetupFutureUsage:  req.SetupFutureUsage,
		OffSession:        req.OffSession,
		Connector:         req.Connector,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		PaymentToken:      req.PaymentToken,
		PaymentMethodData: req.PaymentMethodData,
		MandateID:         req.MandateID,
		MandateData:       toMandateData(req.MandateData),
		Metadata:          req.Metadata,
	}
	if id != "" {
		out.PaymentID = id
	}
	return out
}

func toVerifyRequest(req *messages.VerifyRequest) *operations.VerifyRequest {
	return &operations.VerifyRequest{
		PaymentID:         req.PaymentID,
		MerchantID:        req.MerchantID,
		Currency:          req.Currency,
		CustomerID:        req.CustomerID,
		Customer:          toCustomerDetails(req.Customer),
		ReturnURL:         req.ReturnURL,
		Connector:         req.Connector,
		PaymentMethod:     req.PaymentMethod,
		PaymentMethodType: req.PaymentMethodType,
		PaymentToken:      req.PaymentToken,
		PaymentMethodData: req.PaymentMethodData,
		MandateData:       toMandateData(req.MandateData),
		SetupFutureUsage:  req.SetupFutureUsage,
	}
}

func toCustomerDetails(c *messages.CustomerDetails) *operations.CustomerDetails {
	if c == nil {
		return nil
	}
	return &operations.CustomerDetails{
		CustomerID:       c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		PhoneCountryCode: c.PhoneCountryCode,
	}
}

func toMandateData(m *messages.MandateData) *operations.MandateData {
	if m == nil {
		return nil
	}
	return &operations.MandateData{
		CustomerAcceptance: m.CustomerAcceptance,
		MandateType:        m.MandateType,
		Amount:             m.Amount,
		Currency:           m.Currency,
	}
}

func paymentResponse(data *operations.PaymentData) *messages.PaymentResponse {
	resp := intentResponse(data.Intent)
	resp.AttemptStatus = string(data.Attempt.Status)
	resp.ConnectorTransactionID = data.Attempt.ConnectorTransactionID
	resp.PaymentMethod = data.Attempt.PaymentMethod
	resp.PaymentMethodType = data.Attempt.PaymentMethodType
	resp.ErrorCode = data.Attempt.ErrorCode
	resp.ErrorMessage = data.Attempt.ErrorMessage

	for _, refund := range data.Refunds {
		resp.Refunds = append(resp.Refunds, *refundResponse(&refund))
	}

	return resp
}

func intentResponse(intent db.PaymentIntent) *messages.PaymentResponse {
	return &messages.PaymentResponse{
		PaymentID:        intent.PaymentID,
		MerchantID:       intent.MerchantID,
		Status:           string(intent.Status),
		Amount:           intent.Amount,
		AmountCaptured:   intent.AmountCaptured,
		Currency:         intent.Currency,
		CaptureMethod:    intent.CaptureMethod,
		CustomerID:       intent.CustomerID,
		Description:      intent.Description,
		ReturnURL:        intent.ReturnURL,
		ClientSecret:     intent.ClientSecret,
		Connector:        intent.ConnectorID,
		AttemptID:        intent.ActiveAttemptID,
		AttemptCount:     intent.AttemptCount,
		SetupFutureUsage: intent.SetupFutureUsage,
		Metadata:         intent.Metadata,
		Created:          strfmt.DateTime(intent.CreatedAt),
		Modified:         strfmt.DateTime(intent.ModifiedAt),
	}
}

func refundResponse(refund *db.Refund) *messages.RefundResponse {
	return &messages.RefundResponse{
		RefundID:          refund.RefundID,
		PaymentID:         refund.PaymentID,
		Amount:            refund.RefundAmount,
		Currency:          refund.Currency,
		Status:            string(refund.Status),
		RefundType:        string(refund.RefundType),
		Reason:            refund.Reason,
		Connector:         refund.Connector,
		ConnectorRefundID: refund.ConnectorRefundID,
		ErrorCode:         refund.ErrorCode,
		ErrorMessage:      refund.ErrorMessage,
		Metadata:          refund.Metadata,
		Created:           strfmt.DateTime(refund.CreatedAt),
		Modified:          strfmt.DateTime(refund.ModifiedAt),
	}
}

func customerResponse(customer *db.Customer) *messages.CustomerResponse {
	return &messages.CustomerResponse{
		CustomerID:       customer.CustomerID,
		Name:             customer.Name,
		Email:            customer.Email,
		Phone:            customer.Phone,
		PhoneCountryCode: customer.PhoneCountryCode,
		Description:      customer.Description,
		Metadata:         customer.Metadata,
		Created:          strfmt.DateTime(customer.CreatedAt),
	}
}
