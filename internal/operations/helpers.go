package operations

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
	"go.lumeweb.com/portal-plugin-payments/internal/client/connector"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
)

const (
	PrefixPayment = "pay"
	PrefixVerify  = "val"
	PrefixRefund  = "ref"

	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	businessIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	currencyPattern   = regexp.MustCompile(`^[A-Z]{3}$`)
)

// GenerateID returns {prefix}_{random} with a random part of length characters.
func GenerateID(prefix string, length int) (string, error) {
	random, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		return "", core.NewInternalError(err, "generate id")
	}
	return prefix + "_" + random, nil
}

func generateClientSecret(paymentID string, length int) (string, error) {
	random, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		return "", core.NewInternalError(err, "generate client secret")
	}
	return paymentID + "_secret_" + random, nil
}

// businessID returns the caller's id after checking its shape, or a generated one.
func businessID(given, prefix string, length int, field string) (string, error) {
	if given == "" {
		return GenerateID(prefix, length)
	}
	if !businessIDPattern.MatchString(given) {
		return "", core.NewValidationError("%s must be 1-64 characters of letters, digits, '_' or '-'", field)
	}
	return given, nil
}

func requireBusinessID(given, field string) error {
	if given == "" {
		return core.NewValidationError("%s is required", field)
	}
	if !businessIDPattern.MatchString(given) {
		return core.NewValidationError("%s is malformed", field)
	}
	return nil
}

func validateMerchantID(requested string, merchant *db.MerchantAccount) error {
	if requested != "" && requested != merchant.MerchantID {
		return core.NewValidationError("merchant_id %q does not match the authenticated merchant", requested)
	}
	return nil
}

func normalizeCurrency(currency string, required bool) (string, error) {
	if currency == "" {
		if required {
			return "", core.NewValidationError("currency is required")
		}
		return "", nil
	}
	currency = strings.ToUpper(currency)
	if !currencyPattern.MatchString(currency) {
		return "", core.NewValidationError("currency %q is not an ISO-4217 code", currency)
	}
	return currency, nil
}

func validateCaptureMethod(method string) error {
	if method == "" || lo.Contains([]string{connector.CaptureMethodAutomatic, connector.CaptureMethodManual}, method) {
		return nil
	}
	return core.NewValidationError("capture_method must be automatic or manual")
}

// validateMandate checks the mandate fields of a request and reports which kind of mandate
// transaction it is.
func validateMandate(mandateID string, data *MandateData, customerID, setupFutureUsage string) (MandateTxnType, error) {
	switch {
	case mandateID != "" && data != nil:
		return MandateTxnNone, core.NewValidationError("mandate_id and mandate_data are mutually exclusive")
	case data != nil:
		if customerID == "" {
			return MandateTxnNone, core.NewValidationError("customer_id is required when mandate_data is present")
		}
		if setupFutureUsage != SetupFutureUsageOffSession {
			return MandateTxnNone, core.NewValidationError("setup_future_usage must be off_session when mandate_data is present")
		}
		return MandateTxnNew, nil
	case mandateID != "":
		if customerID == "" {
			return MandateTxnNone, core.NewValidationError("customer_id is required when mandate_id is present")
		}
		return MandateTxnRecurring, nil
	default:
		return MandateTxnNone, nil
	}
}

func customerDetails(customerID string, details *CustomerDetails) *CustomerDetails {
	if customerID == "" && (details == nil || details.CustomerID == "") {
		return nil
	}
	out := CustomerDetails{}
	if details != nil {
		out = *details
	}
	if customerID != "" {
		out.CustomerID = customerID
	}
	return &out
}

// GetOrCreateCustomer returns the merchant's customer, inserting it on first use. Two runs racing
// on the same new customer id end with one row: the loser re-reads the winner's row.
func GetOrCreateCustomer(ctx context.Context, store storage.CustomerInterface, merchantID string, details *CustomerDetails) (*db.Customer, error) {
	if details == nil || details.CustomerID == "" {
		return nil, nil
	}

	customer, err := store.FindCustomerByCustomerIDMerchantID(ctx, details.CustomerID, merchantID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	now := db.Now()
	customer, err = store.InsertCustomer(ctx, db.Customer{
		MerchantID:       merchantID,
		CustomerID:       details.CustomerID,
		Name:             details.Name,
		Email:            details.Email,
		Phone:            details.Phone,
		PhoneCountryCode: details.PhoneCountryCode,
		Metadata:         db.Metadata(nil),
		CreatedAt:        now,
		ModifiedAt:       now,
	})
	if errors.Is(err, core.ErrDuplicateRecord) {
		return store.FindCustomerByCustomerIDMerchantID(ctx, details.CustomerID, merchantID)
	}
	return customer, err
}

// MakePaymentMethodData resolves a payment method from a stored token or echoes inline data.
func MakePaymentMethodData(ctx context.Context, store storage.PaymentMethodInterface, merchantID string, requested *PaymentMethodData) (*PaymentMethodData, error) {
	if requested == nil {
		return nil, nil
	}

	if requested.Token != "" {
		pm, err := store.FindPaymentMethodByToken(ctx, merchantID, requested.Token)
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewValidationError("payment_token is invalid or expired")
		}
		if err != nil {
			return nil, err
		}
		return &PaymentMethodData{
			PaymentMethod:     pm.PaymentMethod,
			PaymentMethodType: pm.PaymentMethodType,
			Token:             pm.Token,
			Data:              pm.Data,
		}, nil
	}

	if len(requested.Data) == 0 {
		return nil, nil
	}
	if requested.PaymentMethod == "" {
		return nil, core.NewValidationError("payment_method is required with payment_method_data")
	}

	return requested, nil
}

func requestedPaymentMethod(method, methodType, token string, data map[string]any) *PaymentMethodData {
	if token == "" && len(data) == 0 {
		return nil
	}
	return &PaymentMethodData{PaymentMethod: method, PaymentMethodType: methodType, Token: token, Data: data}
}

func transitionError(err error) error {
	return &core.Error{Kind: core.ErrValidation, Message: "status transition rejected", Err: err}
}

func requireIntentStatus(intent db.PaymentIntent, action string, allowed ...db.IntentStatus) error {
	if lo.Contains(allowed, intent.Status) {
		return nil
	}
	return core.NewValidationError("cannot %s payment %s in status %s", action, intent.PaymentID, intent.Status)
}

func updateIntent(ctx context.Context, state *State, data *PaymentData, update db.PaymentIntentUpdate) error {
	if err := db.CheckIntentTransition(data.Intent.Status, db.NextIntentStatus(data.Intent, update)); err != nil {
		return transitionError(err)
	}
	intent, err := state.Store.UpdatePaymentIntent(ctx, data.Intent, update, data.StorageScheme)
	if err != nil {
		return fmt.Errorf("update payment intent: %w", err)
	}
	data.Intent = *intent
	return nil
}

func updateAttempt(ctx context.Context, state *State, data *PaymentData, update db.PaymentAttemptUpdate) error {
	if err := db.CheckAttemptTransition(data.Attempt.Status, db.NextAttemptStatus(data.Attempt, update)); err != nil {
		return transitionError(err)
	}
	attempt, err := state.Store.UpdatePaymentAttempt(ctx, data.Attempt, update, data.StorageScheme)
	if err != nil {
		return fmt.Errorf("update payment attempt: %w", err)
	}
	data.Attempt = *attempt
	return nil
}

func updateRefund(ctx context.Context, state *State, data *RefundData, update db.RefundUpdate) error {
	if err := db.CheckRefundTransition(data.Refund.Status, db.NextRefundStatus(data.Refund, update)); err != nil {
		return transitionError(err)
	}
	refund, err := state.Store.UpdateRefund(ctx, data.Refund, update, data.StorageScheme)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	data.Refund = *refund
	return nil
}

// insertTrackers inserts intent, attempt and connector response in that order. A failure after the
// intent was committed is reported as a PartialWriteError.
func insertTrackers(ctx context.Context, state *State, scheme db.StorageScheme, intent db.PaymentIntent, attempt db.PaymentAttempt, response db.ConnectorResponse) (*PaymentData, error) {
	pi, err := state.Store.InsertPaymentIntent(ctx, intent, scheme)
	if err != nil {
		return nil, err
	}

	pa, err := state.Store.InsertPaymentAttempt(ctx, attempt, scheme)
	if err != nil {
		return nil, &PartialWriteError{Committed: []string{db.TablePaymentIntent}, Failed: db.TablePaymentAttempt, Err: err}
	}

	cr, err := state.Store.InsertConnectorResponse(ctx, response, scheme)
	if err != nil {
		return nil, &PartialWriteError{
			Committed: []string{db.TablePaymentIntent, db.TablePaymentAttempt},
			Failed:    db.TableConnectorResponse,
			Err:       err,
		}
	}

	return &PaymentData{
		Intent:            *pi,
		Attempt:           *pa,
		ConnectorResponse: cr,
		StorageScheme:     scheme,
	}, nil
}

func attemptID(paymentID string, n int) string {
	return fmt.Sprintf("%s_%d", paymentID, n)
}

// loadPayment reads an intent and its active attempt.
func loadPayment(ctx context.Context, state *State, scheme db.StorageScheme, paymentID, merchantID string) (*PaymentData, error) {
	intent, err := state.Store.FindPaymentIntentByPaymentIDMerchantID(ctx, paymentID, merchantID, scheme)
	if err != nil {
		return nil, err
	}

	attempt, err := state.Store.FindPaymentAttemptByAttemptIDMerchantID(ctx, intent.ActiveAttemptID, merchantID, scheme)
	if err != nil {
		return nil, err
	}

	data := &PaymentData{Intent: *intent, Attempt: *attempt, StorageScheme: scheme, Connector: attempt.Connector}

	response, err := state.Store.FindConnectorResponseByAttemptIDMerchantID(ctx, attempt.AttemptID, merchantID, scheme)
	switch {
	case err == nil:
		data.ConnectorResponse = response
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	return data, nil
}

// paymentDomain is the stage three behaviour shared by payment flows.
type paymentDomain struct{}

func (paymentDomain) Domain(ctx context.Context, state *State, data *PaymentData, details *CustomerDetails, merchant *db.MerchantAccount) (*db.Customer, error) {
	customer, err := GetOrCreateCustomer(ctx, state.Store, merchant.MerchantID, details)
	if err != nil {
		return nil, err
	}
	data.Customer = customer

	requested := data.requestedPaymentMethod
	if requested == nil && data.Attempt.PaymentToken != "" {
		requested = &PaymentMethodData{Token: data.Attempt.PaymentToken}
	}

	pm, err := MakePaymentMethodData(ctx, state.Store, merchant.MerchantID, requested)
	if err != nil {
		return nil, err
	}
	data.PaymentMethod = pm

	if data.requirePaymentMethod && pm == nil {
		return nil, core.NewValidationError("a payment method is required to confirm payment %s", data.Intent.PaymentID)
	}

	return customer, nil
}

// refundDomain has nothing to enrich.
type refundDomain struct{}

func (refundDomain) Domain(context.Context, *State, *RefundData, *CustomerDetails, *db.MerchantAccount) (*db.Customer, error) {
	return nil, nil
}

const defaultIDLength = 20

func idLength(n int) int {
	if n <= 0 {
		return defaultIDLength
	}
	return n
}

// trackerDomain is the stage three behaviour of flows that only act on existing trackers.
type trackerDomain struct{}

func (trackerDomain) Domain(context.Context, *State, *PaymentData, *CustomerDetails, *db.MerchantAccount) (*db.Customer, error) {
	return nil, nil
}
