package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.uber.org/zap"
)

var _ Connector = (*HTTPConnector)(nil)

const idempotencyKeyHeader = "Idempotency-Key"

var attemptStatuses = map[string]db.AttemptStatus{
	"succeeded":                db.AttemptStatusCharged,
	"requires_capture":         db.AttemptStatusAuthorized,
	"processing":               db.AttemptStatusPending,
	"requires_customer_action": db.AttemptStatusPending,
	"cancelled":                db.AttemptStatusVoided,
	"failed":                   db.AttemptStatusFailure,
	"authentication_failed":    db.AttemptStatusAuthenticationFailed,
}

var refundStatuses = map[string]db.RefundStatus{
	"succeeded": db.RefundStatusSucceeded,
	"failed":    db.RefundStatusFailed,
	"pending":   db.RefundStatusPending,
	"review":    db.RefundStatusReview,
}

// HTTPConnector talks JSON to a processor endpoint.
type HTTPConnector struct {
	name       string
	config     config.ConnectorEndpoint
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPConnector(name string, cfg config.ConnectorEndpoint, logger *zap.Logger) *HTTPConnector {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	return &HTTPConnector{
		name:   name,
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.With(zap.String("connector", name)),
	}
}

func (c *HTTPConnector) Name() string {
	return c.name
}

// idempotencyKey names a mutating call so the processor can deduplicate retries. Reads carry none.
func idempotencyKey(action Action, req *Request) string {
	switch action {
	case ActionAuthorize:
		return req.AttemptID
	case ActionCapture, ActionVoid:
		if req.AttemptID == "" {
			return ""
		}
		return req.AttemptID + "_" + string(action)
	case ActionRefund:
		return req.RefundID
	default:
		return ""
	}
}

func (c *HTTPConnector) Submit(ctx context.Context, action Action, req *Request) (*Outcome, error) {
	key := idempotencyKey(action, req)

	switch action {
	case ActionAuthorize:
		return c.payment(ctx, action, http.MethodPost, "/payments", key, &PaymentRequest{
			MerchantID:        req.MerchantID,
			PaymentID:         req.PaymentID,
			AttemptID:         req.AttemptID,
			Amount:            req.Amount,
			Currency:          req.Currency,
			CaptureMethod:     req.CaptureMethod,
			CustomerID:        req.CustomerID,
			PaymentMethod:     req.PaymentMethod,
			PaymentMethodType: req.PaymentMethodType,
			PaymentToken:      req.PaymentToken,
			PaymentMethodData: req.PaymentMethodData,
			OffSession:        req.OffSession,
		})
	case ActionCapture:
		return c.payment(ctx, action, http.MethodPost, "/payments/"+url.PathEscape(req.ConnectorTransactionID)+"/capture", key,
			&CaptureRequest{AmountToCapture: req.Amount})
	case ActionVoid:
		return c.payment(ctx, action, http.MethodPost, "/payments/"+url.PathEscape(req.ConnectorTransactionID)+"/cancel", key,
			&CancelRequest{CancellationReason: req.CancellationReason})
	case ActionSync:
		return c.payment(ctx, action, http.MethodGet, "/payments/"+url.PathEscape(req.ConnectorTransactionID), key, nil)
	case ActionRefund:
		return c.refund(ctx, action, http.MethodPost, "/refunds", key, &RefundRequest{
			MerchantID:             req.MerchantID,
			RefundID:               req.RefundID,
			PaymentID:              req.PaymentID,
			ConnectorTransactionID: req.ConnectorTransactionID,
			Amount:                 req.Amount,
			Currency:               req.Currency,
			Reason:                 req.Reason,
		})
	case ActionRefundSync:
		return c.refund(ctx, action, http.MethodGet, "/refunds/"+url.PathEscape(req.ConnectorRefundID), key, nil)
	default:
		return nil, core.NewValidationError("connector %s does not support action %s", c.name, action)
	}
}

func (c *HTTPConnector) payment(ctx context.Context, action Action, method, endpoint, key string, payload any) (*Outcome, error) {
	var resp PaymentResponse
	if err := c.call(ctx, method, endpoint, key, payload, &resp); err != nil {
		c.logger.Error("connector call failed", zap.String("action", string(action)), zap.Error(err))
		return nil, core.NewDownstreamError(err, "%s %s", c.name, action)
	}

	status, ok := attemptStatuses[resp.Status]
	if !ok {
		return nil, core.NewDownstreamError(nil, "%s %s returned unknown status %q", c.name, action, resp.Status)
	}

	c.logger.Debug("connector payment response",
		zap.String("action", string(action)),
		zap.String("status", resp.Status),
		zap.String("transaction_id", resp.TransactionID))

	return &Outcome{
		AttemptStatus:          status,
		ConnectorTransactionID: resp.TransactionID,
		AmountCaptured:         resp.AmountCaptured,
		ErrorCode:              resp.ErrorCode,
		ErrorMessage:           resp.ErrorMessage,
		AuthenticationData:     resp.AuthenticationData,
	}, nil
}

func (c *HTTPConnector) refund(ctx context.Context, action Action, method, endpoint, key string, payload any) (*Outcome, error) {
	var resp RefundResponse
	if err := c.call(ctx, method, endpoint, key, payload, &resp); err != nil {
		c.logger.Error("connector call failed", zap.String("action", string(action)), zap.Error(err))
		return nil, core.NewDownstreamError(err, "%s %s", c.name, action)
	}

	status, ok := refundStatuses[resp.Status]
	if !ok {
		return nil, core.NewDownstreamError(nil, "%s %s returned unknown status %q", c.name, action, resp.Status)
	}

	return &Outcome{
		RefundStatus:      status,
		ConnectorRefundID: resp.RefundID,
		ErrorCode:         resp.ErrorCode,
		ErrorMessage:      resp.ErrorMessage,
	}, nil
}

func (c *HTTPConnector) call(ctx context.Context, method, endpoint, key string, payload any, out any) error {
	resp, err := c.makeRequest(ctx, method, endpoint, key, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

// makeRequest performs the HTTP request with headers, logging and retries. Server errors and
// transport failures are retried with exponential backoff; client errors are not. Every try of a
// mutating call carries the same Idempotency-Key.
func (c *HTTPConnector) makeRequest(ctx context.Context, method, endpoint, key string, payload any) (*http.Response, error) {
	target := fmt.Sprintf("%s%s", c.config.BaseURL, endpoint)
	var payloadBytes []byte
	var err error

	if payload != nil {
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload failed: %w", err)
		}
	}

	c.logger.Debug("preparing connector request",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("idempotency_key", key),
	)

	resp, err := retry.DoWithData(
		func() (*http.Response, error) {
			var body io.Reader
			if payloadBytes != nil {
				body = bytes.NewReader(payloadBytes)
			}

			req, err := http.NewRequestWithContext(ctx, method, target, body)
			if err != nil {
				return nil, retry.Unrecoverable(fmt.Errorf("create request failed: %w", err))
			}

			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			req.Header.Set("api-key", c.config.APIKey)
			if key != "" {
				req.Header.Set(idempotencyKeyHeader, key)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}

			if resp.StatusCode >= 400 {
				respBody, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return nil, &APIError{
					StatusCode: resp.StatusCode,
					Message:    string(respBody),
				}
			}

			return resp, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.config.MaxRetries)+1),
		retry.Delay(c.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("retrying request",
				zap.String("url", target),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// retryable reports whether a failed try may be repeated: transport failures and 5xx answers.
func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}
