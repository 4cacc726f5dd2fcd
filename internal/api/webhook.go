package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.uber.org/zap"
)

const webhookSignatureHeader = "x-webhook-signature"

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	signature := r.Header.Get(webhookSignatureHeader)
	if signature == "" {
		a.logger.Warn("missing webhook signature", zap.String("merchant_id", vars["merchant_id"]))
		a.error(w, core.NewValidationError("missing %s header", webhookSignatureHeader))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.error(w, core.NewValidationError("failed to read webhook body: %v", err))
		return
	}

	if err := a.webhooks.HandleWebhook(r.Context(), vars["merchant_id"], vars["connector"], payload, signature); err != nil {
		a.error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
