package payments

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
	"go.lumeweb.com/portal-plugin-payments/internal/storage/storagetest"
)

func TestNew(t *testing.T) {
	ctx, _ := storagetest.NewContext(t, nil, nil)
	require.NoError(t, Migrate(ctx))

	p, err := New(ctx)
	require.NoError(t, err)

	for _, id := range []string{service.MERCHANT_SERVICE, service.PAYMENT_SERVICE, service.REFUND_SERVICE, service.CUSTOMER_SERVICE, service.WEBHOOK_SERVICE} {
		assert.NotNil(t, p.Service(id), id)
	}
	assert.Nil(t, p.Service("unknown"))
	assert.Contains(t, p.Connectors(), "dummy")

	p.Start()
	t.Cleanup(func() { assert.NoError(t, p.Stop()) })

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_UnknownDefaultConnector(t *testing.T) {
	cfg := storagetest.Config()
	cfg.Connector.Default = "missing"
	ctx, _ := storagetest.NewContext(t, cfg, nil)

	_, err := New(ctx)
	assert.Error(t, err)
}
