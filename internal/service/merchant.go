package service

import (
	"context"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

const MERCHANT_SERVICE = "merchant"

const apiKeyPrefix = "snd_"

// MerchantManager resolves merchant accounts and caches them in process.
type MerchantManager interface {
	// Authenticate returns the merchant owning apiKey.
	Authenticate(ctx context.Context, apiKey string) (*db.MerchantAccount, error)

	// GetMerchant returns a merchant by id, using the cache when possible.
	GetMerchant(ctx context.Context, merchantID string) (*db.MerchantAccount, error)

	// CreateMerchant registers a merchant and returns it with its plain API key. The key is not
	// stored and cannot be recovered later.
	CreateMerchant(ctx context.Context, req CreateMerchantRequest) (*db.MerchantAccount, string, error)

	// UpdateStorageScheme switches a merchant between the strict and cached schemes.
	UpdateStorageScheme(ctx context.Context, merchantID string, scheme db.StorageScheme) (*db.MerchantAccount, error)

	// InvalidateCache drops a cached merchant.
	InvalidateCache(merchantID string)
}

type CreateMerchantRequest struct {
	MerchantID       string
	MerchantName     string
	StorageScheme    db.StorageScheme
	DefaultConnector string
	WebhookSecret    string
}

var _ MerchantManager = (*MerchantManagerDefault)(nil)

// MerchantManagerDefault caches merchants by id and by API key hash until the configured TTL
// passes.
type MerchantManagerDefault struct {
	store         storage.MerchantAccountInterface
	defaultScheme db.StorageScheme
	ttl           time.Duration
	logger        *zap.Logger
	byID          sync.Map // map[string]*cachedMerchant
	byKey         sync.Map // map[string]string, api key hash to merchant id
}

type cachedMerchant struct {
	merchant  *db.MerchantAccount
	expiresAt time.Time
}

func NewMerchantManager(ctx *core.Context, store storage.MerchantAccountInterface) *MerchantManagerDefault {
	cfg := ctx.Config().Payments
	return &MerchantManagerDefault{
		store:         store,
		defaultScheme: db.StorageScheme(cfg.DefaultStorageScheme),
		ttl:           cfg.MerchantCacheTTL,
		logger:        ctx.Logger().Named("merchant-manager"),
	}
}

func (m *MerchantManagerDefault) Authenticate(ctx context.Context, apiKey string) (*db.MerchantAccount, error) {
	if apiKey == "" {
		return nil, core.NewValidationError("api key is required")
	}

	hash := db.HashAPIKey(apiKey)
	if id, ok := m.byKey.Load(hash); ok {
		if merchant, ok := m.cached(id.(string)); ok {
			return merchant, nil
		}
	}

	merchant, err := m.store.FindMerchantAccountByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	m.cache(merchant)
	return merchant, nil
}

func (m *MerchantManagerDefault) GetMerchant(ctx context.Context, merchantID string) (*db.MerchantAccount, error) {
	if merchant, ok := m.cached(merchantID); ok {
		return merchant, nil
	}

	merchant, err := m.store.FindMerchantAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	m.cache(merchant)
	return merchant, nil
}

func (m *MerchantManagerDefault) CreateMerchant(ctx context.Context, req CreateMerchantRequest) (*db.MerchantAccount, string, error) {
	if req.MerchantID == "" {
		return nil, "", core.NewValidationError("merchant_id is required")
	}

	scheme := req.StorageScheme
	if scheme == "" {
		scheme = m.defaultScheme
	}
	if !scheme.Valid() {
		return nil, "", core.NewValidationError("unknown storage scheme %q", scheme)
	}

	key, err := gonanoid.New(32)
	if err != nil {
		return nil, "", core.NewInternalError(err, "generate api key")
	}
	apiKey := apiKeyPrefix + key

	now := db.Now()
	merchant, err := m.store.InsertMerchantAccount(ctx, db.MerchantAccount{
		MerchantID:       req.MerchantID,
		MerchantName:     req.MerchantName,
		APIKeyHash:       db.HashAPIKey(apiKey),
		StorageScheme:    scheme,
		DefaultConnector: req.DefaultConnector,
		WebhookSecret:    req.WebhookSecret,
		CreatedAt:        now,
		ModifiedAt:       now,
	})
	if err != nil {
		return nil, "", err
	}

	m.logger.Info("merchant created",
		zap.String("merchant_id", merchant.MerchantID),
		zap.String("storage_scheme", string(merchant.StorageScheme)))

	return merchant, apiKey, nil
}

func (m *MerchantManagerDefault) UpdateStorageScheme(ctx context.Context, merchantID string, scheme db.StorageScheme) (*db.MerchantAccount, error) {
	if !scheme.Valid() {
		return nil, core.NewValidationError("unknown storage scheme %q", scheme)
	}

	merchant, err := m.store.FindMerchantAccountByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateMerchantAccount(ctx, *merchant, db.MerchantAccountStorageSchemeUpdate{StorageScheme: scheme})
	if err != nil {
		return nil, err
	}

	m.InvalidateCache(merchantID)
	m.logger.Info("merchant storage scheme changed",
		zap.String("merchant_id", merchantID),
		zap.String("from", string(merchant.StorageScheme)),
		zap.String("to", string(scheme)))

	return updated, nil
}

func (m *MerchantManagerDefault) InvalidateCache(merchantID string) {
	if cached, ok := m.byID.LoadAndDelete(merchantID); ok {
		m.byKey.Delete(cached.(*cachedMerchant).merchant.APIKeyHash)
	}
}

func (m *MerchantManagerDefault) cached(merchantID string) (*db.MerchantAccount, bool) {
	value, ok := m.byID.Load(merchantID)
	if !ok {
		return nil, false
	}

	entry := value.(*cachedMerchant)
	if time.Now().Before(entry.expiresAt) {
		m.logger.Debug("merchant cache hit", zap.String("merchant_id", merchantID))
		return entry.merchant, true
	}

	m.logger.Debug("merchant cache expired", zap.String("merchant_id", merchantID))
	m.InvalidateCache(merchantID)
	return nil, false
}

func (m *MerchantManagerDefault) cache(merchant *db.MerchantAccount) {
	if m.ttl <= 0 {
		return
	}
	m.byID.Store(merchant.MerchantID, &cachedMerchant{merchant: merchant, expiresAt: time.Now().Add(m.ttl)})
	m.byKey.Store(merchant.APIKeyHash, merchant.MerchantID)
}
