package marketplace

import (
	"fmt"

	"github.com/xelth-com/eckmarket/internal/models"
)

// CredentialStore resolves the decrypted credential triple of a tenant
type CredentialStore interface {
	Credentials(t *models.Tenant) (Credentials, error)
}

// Factory builds one explicitly owned client per tenant; nothing is cached globally.
type Factory struct {
	cfg   ClientConfig
	store CredentialStore
	opts  []Option
}

// NewFactory creates a client factory
func NewFactory(cfg ClientConfig, store CredentialStore, opts ...Option) *Factory {
	return &Factory{cfg: cfg, store: store, opts: opts}
}

// ClientFor returns a client authenticated as tenant t
func (f *Factory) ClientFor(t *models.Tenant) (*Client, error) {
	creds, err := f.store.Credentials(t)
	if err != nil {
		return nil, fmt.Errorf("tenant %d credentials: %w", t.ID, err)
	}
	return NewClient(f.cfg, creds, f.opts...)
}
