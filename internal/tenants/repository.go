// Package tenants manages seller accounts and their sealed platform credentials.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckmarket/internal/database"
	"github.com/xelth-com/eckmarket/internal/marketplace"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/quota"
	"github.com/xelth-com/eckmarket/internal/utils"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a tenant id does not exist
var ErrNotFound = errors.New("tenant not found")

// CreateInput describes a new tenant; APISecret is sealed before it is stored
type CreateInput struct {
	Name              string
	SupplierID        string
	APIKey            string
	APISecret         string
	Plan              string
	MonthlyOrderLimit *int64
}

// Repository persists tenants
type Repository struct {
	db  *database.DB
	box *utils.SecretBox
}

// NewRepository creates a tenant repository
func NewRepository(db *database.DB, box *utils.SecretBox) *Repository {
	return &Repository{db: db, box: box}
}

// Create stores a tenant with its API secret encrypted
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.Tenant, error) {
	creds := marketplace.Credentials{SupplierID: in.SupplierID, APIKey: in.APIKey, APISecret: in.APISecret}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = in.SupplierID
	}
	if in.MonthlyOrderLimit != nil && *in.MonthlyOrderLimit < 0 {
		return nil, errors.New("monthly order limit must not be negative")
	}

	sealed, err := r.box.Seal(in.APISecret)
	if err != nil {
		return nil, fmt.Errorf("seal api secret: %w", err)
	}

	plan := in.Plan
	if plan == "" {
		plan = "standard"
	}
	tenant := &models.Tenant{
		Name:              in.Name,
		SupplierID:        strings.TrimSpace(in.SupplierID),
		APIKey:            strings.TrimSpace(in.APIKey),
		APISecretEnc:      sealed,
		Plan:              plan,
		MonthlyOrderLimit: in.MonthlyOrderLimit,
		Active:            true,
	}
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("create tenant %s: %w", in.SupplierID, err)
	}
	return tenant, nil
}

// Get loads a tenant by id
func (r *Repository) Get(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListActive returns all tenants eligible for scheduled sync
func (r *Repository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	var list []models.Tenant
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&list).Error
	return list, err
}

// SetActive enables or disables a tenant
func (r *Repository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMonthlyOrderLimit changes the order ceiling; nil removes it
func (r *Repository) SetMonthlyOrderLimit(ctx context.Context, id uint, limit *int64) error {
	if limit != nil && *limit < 0 {
		return errors.New("monthly order limit must not be negative")
	}
	res := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).
		Update("monthly_order_limit", limit)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Credentials decrypts the credential triple of t
func (r *Repository) Credentials(t *models.Tenant) (marketplace.Credentials, error) {
	secret, err := r.box.Open(t.APISecretEnc)
	if err != nil {
		return marketplace.Credentials{}, err
	}
	return marketplace.Credentials{
		SupplierID: t.SupplierID,
		APIKey:     t.APIKey,
		APISecret:  secret,
	}, nil
}

// Limit resolves plan ceilings for the quota tracker
func (r *Repository) Limit(ctx context.Context, tenantID uint, metric string) (*int64, error) {
	if metric != quota.MetricOrders {
		return nil, nil
	}
	tenant, err := r.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return tenant.MonthlyOrderLimit, nil
}

var (
	_ marketplace.CredentialStore = (*Repository)(nil)
	_ quota.LimitResolver         = (*Repository)(nil)
)
