package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
)

// TenantRepository resolves request hosts to tenant data stores.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new instance of TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// FindByHost returns the tenant mapped to the given host, considering only
// active domain and database rows.
func (r *TenantRepository) FindByHost(ctx context.Context, host string) (*models.TenantInfo, error) {
	const query = `SELECT td.tenant_id, tdb.database_url FROM tenant_domain td JOIN tenant_database tdb ON td.tenant_id = tdb.tenant_id WHERE td.host = $1 AND td.status = 'active' AND tdb.status = 'active' LIMIT 1`
	var info models.TenantInfo
	if err := r.db.GetContext(ctx, &info, query, host); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tenant by host: %w", err)
	}
	return &info, nil
}
