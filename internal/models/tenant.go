package models

// TenantInfo maps a resolved tenant to its dedicated data store.
type TenantInfo struct {
	TenantID    string `db:"tenant_id" json:"tenant_id"`
	DatabaseURL string `db:"database_url" json:"-"`
}
