package db

import (
	"context"
)

const tenantColumns = `id::text, name, credential_platforms, created_at`

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.CredentialPlatforms, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

const createTenant = `-- name: CreateTenant :one
INSERT INTO tenants (name, credential_platforms)
VALUES ($1, $2)
RETURNING ` + tenantColumns

func (q *Queries) CreateTenant(ctx context.Context, name string, credentialPlatforms []string) (*Tenant, error) {
	if credentialPlatforms == nil {
		credentialPlatforms = []string{}
	}
	return scanTenant(q.db.QueryRow(ctx, createTenant, name, credentialPlatforms))
}

const getTenant = `-- name: GetTenant :one
SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

func (q *Queries) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return scanTenant(q.db.QueryRow(ctx, getTenant, id))
}

const getTenantByName = `-- name: GetTenantByName :one
SELECT ` + tenantColumns + ` FROM tenants WHERE name = $1`

func (q *Queries) GetTenantByName(ctx context.Context, name string) (*Tenant, error) {
	return scanTenant(q.db.QueryRow(ctx, getTenantByName, name))
}

// Tenants are always scanned in creation order.
const listTenants = `-- name: ListTenants :many
SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id`

func (q *Queries) ListTenants(ctx context.Context) ([]*Tenant, error) {
	rows, err := q.db.Query(ctx, listTenants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const setTenantCredentialPlatforms = `-- name: SetTenantCredentialPlatforms :exec
UPDATE tenants SET credential_platforms = $2 WHERE id = $1`

func (q *Queries) SetTenantCredentialPlatforms(ctx context.Context, id string, platforms []string) error {
	if platforms == nil {
		platforms = []string{}
	}
	_, err := q.db.Exec(ctx, setTenantCredentialPlatforms, id, platforms)
	return err
}
