package db

import (
	"context"
)

const getSealedCredential = `-- name: GetSealedCredential :one
SELECT sealed FROM platform_credentials WHERE tenant_id = $1 AND platform = $2`

func (q *Queries) GetSealedCredential(ctx context.Context, tenantID, platform string) ([]byte, error) {
	var sealed []byte
	err := q.db.QueryRow(ctx, getSealedCredential, tenantID, platform).Scan(&sealed)
	return sealed, err
}

const putSealedCredential = `-- name: PutSealedCredential :exec
INSERT INTO platform_credentials (tenant_id, platform, sealed, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tenant_id, platform) DO UPDATE
SET sealed = EXCLUDED.sealed, updated_at = now()`

func (q *Queries) PutSealedCredential(ctx context.Context, tenantID, platform string, sealed []byte) error {
	_, err := q.db.Exec(ctx, putSealedCredential, tenantID, platform, sealed)
	return err
}
