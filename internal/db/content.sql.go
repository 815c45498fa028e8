package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

const channelColumns = `id::text, tenant_id::text, platform, handle, external_id, title, url, avatar_url,
	description, follower_count, is_active, created_at, updated_at`

func scanChannel(row rowScanner) (*Channel, error) {
	var c Channel
	err := row.Scan(&c.ID, &c.TenantID, &c.Platform, &c.Handle, &c.ExternalID, &c.Title, &c.URL,
		&c.AvatarURL, &c.Description, &c.FollowerCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const upsertChannel = `-- name: UpsertChannel :one
INSERT INTO channels (tenant_id, platform, handle, external_id, title, url, avatar_url, description, follower_count, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (tenant_id, platform, handle) DO UPDATE
SET external_id = CASE WHEN EXCLUDED.external_id <> '' THEN EXCLUDED.external_id ELSE channels.external_id END,
    title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE channels.title END,
    url = CASE WHEN EXCLUDED.url <> '' THEN EXCLUDED.url ELSE channels.url END,
    avatar_url = CASE WHEN EXCLUDED.avatar_url <> '' THEN EXCLUDED.avatar_url ELSE channels.avatar_url END,
    description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE channels.description END,
    follower_count = COALESCE(EXCLUDED.follower_count, channels.follower_count),
    is_active = channels.is_active OR EXCLUDED.is_active,
    updated_at = now()
RETURNING ` + channelColumns

// UpsertChannel inserts or refreshes a channel profile. Empty profile fields
// never overwrite known values and an active channel stays active.
func (q *Queries) UpsertChannel(ctx context.Context, c Channel) (*Channel, error) {
	return scanChannel(q.db.QueryRow(ctx, upsertChannel,
		c.TenantID, c.Platform, c.Handle, c.ExternalID, c.Title, c.URL, c.AvatarURL,
		c.Description, c.FollowerCount, c.IsActive))
}

const getChannel = `-- name: GetChannel :one
SELECT ` + channelColumns + ` FROM channels WHERE id = $1`

func (q *Queries) GetChannel(ctx context.Context, id string) (*Channel, error) {
	return scanChannel(q.db.QueryRow(ctx, getChannel, id))
}

const listChannels = `-- name: ListChannels :many
SELECT ` + channelColumns + ` FROM channels
WHERE tenant_id = $1
ORDER BY platform, handle`

func (q *Queries) ListChannels(ctx context.Context, tenantID string) ([]*Channel, error) {
	rows, err := q.db.Query(ctx, listChannels, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const listTrackedHandles = `-- name: ListTrackedHandles :many
SELECT handle FROM channels WHERE tenant_id = $1 AND platform = $2`

func (q *Queries) ListTrackedHandles(ctx context.Context, tenantID, platform string) ([]string, error) {
	return collectStrings(q, ctx, listTrackedHandles, tenantID, platform)
}

const listTrackedExternalIDs = `-- name: ListTrackedExternalIDs :many
SELECT external_id FROM channels
WHERE tenant_id = $1 AND platform = $2 AND external_id <> ''`

func (q *Queries) ListTrackedExternalIDs(ctx context.Context, tenantID, platform string) ([]string, error) {
	return collectStrings(q, ctx, listTrackedExternalIDs, tenantID, platform)
}

const existingItemIDs = `-- name: ExistingItemIDs :many
SELECT id FROM content_items WHERE id = ANY($1::text[])`

func (q *Queries) ExistingItemIDs(ctx context.Context, ids []string) ([]string, error) {
	return collectStrings(q, ctx, existingItemIDs, ids)
}

const upsertContentItem = `-- name: UpsertContentItem :exec
INSERT INTO content_items (
    id, platform, published_at, title, description, url, views, likes, comments,
    duration_seconds, media_url, thumbnail_path, transcription, transcription_status, raw, last_synced_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE
SET published_at = EXCLUDED.published_at,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    url = EXCLUDED.url,
    views = EXCLUDED.views,
    likes = EXCLUDED.likes,
    comments = EXCLUDED.comments,
    duration_seconds = EXCLUDED.duration_seconds,
    media_url = EXCLUDED.media_url,
    thumbnail_path = EXCLUDED.thumbnail_path,
    transcription = EXCLUDED.transcription,
    transcription_status = EXCLUDED.transcription_status,
    raw = EXCLUDED.raw,
    last_synced_at = EXCLUDED.last_synced_at`

func (q *Queries) UpsertContentItem(ctx context.Context, it ContentItem) error {
	raw := it.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	status := it.TranscriptionStatus
	if status == "" {
		status = TranscriptionPending
	}
	_, err := q.db.Exec(ctx, upsertContentItem,
		it.ID, it.Platform, it.PublishedAt, it.Title, it.Description, it.URL,
		it.Views, it.Likes, it.Comments, it.DurationSeconds, it.MediaURL, it.ThumbnailPath,
		it.Transcription, status, raw, it.LastSyncedAt)
	return err
}

const contentItemColumns = `id, platform, published_at, title, description, url, views, likes, comments,
	duration_seconds, media_url, thumbnail_path, transcription, transcription_status, raw, last_synced_at`

const getContentItem = `-- name: GetContentItem :one
SELECT ` + contentItemColumns + ` FROM content_items WHERE id = $1`

func (q *Queries) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	var it ContentItem
	err := q.db.QueryRow(ctx, getContentItem, id).Scan(
		&it.ID, &it.Platform, &it.PublishedAt, &it.Title, &it.Description, &it.URL,
		&it.Views, &it.Likes, &it.Comments, &it.DurationSeconds, &it.MediaURL, &it.ThumbnailPath,
		&it.Transcription, &it.TranscriptionStatus, &it.Raw, &it.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

const updateItemMetrics = `-- name: UpdateItemMetrics :batchexec
UPDATE content_items
SET views = $2, likes = $3, comments = $4, last_synced_at = $5
WHERE id = $1`

// UpdateItemMetrics refreshes engagement counters for known items in one round trip.
func (q *Queries) UpdateItemMetrics(ctx context.Context, updates []MetricsUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(updateItemMetrics, u.ID, u.Views, u.Likes, u.Comments, u.SyncedAt)
	}
	return q.db.SendBatch(ctx, batch).Close()
}

const linkChannelItems = `-- name: LinkChannelItems :exec
INSERT INTO channel_items (channel_id, item_id)
SELECT $1::uuid, unnest($2::text[])
ON CONFLICT DO NOTHING`

func (q *Queries) LinkChannelItems(ctx context.Context, channelID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx, linkChannelItems, channelID, itemIDs)
	return err
}

func collectStrings(q *Queries, ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
