package db

import (
	"context"
)

const topicSearched = `-- name: IsTopicSearched :one
SELECT EXISTS (
    SELECT 1 FROM topic_searches WHERE tenant_id = $1 AND platform = $2 AND topic_name = $3
)`

func (q *Queries) IsTopicSearched(ctx context.Context, tenantID, platform, topic string) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, topicSearched, tenantID, platform, topic).Scan(&ok)
	return ok, err
}

const markTopicSearched = `-- name: MarkTopicSearched :exec
INSERT INTO topic_searches (tenant_id, platform, topic_name)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`

func (q *Queries) MarkTopicSearched(ctx context.Context, tenantID, platform, topic string) error {
	_, err := q.db.Exec(ctx, markTopicSearched, tenantID, platform, topic)
	return err
}

const suggestionColumns = `id::text, tenant_id::text, platform, handle, external_id, title, url, description,
	follower_count, topic_name, search_term, status, created_at`

func scanSuggestion(row rowScanner) (*ChannelSuggestion, error) {
	var s ChannelSuggestion
	err := row.Scan(&s.ID, &s.TenantID, &s.Platform, &s.Handle, &s.ExternalID, &s.Title, &s.URL, &s.Description,
		&s.FollowerCount, &s.TopicName, &s.SearchTerm, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const insertSuggestion = `-- name: InsertSuggestion :one
INSERT INTO channel_suggestions (tenant_id, platform, handle, external_id, title, url, description, follower_count, topic_name, search_term)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (tenant_id, platform, handle) DO NOTHING
RETURNING ` + suggestionColumns

// InsertSuggestion returns pgx.ErrNoRows when the handle was already suggested.
func (q *Queries) InsertSuggestion(ctx context.Context, s ChannelSuggestion) (*ChannelSuggestion, error) {
	return scanSuggestion(q.db.QueryRow(ctx, insertSuggestion,
		s.TenantID, s.Platform, s.Handle, s.ExternalID, s.Title, s.URL, s.Description, s.FollowerCount, s.TopicName, s.SearchTerm))
}

const listSuggestedHandles = `-- name: ListSuggestedHandles :many
SELECT handle FROM channel_suggestions WHERE tenant_id = $1 AND platform = $2`

func (q *Queries) ListSuggestedHandles(ctx context.Context, tenantID, platform string) ([]string, error) {
	return collectStrings(q, ctx, listSuggestedHandles, tenantID, platform)
}

const listSuggestedExternalIDs = `-- name: ListSuggestedExternalIDs :many
SELECT external_id FROM channel_suggestions
WHERE tenant_id = $1 AND platform = $2 AND external_id <> ''`

func (q *Queries) ListSuggestedExternalIDs(ctx context.Context, tenantID, platform string) ([]string, error) {
	return collectStrings(q, ctx, listSuggestedExternalIDs, tenantID, platform)
}

const listSuggestions = `-- name: ListSuggestions :many
SELECT ` + suggestionColumns + ` FROM channel_suggestions
WHERE tenant_id = $1 AND ($2::text = '' OR status = $2)
ORDER BY created_at DESC, id`

// ListSuggestions filters by status unless status is empty.
func (q *Queries) ListSuggestions(ctx context.Context, tenantID string, status SuggestionStatus) ([]*ChannelSuggestion, error) {
	rows, err := q.db.Query(ctx, listSuggestions, tenantID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ChannelSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSuggestion = `-- name: GetSuggestion :one
SELECT ` + suggestionColumns + ` FROM channel_suggestions WHERE id = $1`

func (q *Queries) GetSuggestion(ctx context.Context, id string) (*ChannelSuggestion, error) {
	return scanSuggestion(q.db.QueryRow(ctx, getSuggestion, id))
}

const resolveSuggestion = `-- name: ResolveSuggestion :one
UPDATE channel_suggestions SET status = $2
WHERE id = $1 AND status = 'pending'
RETURNING ` + suggestionColumns

// ResolveSuggestion moves a pending suggestion to accepted or dismissed.
// It returns pgx.ErrNoRows when the suggestion is missing or already resolved.
func (q *Queries) ResolveSuggestion(ctx context.Context, id string, status SuggestionStatus) (*ChannelSuggestion, error) {
	return scanSuggestion(q.db.QueryRow(ctx, resolveSuggestion, id, status))
}
