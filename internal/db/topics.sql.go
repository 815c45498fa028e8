package db

import (
	"context"
	"encoding/json"
	"time"
)

const deleteItemTopics = `-- name: DeleteItemTopics :exec
DELETE FROM item_topics WHERE item_id = $1 AND source = $2`

func (q *Queries) DeleteItemTopics(ctx context.Context, itemID string, source TopicSource) error {
	_, err := q.db.Exec(ctx, deleteItemTopics, itemID, source)
	return err
}

const ensureTopic = `-- name: EnsureTopic :one
INSERT INTO topics (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

func (q *Queries) EnsureTopic(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, ensureTopic, name).Scan(&id)
	return id, err
}

const insertItemTopic = `-- name: InsertItemTopic :exec
INSERT INTO item_topics (item_id, topic_id, source, position)
VALUES ($1, $2, $3, $4)
ON CONFLICT (item_id, topic_id, source) DO NOTHING`

func (q *Queries) InsertItemTopic(ctx context.Context, itemID string, topicID int64, source TopicSource, position int32) error {
	_, err := q.db.Exec(ctx, insertItemTopic, itemID, topicID, source, position)
	return err
}

const listItemTopics = `-- name: ListItemTopics :many
SELECT t.name FROM item_topics it
JOIN topics t ON t.id = it.topic_id
WHERE it.item_id = $1 AND it.source = $2
ORDER BY it.position, t.name`

func (q *Queries) ListItemTopics(ctx context.Context, itemID string, source TopicSource) ([]string, error) {
	return collectStrings(q, ctx, listItemTopics, itemID, source)
}

// GraphSnapshotRow is one tenant item with the union of its topic names.
type GraphSnapshotRow struct {
	ItemID          string
	ChannelID       string
	Views           int64
	Likes           int64
	Comments        int64
	DurationSeconds *int32
	Topics          []string
}

const loadGraphSnapshot = `-- name: LoadGraphSnapshot :many
SELECT ci.id,
       min(ch.id::text) AS channel_id,
       ci.views, ci.likes, ci.comments, ci.duration_seconds,
       COALESCE(array_agg(DISTINCT t.name) FILTER (WHERE t.name IS NOT NULL), '{}')::text[] AS topics
FROM content_items ci
JOIN channel_items lnk ON lnk.item_id = ci.id
JOIN channels ch ON ch.id = lnk.channel_id AND ch.tenant_id = $1
LEFT JOIN item_topics it ON it.item_id = ci.id
LEFT JOIN topics t ON t.id = it.topic_id
GROUP BY ci.id
ORDER BY ci.id`

func (q *Queries) LoadGraphSnapshot(ctx context.Context, tenantID string) ([]GraphSnapshotRow, error) {
	rows, err := q.db.Query(ctx, loadGraphSnapshot, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GraphSnapshotRow
	for rows.Next() {
		var r GraphSnapshotRow
		if err := rows.Scan(&r.ItemID, &r.ChannelID, &r.Views, &r.Likes, &r.Comments, &r.DurationSeconds, &r.Topics); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type TopicGraphRow struct {
	TenantID   string          `json:"tenant_id"`
	Graph      json.RawMessage `json:"graph"`
	TopicCount int32           `json:"topic_count"`
	EdgeCount  int32           `json:"edge_count"`
	BuiltAt    time.Time       `json:"built_at"`
}

const saveTopicGraph = `-- name: SaveTopicGraph :exec
INSERT INTO topic_graphs (tenant_id, graph, topic_count, edge_count, built_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id) DO UPDATE
SET graph = EXCLUDED.graph,
    topic_count = EXCLUDED.topic_count,
    edge_count = EXCLUDED.edge_count,
    built_at = EXCLUDED.built_at`

func (q *Queries) SaveTopicGraph(ctx context.Context, row TopicGraphRow) error {
	_, err := q.db.Exec(ctx, saveTopicGraph, row.TenantID, row.Graph, row.TopicCount, row.EdgeCount, row.BuiltAt)
	return err
}

const getTopicGraph = `-- name: GetTopicGraph :one
SELECT tenant_id::text, graph, topic_count, edge_count, built_at
FROM topic_graphs WHERE tenant_id = $1`

func (q *Queries) GetTopicGraph(ctx context.Context, tenantID string) (*TopicGraphRow, error) {
	var r TopicGraphRow
	err := q.db.QueryRow(ctx, getTopicGraph, tenantID).Scan(&r.TenantID, &r.Graph, &r.TopicCount, &r.EdgeCount, &r.BuiltAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
