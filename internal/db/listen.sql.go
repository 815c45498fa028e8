package db

import (
	"context"
)

const (
	ChannelScrapeJobs  = "scrape_jobs"
	ChannelTopicGraphs = "topic_graphs"
)

const listenScrapeJobs = `LISTEN scrape_jobs`

func (q *Queries) ListenScrapeJobs(ctx context.Context) error {
	_, err := q.db.Exec(ctx, listenScrapeJobs)
	return err
}

const listenTopicGraphs = `LISTEN topic_graphs`

func (q *Queries) ListenTopicGraphs(ctx context.Context) error {
	_, err := q.db.Exec(ctx, listenTopicGraphs)
	return err
}
