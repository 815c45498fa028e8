package db

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionAudioReady TranscriptionStatus = "audio_ready"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionError      TranscriptionStatus = "error"
)

type TopicSource string

const (
	TopicSourceAuthor TopicSource = "author"
	TopicSourceAI     TopicSource = "ai"
)

type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionAccepted  SuggestionStatus = "accepted"
	SuggestionDismissed SuggestionStatus = "dismissed"
)

type Tenant struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	CredentialPlatforms []string  `json:"credential_platforms"`
	CreatedAt           time.Time `json:"created_at"`
}

// RequiresCredential reports whether jobs for platform need a stored credential.
func (t *Tenant) RequiresCredential(platform string) bool {
	for _, p := range t.CredentialPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

type Channel struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Platform      string    `json:"platform"`
	Handle        string    `json:"handle"`
	ExternalID    string    `json:"external_id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	AvatarURL     string    `json:"avatar_url"`
	Description   string    `json:"description"`
	FollowerCount *int64    `json:"follower_count,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ContentItem struct {
	ID                  string              `json:"id"`
	Platform            string              `json:"platform"`
	PublishedAt         *time.Time          `json:"published_at,omitempty"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	URL                 string              `json:"url"`
	Views               int64               `json:"views"`
	Likes               int64               `json:"likes"`
	Comments            int64               `json:"comments"`
	DurationSeconds     *int32              `json:"duration_seconds,omitempty"`
	MediaURL            *string             `json:"media_url,omitempty"`
	ThumbnailPath       *string             `json:"thumbnail_path,omitempty"`
	Transcription       *string             `json:"transcription,omitempty"`
	TranscriptionStatus TranscriptionStatus `json:"transcription_status"`
	Raw                 json.RawMessage     `json:"raw,omitempty"`
	LastSyncedAt        time.Time           `json:"last_synced_at"`
}

// MetricsUpdate is the only mutation applied to an already-known item.
type MetricsUpdate struct {
	ID       string
	Views    int64
	Likes    int64
	Comments int64
	SyncedAt time.Time
}

type JobCounters struct {
	Found     int32 `json:"found"`
	Processed int32 `json:"processed"`
	New       int32 `json:"new"`
	Updated   int32 `json:"updated"`
}

// JobResult is written with a terminal status.
type JobResult struct {
	Counters     JobCounters
	ChannelID    *string
	ChannelTitle *string
}

type ScrapeJob struct {
	ID              string      `json:"id"`
	TenantID        string      `json:"tenant_id"`
	Platform        string      `json:"platform"`
	Handle          string      `json:"handle"`
	Status          JobStatus   `json:"status"`
	LookbackDays    int32       `json:"lookback_days"`
	IsInitialScrape bool        `json:"is_initial_scrape"`
	Counters        JobCounters `json:"counters"`
	ChannelID       *string     `json:"channel_id,omitempty"`
	ChannelTitle    *string     `json:"channel_title,omitempty"`
	ErrorMessage    *string     `json:"error_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

type ChannelSuggestion struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"`
	Platform      string           `json:"platform"`
	Handle        string           `json:"handle"`
	ExternalID    string           `json:"external_id"`
	Title         string           `json:"title"`
	URL           string           `json:"url"`
	Description   string           `json:"description"`
	FollowerCount *int64           `json:"follower_count,omitempty"`
	TopicName     string           `json:"topic_name"`
	SearchTerm    string           `json:"search_term"`
	Status        SuggestionStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}
