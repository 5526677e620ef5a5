package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a chat request handed to the worker through the queue.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	// OwnerKey is the user id, or the session id for anonymous callers. It
	// scopes idempotency keys.
	OwnerKey  string  `gorm:"type:varchar(64);not null;index:uniq_job_owner_idempo,unique,priority:1" json:"-"`
	UserID    *string `gorm:"type:varchar(64);index" json:"-"`
	SessionID string  `gorm:"type:varchar(64);index" json:"session_id"`

	Message       string `gorm:"type:text;not null" json:"-"`
	IgnoreHistory bool   `json:"-"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_job_owner_idempo,unique,priority:2" json:"-"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	Response         *string `gorm:"type:text" json:"response,omitempty"`
	DetectedLanguage *string `gorm:"type:varchar(8)" json:"detected_language,omitempty"`
	Provider         *string `gorm:"type:varchar(32)" json:"provider,omitempty"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "chat_jobs" }
