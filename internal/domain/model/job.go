package model

import "time"

// JobStatus is stored as an ordinal in the database.
type JobStatus int

const (
	JobStatusNotProcessed JobStatus = 0
	JobStatusRunning      JobStatus = 1
	JobStatusSuccess      JobStatus = 2
	JobStatusFailed       JobStatus = 3
)

var statusLabels = map[JobStatus]string{
	JobStatusNotProcessed: "NOT PROCESSED",
	JobStatusRunning:      "RUNNING",
	JobStatusSuccess:      "SUCCESS",
	JobStatusFailed:       "FAILED",
}

// Label returns the display name for a status. Unknown ordinals are
// surfaced rather than hidden so a bad row is visible to the caller.
func (s JobStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "UNKNOWN"
}

// Job is a queued unit of article-generation work.
type Job struct {
	RequestID    string
	UserQuery    string
	Model        string
	Name         string
	OwnerID      string
	Status       JobStatus
	Timestamp    time.Time
	Result       *JobResult
	// ResultRaw is the stored encoding as read back from the database.
	// Result stays nil when the stored bytes fail to decode; callers
	// surface a decode marker instead of failing hard.
	ResultRaw    []byte
	PublishedIDs []int64
}

// CanUpdate reports whether client-supplied fields may still be edited.
func (j *Job) CanUpdate() bool { return j.Status == JobStatusNotProcessed }

// CanDelete reports whether the job may be removed by a client.
func (j *Job) CanDelete() bool { return j.Status == JobStatusNotProcessed }

// CanRequeue reports whether the job may be reset to NOT PROCESSED.
// RUNNING is included so a job stuck by a crashed batch can be recovered.
func (j *Job) CanRequeue() bool {
	return j.Status == JobStatusFailed || j.Status == JobStatusRunning
}

// PublishErrorKind classifies a failed publish attempt.
type PublishErrorKind string

const (
	PublishErrNetwork PublishErrorKind = "network"
	PublishErrStatus  PublishErrorKind = "status"
	PublishErrDecode  PublishErrorKind = "decode"
)

// PublishError is the structured failure recorded per article.
type PublishError struct {
	Kind       PublishErrorKind `json:"kind"`
	StatusCode int              `json:"status_code,omitempty"`
	Detail     string           `json:"detail"`
}

// PublishOutcome is the per-article result of the external publish call.
type PublishOutcome struct {
	OK          bool           `json:"ok"`
	PublishedID int64          `json:"published_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Note        string         `json:"note,omitempty"`
	Error       *PublishError  `json:"error,omitempty"`
}

// ArticleOutcome records one extracted article and its publish result.
type ArticleOutcome struct {
	Title          string         `json:"article_title"`
	Slug           string         `json:"article_slug"`
	ContentSnippet string         `json:"article_content_snippet"`
	Publish        PublishOutcome `json:"post_api_response"`
}

// JobResult is the structured outcome persisted when a job leaves RUNNING.
// It round-trips through the stored JSON encoding.
type JobResult struct {
	Message      string           `json:"message"`
	RawContent   string           `json:"raw_content,omitempty"`
	Articles     []ArticleOutcome `json:"articles"`
	ErrorDetails *string          `json:"error_details"`
}

// JobView is the client-facing projection of a job, with the status label
// instead of the ordinal and the result decoded from storage.
type JobView struct {
	Status           string    `json:"status"`
	UserQuery        string    `json:"user_query"`
	Model            string    `json:"model"`
	Name             string    `json:"name"`
	OwnerID          string    `json:"owner_id"`
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Result           any       `json:"result"`
	EstimatedMinutes float64   `json:"estimated_completion_time_minutes,omitempty"`
	PublishedIDs     []int64   `json:"published_ids,omitempty"`
}
