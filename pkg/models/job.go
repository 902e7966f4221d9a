package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusScripting  = "scripting"
	JobStatusVoicing    = "voicing"
	JobStatusImaging    = "imaging"
	JobStatusAssembling = "assembling"
	JobStatusMuxing     = "muxing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// IsTerminalStatus reports whether no further status transition is possible.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusError
}

const (
	ModeDraft        = "draft"
	ModeFinal        = "final"
	ModeReplaceVoice = "replace-voice"
	ModePIP          = "pip"
	ModeBatch        = "batch"
)

// ValidModes lists every accepted job mode in display order.
var ValidModes = []string{ModeDraft, ModeFinal, ModeReplaceVoice, ModePIP, ModeBatch}

func IsValidMode(mode string) bool {
	for _, m := range ValidModes {
		if m == mode {
			return true
		}
	}
	return false
}

const (
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogEntry is one line of a job's user-visible progress log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Job is a single video production request. The API returns its ID on POST /api/v1/jobs;
// clients poll GET /api/v1/jobs/{job_id} until status is completed or error.
type Job struct {
	ID        uuid.UUID       `db:"id"            json:"id"`
	Topic     string          `db:"topic"         json:"topic"`
	Duration  int             `db:"duration"      json:"duration"`
	Mode      string          `db:"mode"          json:"mode"`
	Options   json.RawMessage `db:"options"       json:"options,omitempty"`
	Status    string          `db:"status"        json:"status"`
	Progress  string          `db:"progress"      json:"progress"`
	Logs      []LogEntry      `db:"logs"          json:"logs"`
	Result    *Result         `db:"result"        json:"result,omitempty"`
	Error     *string         `db:"error_message" json:"error,omitempty"`
	CreatedAt time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"    json:"updated_at"`
}

// Clone returns a deep copy so callers can read a snapshot without sharing slices.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Options != nil {
		cp.Options = append(json.RawMessage(nil), j.Options...)
	}
	cp.Logs = append([]LogEntry(nil), j.Logs...)
	if j.Result != nil {
		r := j.Result.Clone()
		cp.Result = &r
	}
	if j.Error != nil {
		msg := *j.Error
		cp.Error = &msg
	}
	return &cp
}

// JobOptions is the subset of the opaque per-job options the pipeline understands.
// Unknown fields are ignored.
type JobOptions struct {
	Script    *Script  `json:"script,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// ParseJobOptions decodes raw options. Empty input yields zero options.
func ParseJobOptions(raw json.RawMessage) (JobOptions, error) {
	var opts JobOptions
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return JobOptions{}, err
	}
	return opts, nil
}
