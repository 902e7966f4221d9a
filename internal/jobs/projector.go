package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// StatusView is what a polling client sees. Script metadata is flattened to the top level;
// a failed job carries only its error message.
type StatusView struct {
	JobID     uuid.UUID         `json:"job_id"`
	Status    string            `json:"status"`
	Mode      string            `json:"mode"`
	Topic     string            `json:"topic"`
	Duration  int               `json:"duration"`
	Progress  string            `json:"progress"`
	Logs      []models.LogEntry `json:"logs"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	Video      *models.Artifact `json:"video,omitempty"`
	Draft      *models.Artifact `json:"draft,omitempty"`
	NoVoice    *models.Artifact `json:"no_voice,omitempty"`
	ScriptFile *models.Artifact `json:"script_file,omitempty"`

	ScriptText string           `json:"script_text,omitempty"`
	Script     *ScriptView      `json:"script,omitempty"`
	Hook       string           `json:"hook,omitempty"`
	MidHook    string           `json:"mid_hook,omitempty"`
	CTA        string           `json:"cta,omitempty"`
	Hashtags   []string         `json:"hashtags,omitempty"`
	Keywords   []string         `json:"keywords,omitempty"`
	Captions   []models.Caption `json:"captions,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`

	Error *string `json:"error,omitempty"`
}

// ScriptView groups the script metadata of a completed job.
type ScriptView struct {
	Text     string           `json:"text"`
	Hook     string           `json:"hook"`
	MidHook  string           `json:"mid_hook"`
	CTA      string           `json:"cta"`
	Hashtags []string         `json:"hashtags"`
	Keywords []string         `json:"keywords"`
	Captions []models.Caption `json:"captions"`
}

// Project maps job to its client view, keeping at most logTail of the newest log entries.
// A non-positive logTail keeps the whole log.
func Project(job *models.Job, logTail int) StatusView {
	logs := job.Logs
	if logTail > 0 && len(logs) > logTail {
		logs = logs[len(logs)-logTail:]
	}
	v := StatusView{
		JobID:     job.ID,
		Status:    job.Status,
		Mode:      job.Mode,
		Topic:     job.Topic,
		Duration:  job.Duration,
		Progress:  job.Progress,
		Logs:      append([]models.LogEntry{}, logs...),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}

	switch job.Status {
	case models.JobStatusError:
		if job.Error != nil {
			msg := *job.Error
			v.Error = &msg
		}
	case models.JobStatusCompleted:
		if job.Result != nil {
			projectResult(&v, job.Mode, job.Result.Clone())
		}
	}
	return v
}

func projectResult(v *StatusView, mode string, r models.Result) {
	if mode == models.ModeDraft {
		v.Draft = r.Draft
		v.NoVoice = r.NoVoice
		v.ScriptFile = r.Transcript
	} else {
		v.Video = r.Video
	}

	v.ScriptText = r.Script
	v.Hook = r.Hook
	v.MidHook = r.MidHook
	v.CTA = r.CTA
	v.Hashtags = r.Hashtags
	v.Keywords = r.Keywords
	v.Captions = r.Captions
	v.Warnings = r.Warnings
	v.Script = &ScriptView{
		Text:     r.Script,
		Hook:     r.Hook,
		MidHook:  r.MidHook,
		CTA:      r.CTA,
		Hashtags: r.Hashtags,
		Keywords: r.Keywords,
		Captions: r.Captions,
	}
}
