package models

import (
	"time"

	"mailsched/internal/state"
)

type SendWindow string

const (
	// SendWindowBusiness defers delivery into the weekday 09:00-18:00 window
	// of the job's time zone.
	SendWindowBusiness SendWindow = "business"
	// SendWindowImmediate delivers at the requested instant, even a past one.
	SendWindowImmediate SendWindow = "immediate"
)

// Payload carries everything the delivery backend needs for one message.
// It is write-only from the API's point of view and is never echoed back
// to callers.
type Payload struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Job is a single deferred email-send request tracked through its status
// lifecycle. Entries live for the whole process lifetime; there is no
// eviction.
type Job struct {
	ID          string
	Status      state.JobStatus
	Attempts    int
	MaxAttempts int
	LastError   *string
	MessageID   *string
	RunAt       time.Time
	TimeZone    string
	SendWindow  SendWindow
	Payload     Payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobView is the caller-facing projection of a Job: every field except the
// payload.
type JobView struct {
	ID          string          `json:"id"`
	Status      state.JobStatus `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	LastError   *string         `json:"lastError"`
	MessageID   *string         `json:"messageId"`
	RunAt       time.Time       `json:"runAt"`
	TimeZone    string          `json:"timeZone"`
	SendWindow  SendWindow      `json:"sendWindow"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (j *Job) View() JobView {
	return JobView{
		ID:          j.ID,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		MessageID:   j.MessageID,
		RunAt:       j.RunAt,
		TimeZone:    j.TimeZone,
		SendWindow:  j.SendWindow,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
