package model

import "time"

// Recognized setting keys.
const (
	SettingTimeLimitMinutes = "timeLimitMinutes"
	SettingPassingThreshold = "passingThreshold"
	SettingExamTitle        = "examTitle"
)

// DefaultPassingThreshold applies wherever no threshold has been stored.
const DefaultPassingThreshold = 80

// MaxTimeLimitMinutes caps the stored time limit at one week.
const MaxTimeLimitMinutes = 7 * 24 * 60

// Setting is a stored key/value pair.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExamSettings is the snapshot a session is started with.
type ExamSettings struct {
	TimeLimitMinutes int    `json:"timeLimitMinutes"`
	PassingThreshold int    `json:"passingThreshold"`
	ExamTitle        string `json:"examTitle"`
}

type TimeLimitRequest struct {
	Minutes *float64 `json:"minutes" binding:"required,min=0,max=10080"`
}

type PassingThresholdRequest struct {
	Percent *float64 `json:"percent" binding:"required,min=0,max=100"`
}

type ExamTitleRequest struct {
	Title string `json:"title" binding:"required,notblank,max=200"`
}

// PinRequest is the PIN gate unlock payload.
type PinRequest struct {
	PIN string `json:"pin" binding:"required,max=128"`
}

// ClearResponse reports a bulk delete.
type ClearResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}
