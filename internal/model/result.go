package model

import (
	"math"
	"time"
)

// AnswerMap maps a question id to the chosen choice index.
type AnswerMap map[string]ChoiceIndex

// Result is one completed exam attempt.
type Result struct {
	ID          int64      `json:"id"`
	StudentName string     `json:"studentName"`
	Answers     AnswerMap  `json:"answers"`
	Score       int        `json:"score"`
	Total       int        `json:"total"`
	Percent     int        `json:"percent"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartTime   *time.Time `json:"startTime"`
	SubmitTime  *time.Time `json:"submitTime"`
	TimeSpent   *int       `json:"timeSpent"`
}

// CreateResultRequest is the payload posted when an attempt is submitted.
type CreateResultRequest struct {
	StudentName string     `json:"studentName" binding:"required,notblank,max=200"`
	Answers     AnswerMap  `json:"answers"`
	Score       int        `json:"score" binding:"min=0"`
	Total       int        `json:"total" binding:"min=0"`
	StartTime   *time.Time `json:"startTime"`
	SubmitTime  *time.Time `json:"submitTime"`
	TimeSpent   *int       `json:"timeSpent" binding:"omitempty,min=0"`
}

// Percent returns round(score/total*100), or 0 when total is 0.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
