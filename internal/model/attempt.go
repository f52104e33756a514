package model

import "time"

// UserAttempt is one graded submission of an assessment. Listed newest first.
type UserAttempt struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	AssessmentID int64          `json:"assessment"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      *time.Time     `json:"end_time"`
	Score        int            `json:"score"`
	Passed       bool           `json:"passed"`
	Responses    []UserResponse `json:"responses"`
}

// UserResponse answers one question within an attempt.
// Unique per (attempt, question).
type UserResponse struct {
	ID             int64   `json:"id"`
	AttemptID      int64   `json:"attempt"`
	QuestionID     int64   `json:"question"`
	ChosenChoiceID *int64  `json:"chosen_choice"`
	TextResponse   *string `json:"text_response"`
}

// ResponseInput is one answer inside CreateAttemptRequest.
type ResponseInput struct {
	QuestionID     int64   `json:"question" binding:"required,min=1"`
	ChosenChoiceID *int64  `json:"chosen_choice" binding:"omitempty,min=1"`
	TextResponse   *string `json:"text_response" binding:"omitempty,max=10000"`
}

// CreateAttemptRequest is the payload for POST /user-attempts/.
type CreateAttemptRequest struct {
	AssessmentID int64           `json:"assessment" binding:"required,min=1"`
	Responses    []ResponseInput `json:"responses" binding:"dive"`
	EndTime      *time.Time      `json:"end_time"`
}

// AttemptResult is the graded attempt returned on submission.
type AttemptResult struct {
	UserAttempt
	Percentage    float64 `json:"percentage"`
	TotalPossible int     `json:"total_possible"`
	AttemptsUsed  int     `json:"attempts_used"`
	MaxAttempts   int     `json:"max_attempts"`
}
