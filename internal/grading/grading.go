// Package grading scores assessment attempts. It is pure: callers load the
// assessment's questions (with choices) and pass the submitted responses.
package grading

import (
	"errors"
	"fmt"

	"github.com/stemsi/elearning-backend/internal/model"
)

// Validation errors for submitted responses.
var (
	ErrUnknownQuestion   = errors.New("response references a question outside the assessment")
	ErrForeignChoice     = errors.New("chosen choice does not belong to the question")
	ErrDuplicateResponse = errors.New("more than one response for the same question")
)

// Result is the outcome of grading one attempt.
type Result struct {
	Score         int
	TotalPossible int
	Percentage    float64
	Passed        bool
}

// Validate checks that every response targets a question of the assessment,
// that chosen choices belong to their question, and that no question is
// answered twice.
func Validate(questions []model.Question, responses []model.ResponseInput) error {
	byID := indexQuestions(questions)
	seen := make(map[int64]struct{}, len(responses))

	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			return fmt.Errorf("question %d: %w", r.QuestionID, ErrUnknownQuestion)
		}
		if _, dup := seen[r.QuestionID]; dup {
			return fmt.Errorf("question %d: %w", r.QuestionID, ErrDuplicateResponse)
		}
		seen[r.QuestionID] = struct{}{}

		if r.ChosenChoiceID != nil && findChoice(q, *r.ChosenChoiceID) == nil {
			return fmt.Errorf("choice %d: %w", *r.ChosenChoiceID, ErrForeignChoice)
		}
	}
	return nil
}

// Grade computes the score of a set of responses.
//
// TotalPossible is the sum of marks of all questions. Score sums the marks of
// each question whose chosen choice is correct; text responses never score.
// Percentage is 0 when TotalPossible is 0, and the attempt then passes only
// when passingScore is 0.
func Grade(questions []model.Question, responses []model.ResponseInput, passingScore int) Result {
	byID := indexQuestions(questions)

	res := Result{}
	for _, q := range questions {
		res.TotalPossible += q.Marks
	}

	credited := make(map[int64]struct{}, len(responses))
	for _, r := range responses {
		if r.ChosenChoiceID == nil {
			continue
		}
		q, ok := byID[r.QuestionID]
		if !ok {
			continue
		}
		if _, done := credited[q.ID]; done {
			continue
		}
		if ch := findChoice(q, *r.ChosenChoiceID); ch != nil && ch.IsCorrect {
			res.Score += q.Marks
			credited[q.ID] = struct{}{}
		}
	}

	// Passed is decided in integers; Percentage is for display and may
	// round below an exact boundary.
	if res.TotalPossible > 0 {
		res.Percentage = float64(res.Score) / float64(res.TotalPossible) * 100
		res.Passed = res.Score*100 >= passingScore*res.TotalPossible
	} else {
		res.Passed = passingScore <= 0
	}
	return res
}

func indexQuestions(questions []model.Question) map[int64]*model.Question {
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	return byID
}

func findChoice(q *model.Question, choiceID int64) *model.Choice {
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			return &q.Choices[i]
		}
	}
	return nil
}
