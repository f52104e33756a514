package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/model"
)

// AttemptRepository handles user attempt and response data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts an already graded attempt together with its responses in
// one transaction. The attempt's ID, StartTime and Responses are filled in.
func (r *AttemptRepository) Create(ctx context.Context, a *model.UserAttempt, responses []model.ResponseInput) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO user_attempts (user_id, assessment_id, end_time, score, passed)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, start_time`,
			a.UserID, a.AssessmentID, a.EndTime, a.Score, a.Passed,
		).Scan(&a.ID, &a.StartTime)
		if err != nil {
			return err
		}

		if len(responses) > 0 {
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"user_responses"},
				[]string{"attempt_id", "question_id", "chosen_choice_id", "text_response"},
				pgx.CopyFromSlice(len(responses), func(i int) ([]any, error) {
					resp := responses[i]
					return []any{a.ID, resp.QuestionID, resp.ChosenChoiceID, resp.TextResponse}, nil
				}),
			)
			if err != nil {
				return err
			}
		}

		a.Responses, err = listResponses(ctx, tx, a.ID)
		return err
	})
}

// CountByUserAndAssessment returns how many attempts the user has made.
func (r *AttemptRepository) CountByUserAndAssessment(ctx context.Context, userID, assessmentID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_attempts WHERE user_id = $1 AND assessment_id = $2`,
		userID, assessmentID,
	).Scan(&n)
	return n, err
}

// ListByUser returns the user's attempts, newest first, without responses.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int64) ([]model.UserAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, assessment_id, start_time, end_time, score, passed
		 FROM user_attempts WHERE user_id = $1
		 ORDER BY start_time DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.UserAttempt{}
	for rows.Next() {
		var a model.UserAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.StartTime, &a.EndTime, &a.Score, &a.Passed); err != nil {
			return nil, err
		}
		a.Responses = []model.UserResponse{}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// GetForUser retrieves one of the user's attempts with its responses.
func (r *AttemptRepository) GetForUser(ctx context.Context, userID, id int64) (*model.UserAttempt, error) {
	a := &model.UserAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, assessment_id, start_time, end_time, score, passed
		 FROM user_attempts WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.StartTime, &a.EndTime, &a.Score, &a.Passed)
	if err != nil {
		return nil, err
	}
	a.Responses, err = listResponses(ctx, r.pool, a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func listResponses(ctx context.Context, q dbtx, attemptID int64) ([]model.UserResponse, error) {
	rows, err := q.Query(ctx,
		`SELECT id, attempt_id, question_id, chosen_choice_id, text_response
		 FROM user_responses WHERE attempt_id = $1 ORDER BY id ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.UserResponse{}
	for rows.Next() {
		var resp model.UserResponse
		if err := rows.Scan(&resp.ID, &resp.AttemptID, &resp.QuestionID, &resp.ChosenChoiceID, &resp.TextResponse); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
