package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// QuestionRepository handles question and choice data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByAssessment retrieves all questions of an assessment ordered by
// sort order, each with its choices.
func (r *QuestionRepository) ListByAssessment(ctx context.Context, assessmentID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assessment_id, text, question_type, marks, sort_order
		 FROM questions WHERE assessment_id = $1
		 ORDER BY sort_order ASC, id ASC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	index := map[int64]int{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Type, &q.Marks, &q.Order); err != nil {
			return nil, err
		}
		q.Choices = []model.Choice{}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.question_id, c.text, c.is_correct
		 FROM choices c
		 JOIN questions q ON q.id = c.question_id
		 WHERE q.assessment_id = $1
		 ORDER BY c.id ASC`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var ch model.Choice
		if err := choiceRows.Scan(&ch.ID, &ch.QuestionID, &ch.Text, &ch.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[ch.QuestionID]; ok {
			questions[i].Choices = append(questions[i].Choices, ch)
		}
	}
	return questions, choiceRows.Err()
}

// GetQuestion retrieves one question without its choices.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assessment_id, text, question_type, marks, sort_order FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.AssessmentID, &q.Text, &q.Type, &q.Marks, &q.Order)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CreateQuestion inserts a new question.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (assessment_id, text, question_type, marks, sort_order)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.AssessmentID, q.Text, q.Type, q.Marks, q.Order,
	).Scan(&q.ID)
}

// UpdateQuestion modifies a question's editable fields.
func (r *QuestionRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions SET text = $1, question_type = $2, marks = $3, sort_order = $4
		 WHERE id = $5 RETURNING assessment_id`,
		q.Text, q.Type, q.Marks, q.Order, q.ID,
	).Scan(&q.AssessmentID)
}

// DeleteQuestion removes a question and its choices.
func (r *QuestionRepository) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListChoices returns a question's choices.
func (r *QuestionRepository) ListChoices(ctx context.Context, questionID int64) ([]model.Choice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct FROM choices
		 WHERE question_id = $1 ORDER BY id ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	choices := []model.Choice{}
	for rows.Next() {
		var ch model.Choice
		if err := rows.Scan(&ch.ID, &ch.QuestionID, &ch.Text, &ch.IsCorrect); err != nil {
			return nil, err
		}
		choices = append(choices, ch)
	}
	return choices, rows.Err()
}

// GetChoice retrieves a choice by ID.
func (r *QuestionRepository) GetChoice(ctx context.Context, id int64) (*model.Choice, error) {
	ch := &model.Choice{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_id, text, is_correct FROM choices WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.QuestionID, &ch.Text, &ch.IsCorrect)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// CreateChoice inserts a new choice.
func (r *QuestionRepository) CreateChoice(ctx context.Context, ch *model.Choice) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO choices (question_id, text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
		ch.QuestionID, ch.Text, ch.IsCorrect,
	).Scan(&ch.ID)
}

// UpdateChoice modifies a choice.
func (r *QuestionRepository) UpdateChoice(ctx context.Context, ch *model.Choice) error {
	return r.pool.QueryRow(ctx,
		`UPDATE choices SET text = $1, is_correct = $2 WHERE id = $3 RETURNING question_id`,
		ch.Text, ch.IsCorrect, ch.ID,
	).Scan(&ch.QuestionID)
}

// DeleteChoice removes a choice.
func (r *QuestionRepository) DeleteChoice(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM choices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
