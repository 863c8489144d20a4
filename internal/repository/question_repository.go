package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stemsi/quizdesk/internal/model"
)

type QuestionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// List returns every question in insertion order.
func (r *QuestionRepository) List(ctx context.Context) ([]model.Question, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, text, choices, correct FROM questions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, text, choices, correct FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}
	return r.db.QueryRowContext(ctx,
		`INSERT INTO questions (text, choices, correct) VALUES ($1, $2, $3) RETURNING id`,
		q.Text, string(choices), q.Correct.String()).Scan(&q.ID)
}

// Update replaces text, choices and correct. Returns sql.ErrNoRows when id is unknown.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE questions SET text = $1, choices = $2, correct = $3 WHERE id = $4`,
		q.Text, string(choices), q.Correct.String(), q.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete returns sql.ErrNoRows when id is unknown.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteAll removes every question and reports how many were removed.
func (r *QuestionRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (model.Question, error) {
	var (
		q       model.Question
		choices string
		correct string
	)
	if err := row.Scan(&q.ID, &q.Text, &choices, &correct); err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
		return q, fmt.Errorf("decode choices of question %d: %w", q.ID, err)
	}
	if q.Choices == nil {
		q.Choices = []string{}
	}
	q.Correct = model.ParseChoiceIndex(correct)
	return q, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
