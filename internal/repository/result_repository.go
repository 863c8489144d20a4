package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stemsi/quizdesk/internal/model"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, student_name, answers, score, total, percent, created_at, start_time, submit_time, time_spent`

func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	answers := res.Answers
	if answers == nil {
		answers = model.AnswerMap{}
	}
	blob, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	return r.db.QueryRowContext(ctx,
		`INSERT INTO results (student_name, answers, score, total, percent, created_at, start_time, submit_time, time_spent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		res.StudentName, string(blob), res.Score, res.Total, res.Percent,
		formatTime(res.CreatedAt), nullTime(res.StartTime), nullTime(res.SubmitTime), nullInt(res.TimeSpent),
	).Scan(&res.ID)
}

// List returns all results, newest first.
func (r *ResultRepository) List(ctx context.Context) ([]model.Result, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ResultRepository) GetByID(ctx context.Context, id int64) (*model.Result, error) {
	res, err := scanResult(r.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete returns sql.ErrNoRows when id is unknown.
func (r *ResultRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *ResultRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanResult(row rowScanner) (model.Result, error) {
	var (
		res        model.Result
		answers    string
		createdAt  string
		startTime  sql.NullString
		submitTime sql.NullString
		timeSpent  sql.NullInt64
	)
	err := row.Scan(&res.ID, &res.StudentName, &answers, &res.Score, &res.Total, &res.Percent,
		&createdAt, &startTime, &submitTime, &timeSpent)
	if err != nil {
		return res, err
	}
	res.Answers = model.AnswerMap{}
	if answers != "" {
		if err := json.Unmarshal([]byte(answers), &res.Answers); err != nil {
			return res, fmt.Errorf("decode answers of result %d: %w", res.ID, err)
		}
	}
	res.CreatedAt = parseTime(createdAt)
	res.StartTime = parseNullTime(startTime)
	res.SubmitTime = parseNullTime(submitTime)
	res.TimeSpent = parseNullInt(timeSpent)
	return res, nil
}
