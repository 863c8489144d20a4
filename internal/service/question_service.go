package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/cache"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/stemsi/quizdesk/internal/sheet"
)

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	cache        cache.QuestionCache
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService. A nil cache disables caching.
func NewQuestionService(questionRepo *repository.QuestionRepository, qc cache.QuestionCache, log zerolog.Logger) *QuestionService {
	if qc == nil {
		qc = cache.Noop{}
	}
	return &QuestionService{
		questionRepo: questionRepo,
		cache:        qc,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// List returns every question with choices decoded.
func (s *QuestionService) List(ctx context.Context) ([]model.Question, error) {
	if questions, ok := s.cache.Get(ctx); ok {
		return questions, nil
	}
	questions, err := s.questionRepo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list questions")
		return nil, storageErr("list questions", err)
	}
	s.cache.Set(ctx, questions)
	return questions, nil
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	q, err := newQuestion(req)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		s.log.Error().Err(err).Msg("failed to create question")
		return nil, storageErr("create question", err)
	}
	s.cache.Invalidate(ctx)
	return q, nil
}

// Update fully replaces text, choices and correct of question id.
func (s *QuestionService) Update(ctx context.Context, id int64, req model.QuestionRequest) error {
	q, err := newQuestion(req)
	if err != nil {
		return err
	}
	q.ID = id
	if err := s.questionRepo.Update(ctx, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		s.log.Error().Err(err).Int64("id", id).Msg("failed to update question")
		return storageErr("update question", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Delete removes question id.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	if err := s.questionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		s.log.Error().Err(err).Int64("id", id).Msg("failed to delete question")
		return storageErr("delete question", err)
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ClearAll deletes every question and returns how many were removed.
func (s *QuestionService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.questionRepo.DeleteAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to clear questions")
		return 0, storageErr("clear questions", err)
	}
	s.cache.Invalidate(ctx)
	s.log.Info().Int64("deleted", n).Msg("question bank cleared")
	return n, nil
}

// Import reads the first worksheet of an xlsx workbook and inserts every
// valid row. Rejected rows are reported without stopping the batch, and all
// inserts have completed when Import returns.
func (s *QuestionService) Import(ctx context.Context, r io.Reader, skipHeader bool) (*model.ImportReport, error) {
	rows, err := sheet.ReadRows(r)
	if err != nil {
		return nil, err
	}

	report := &model.ImportReport{Errors: []model.ImportRowError{}}
	for i, cells := range rows {
		rowNum := i + 1
		if skipHeader && rowNum == 1 {
			continue
		}

		q, rowErr := parseImportRow(cells)
		if q == nil && rowErr == nil {
			report.Skipped++
			continue
		}
		if rowErr != nil {
			rowErr.Row = rowNum
			s.log.Debug().Int("row", rowNum).Str("reason", rowErr.Message).Msg("import row rejected")
			report.Errors = append(report.Errors, *rowErr)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.questionRepo.Create(ctx, q); err != nil {
			s.log.Error().Err(err).Int("row", rowNum).Msg("failed to insert imported question")
			report.Errors = append(report.Errors, model.ImportRowError{
				Row:     rowNum,
				Message: fmt.Sprintf("Database error: %v", err),
			})
			continue
		}
		report.Imported++
	}

	if report.Imported > 0 {
		s.cache.Invalidate(ctx)
	}
	s.log.Info().
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Int("rejected", len(report.Errors)).
		Msg("question import finished")
	return report, nil
}

// Import column layout: A text, B-E choices, F 1-based correct choice.
const (
	colText        = 0
	colFirstChoice = 1
	colLastChoice  = 4
	colCorrect     = 5
)

// parseImportRow returns (nil, nil) for a blank row.
func parseImportRow(cells []string) (*model.Question, *model.ImportRowError) {
	blank := true
	for _, c := range cells {
		if c != "" {
			blank = false
			break
		}
	}
	if blank {
		return nil, nil
	}

	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	text := cell(colText)
	if text == "" {
		return nil, &model.ImportRowError{Message: "Question text required (Column A)"}
	}

	var choices []string
	for i := colFirstChoice; i <= colLastChoice; i++ {
		if c := cell(i); c != "" {
			choices = append(choices, c)
		}
	}
	if len(choices) < 2 {
		return nil, &model.ImportRowError{Message: "At least 2 choices required (Columns B-E)"}
	}

	n, ok := leadingInt(cell(colCorrect))
	if !ok || n < 1 || n > len(choices) {
		return nil, &model.ImportRowError{
			Message: fmt.Sprintf("Correct answer must be between 1 and %d (Column F)", len(choices)),
		}
	}

	return &model.Question{
		Text:    text,
		Choices: choices,
		Correct: model.NewChoiceIndex(n - 1),
	}, nil
}

// leadingInt parses an optional sign followed by decimal digits, ignoring
// anything after them, so "2", "2.0" and "2)" all read as 2.
func leadingInt(s string) (int, bool) {
	i, neg := 0, false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		if n > 1<<20 {
			return 0, false
		}
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func newQuestion(req model.QuestionRequest) (*model.Question, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &ValidationError{Field: "text", Message: "text is required"}
	}
	choices := req.Choices
	if choices == nil {
		choices = []string{}
	}
	if !req.Correct.Valid(len(choices)) {
		return nil, &ValidationError{
			Field:   "correct",
			Message: fmt.Sprintf("correct must be an index between 0 and %d", len(choices)-1),
		}
	}
	return &model.Question{
		Text:    text,
		Choices: append([]string(nil), choices...),
		Correct: req.Correct,
	}, nil
}
