package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/i18n"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/stemsi/quizdesk/internal/sheet"
)

// ResultNotifier is told about every change to the result log.
type ResultNotifier interface {
	ResultAppended(res model.Result)
	ResultDeleted(id int64)
	ResultsCleared()
}

// ResultService manages the append-only result log.
type ResultService struct {
	resultRepo *repository.ResultRepository
	notifier   ResultNotifier
	tr         *i18n.Translator
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
}

// NewResultService creates a ResultService. notifier may be nil.
func NewResultService(
	resultRepo *repository.ResultRepository,
	notifier ResultNotifier,
	tr *i18n.Translator,
	loc *time.Location,
	log zerolog.Logger,
) *ResultService {
	if loc == nil {
		loc = time.Local
	}
	return &ResultService{
		resultRepo: resultRepo,
		notifier:   notifier,
		tr:         tr,
		loc:        loc,
		now:        time.Now,
		log:        log.With().Str("component", "result_service").Logger(),
	}
}

// Append records one completed attempt. Percent is derived from score and total.
func (s *ResultService) Append(ctx context.Context, req model.CreateResultRequest) (*model.Result, error) {
	name := strings.TrimSpace(req.StudentName)
	if name == "" {
		return nil, &ValidationError{Field: "studentName", Message: "studentName is required"}
	}
	if req.Score < 0 || req.Total < 0 {
		return nil, &ValidationError{Field: "score", Message: "score and total must be non-negative"}
	}
	if req.Total > 0 && req.Score > req.Total {
		return nil, &ValidationError{Field: "score", Message: "score cannot exceed total"}
	}

	answers := req.Answers
	if answers == nil {
		answers = model.AnswerMap{}
	}
	res := &model.Result{
		StudentName: name,
		Answers:     answers,
		Score:       req.Score,
		Total:       req.Total,
		Percent:     model.Percent(req.Score, req.Total),
		CreatedAt:   s.now().UTC(),
		StartTime:   req.StartTime,
		SubmitTime:  req.SubmitTime,
		TimeSpent:   req.TimeSpent,
	}
	if err := s.resultRepo.Create(ctx, res); err != nil {
		s.log.Error().Err(err).Str("student", name).Msg("failed to append result")
		return nil, storageErr("append result", err)
	}

	s.log.Info().
		Int64("result_id", res.ID).
		Str("student", name).
		Int("score", res.Score).
		Int("total", res.Total).
		Msg("result recorded")
	if s.notifier != nil {
		s.notifier.ResultAppended(*res)
	}
	return res, nil
}

// List returns every result, newest first.
func (s *ResultService) List(ctx context.Context) ([]model.Result, error) {
	results, err := s.resultRepo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list results")
		return nil, storageErr("list results", err)
	}
	return results, nil
}

func (s *ResultService) Delete(ctx context.Context, id int64) error {
	if err := s.resultRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResultNotFound
		}
		s.log.Error().Err(err).Int64("id", id).Msg("failed to delete result")
		return storageErr("delete result", err)
	}
	if s.notifier != nil {
		s.notifier.ResultDeleted(id)
	}
	return nil
}

func (s *ResultService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.resultRepo.DeleteAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to clear results")
		return 0, storageErr("clear results", err)
	}
	s.log.Info().Int64("deleted", n).Msg("result log cleared")
	if s.notifier != nil {
		s.notifier.ResultsCleared()
	}
	return n, nil
}

// Export writes every result as an xlsx workbook with localized headers.
func (s *ResultService) Export(ctx context.Context, w io.Writer) error {
	results, err := s.List(ctx)
	if err != nil {
		return err
	}
	return sheet.WriteResults(w, results, s.exportLabels(), s.loc)
}

func (s *ResultService) exportLabels() sheet.ExportLabels {
	return sheet.ExportLabels{
		Sheet:        s.tr.T("ExportSheet"),
		Name:         s.tr.T("ExportColName"),
		Date:         s.tr.T("ExportColDate"),
		StartTime:    s.tr.T("ExportColStart"),
		SubmitTime:   s.tr.T("ExportColSubmit"),
		TimeSpent:    s.tr.T("ExportColTimeSpent"),
		Score:        s.tr.T("ExportColScore"),
		Percent:      s.tr.T("ExportColPercent"),
		NotAvailable: s.tr.T("ExportNotAvailable"),
		DateLayout:   s.tr.T("DateLayout"),
		TimeLayout:   s.tr.T("TimeLayout"),
	}
}
