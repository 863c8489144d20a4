package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
)

type SettingService struct {
	settingRepo  *repository.SettingRepository
	defaultTitle string
	log          zerolog.Logger
}

func NewSettingService(settingRepo *repository.SettingRepository, defaultTitle string, log zerolog.Logger) *SettingService {
	return &SettingService{
		settingRepo:  settingRepo,
		defaultTitle: defaultTitle,
		log:          log.With().Str("component", "setting_service").Logger(),
	}
}

// GetTimeLimitMinutes returns nil when no limit was ever stored.
func (s *SettingService) GetTimeLimitMinutes(ctx context.Context) (*int, error) {
	return s.getInt(ctx, model.SettingTimeLimitMinutes)
}

// SetTimeLimitMinutes stores floor(minutes). 0 means unlimited.
func (s *SettingService) SetTimeLimitMinutes(ctx context.Context, minutes float64) (int, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return 0, &ValidationError{Field: "minutes", Message: "minutes must be a non-negative number"}
	}
	if minutes > model.MaxTimeLimitMinutes {
		return 0, &ValidationError{
			Field:   "minutes",
			Message: fmt.Sprintf("minutes must be at most %d", model.MaxTimeLimitMinutes),
		}
	}
	m := int(math.Floor(minutes))
	if err := s.put(ctx, model.SettingTimeLimitMinutes, strconv.Itoa(m)); err != nil {
		return 0, err
	}
	return m, nil
}

// GetPassingThreshold returns nil when unset; callers apply
// model.DefaultPassingThreshold at the point of use.
func (s *SettingService) GetPassingThreshold(ctx context.Context) (*int, error) {
	return s.getInt(ctx, model.SettingPassingThreshold)
}

// SetPassingThreshold stores the truncated percent, which must lie in [0, 100].
func (s *SettingService) SetPassingThreshold(ctx context.Context, percent float64) (int, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return 0, &ValidationError{Field: "percent", Message: "percent must be between 0 and 100"}
	}
	p := int(math.Trunc(percent))
	if err := s.put(ctx, model.SettingPassingThreshold, strconv.Itoa(p)); err != nil {
		return 0, err
	}
	return p, nil
}

// GetExamTitle returns the stored title or the configured default.
func (s *SettingService) GetExamTitle(ctx context.Context) (string, error) {
	v, ok, err := s.get(ctx, model.SettingExamTitle)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return s.defaultTitle, nil
	}
	return v, nil
}

func (s *SettingService) SetExamTitle(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := s.put(ctx, model.SettingExamTitle, title); err != nil {
		return "", err
	}
	return title, nil
}

// ExamSettings resolves every setting with its default applied.
func (s *SettingService) ExamSettings(ctx context.Context) (model.ExamSettings, error) {
	out := model.ExamSettings{PassingThreshold: model.DefaultPassingThreshold}

	limit, err := s.GetTimeLimitMinutes(ctx)
	if err != nil {
		return out, err
	}
	if limit != nil {
		out.TimeLimitMinutes = *limit
	}
	threshold, err := s.GetPassingThreshold(ctx)
	if err != nil {
		return out, err
	}
	if threshold != nil {
		out.PassingThreshold = *threshold
	}
	if out.ExamTitle, err = s.GetExamTitle(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (s *SettingService) get(ctx context.Context, key string) (string, bool, error) {
	setting, err := s.settingRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		s.log.Error().Err(err).Str("key", key).Msg("failed to read setting")
		return "", false, storageErr("read setting", err)
	}
	return setting.Value, true, nil
}

func (s *SettingService) getInt(ctx context.Context, key string) (*int, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-numeric setting")
		return nil, nil
	}
	return &n, nil
}

func (s *SettingService) put(ctx context.Context, key, value string) error {
	if err := s.settingRepo.Upsert(ctx, key, value); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to update setting")
		return storageErr("write setting", err)
	}
	return nil
}
