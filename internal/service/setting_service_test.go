package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
)

func newSettingService(t *testing.T) *SettingService {
	t.Helper()
	return NewSettingService(repository.NewSettingRepository(newTestDB(t)), "Knowledge Check", zerolog.Nop())
}

func TestSettingsDefaults(t *testing.T) {
	svc := newSettingService(t)
	ctx := context.Background()

	limit, err := svc.GetTimeLimitMinutes(ctx)
	if err != nil || limit != nil {
		t.Errorf("GetTimeLimitMinutes = %v, %v; want nil", limit, err)
	}
	threshold, err := svc.GetPassingThreshold(ctx)
	if err != nil || threshold != nil {
		t.Errorf("GetPassingThreshold = %v, %v; want nil", threshold, err)
	}
	title, err := svc.GetExamTitle(ctx)
	if err != nil || title != "Knowledge Check" {
		t.Errorf("GetExamTitle = %q, %v", title, err)
	}

	es, err := svc.ExamSettings(ctx)
	if err != nil {
		t.Fatalf("ExamSettings: %v", err)
	}
	want := model.ExamSettings{TimeLimitMinutes: 0, PassingThreshold: 80, ExamTitle: "Knowledge Check"}
	if es != want {
		t.Errorf("ExamSettings = %+v, want %+v", es, want)
	}
}

func TestSetTimeLimitMinutes(t *testing.T) {
	tests := []struct {
		in      float64
		want    int
		wantErr bool
	}{
		{in: 0, want: 0},
		{in: 15, want: 15},
		{in: 12.9, want: 12},
		{in: -1, wantErr: true},
		{in: math.NaN(), wantErr: true},
		{in: math.Inf(1), wantErr: true},
		{in: model.MaxTimeLimitMinutes, want: model.MaxTimeLimitMinutes},
		{in: model.MaxTimeLimitMinutes + 0.5, wantErr: true},
		{in: 2e17, wantErr: true},
		{in: 1e19, wantErr: true},
	}
	svc := newSettingService(t)
	ctx := context.Background()
	for _, tt := range tests {
		got, err := svc.SetTimeLimitMinutes(ctx, tt.in)
		if tt.wantErr {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("SetTimeLimitMinutes(%v) err = %v, want ValidationError", tt.in, err)
			}
			if stored, _ := svc.GetTimeLimitMinutes(ctx); stored != nil && *stored < 0 {
				t.Errorf("SetTimeLimitMinutes(%v) left negative limit %d", tt.in, *stored)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("SetTimeLimitMinutes(%v) = %d, %v; want %d", tt.in, got, err, tt.want)
			continue
		}
		stored, _ := svc.GetTimeLimitMinutes(ctx)
		if stored == nil || *stored != tt.want {
			t.Errorf("stored = %v, want %d", stored, tt.want)
		}
	}
}

func TestSetPassingThreshold(t *testing.T) {
	svc := newSettingService(t)
	ctx := context.Background()

	for _, bad := range []float64{-1, 100.5, 101} {
		if _, err := svc.SetPassingThreshold(ctx, bad); err == nil {
			t.Errorf("SetPassingThreshold(%v) accepted", bad)
		}
	}
	got, err := svc.SetPassingThreshold(ctx, 65.7)
	if err != nil || got != 65 {
		t.Fatalf("SetPassingThreshold(65.7) = %d, %v", got, err)
	}
	es, _ := svc.ExamSettings(ctx)
	if es.PassingThreshold != 65 {
		t.Errorf("PassingThreshold = %d, want 65", es.PassingThreshold)
	}

	// Zero is a legitimate stored threshold, distinct from unset.
	if _, err := svc.SetPassingThreshold(ctx, 0); err != nil {
		t.Fatal(err)
	}
	es, _ = svc.ExamSettings(ctx)
	if es.PassingThreshold != 0 {
		t.Errorf("PassingThreshold = %d, want 0", es.PassingThreshold)
	}
}

func TestSetExamTitle(t *testing.T) {
	svc := newSettingService(t)
	ctx := context.Background()

	if _, err := svc.SetExamTitle(ctx, "  "); err == nil {
		t.Error("blank title accepted")
	}
	if _, err := svc.SetExamTitle(ctx, " Midterm "); err != nil {
		t.Fatal(err)
	}
	title, _ := svc.GetExamTitle(ctx)
	if title != "Midterm" {
		t.Errorf("title = %q, want Midterm", title)
	}
}
