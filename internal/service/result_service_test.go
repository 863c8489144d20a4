package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/i18n"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/xuri/excelize/v2"
)

type recordingNotifier struct {
	appended []model.Result
	deleted  []int64
	cleared  int
}

func (n *recordingNotifier) ResultAppended(res model.Result) { n.appended = append(n.appended, res) }
func (n *recordingNotifier) ResultDeleted(id int64)          { n.deleted = append(n.deleted, id) }
func (n *recordingNotifier) ResultsCleared()                 { n.cleared++ }

func newResultService(t *testing.T, lang string) (*ResultService, *recordingNotifier) {
	t.Helper()
	tr, err := i18n.New(lang)
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	n := &recordingNotifier{}
	svc := NewResultService(repository.NewResultRepository(newTestDB(t)), n, tr, time.UTC, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return svc, n
}

func TestAppendComputesPercent(t *testing.T) {
	svc, n := newResultService(t, "en")
	ctx := context.Background()

	tests := []struct {
		score, total, want int
	}{
		{1, 2, 50},
		{2, 3, 67},
		{1, 3, 33},
		{0, 0, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		res, err := svc.Append(ctx, model.CreateResultRequest{StudentName: "Vy", Score: tt.score, Total: tt.total})
		if err != nil {
			t.Fatalf("Append(%d/%d): %v", tt.score, tt.total, err)
		}
		if res.Percent != tt.want {
			t.Errorf("Percent(%d/%d) = %d, want %d", tt.score, tt.total, res.Percent, tt.want)
		}
	}
	if len(n.appended) != len(tests) {
		t.Errorf("notifier saw %d appends, want %d", len(n.appended), len(tests))
	}
}

func TestAppendValidation(t *testing.T) {
	svc, n := newResultService(t, "en")
	ctx := context.Background()

	for _, req := range []model.CreateResultRequest{
		{StudentName: "  ", Score: 1, Total: 1},
		{StudentName: "A", Score: 3, Total: 2},
		{StudentName: "A", Score: -1, Total: 2},
	} {
		_, err := svc.Append(ctx, req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Append(%+v) err = %v, want ValidationError", req, err)
		}
	}
	if len(n.appended) != 0 {
		t.Errorf("notifier saw %d appends for rejected input", len(n.appended))
	}
}

func TestResultDeleteAndClear(t *testing.T) {
	svc, n := newResultService(t, "en")
	ctx := context.Background()

	res, err := svc.Append(ctx, model.CreateResultRequest{StudentName: "Khoa", Score: 1, Total: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Append(ctx, model.CreateResultRequest{StudentName: "Linh", Score: 0, Total: 1}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, res.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, res.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("second Delete err = %v, want ErrResultNotFound", err)
	}
	deleted, err := svc.ClearAll(ctx)
	if err != nil || deleted != 1 {
		t.Errorf("ClearAll = %d, %v; want 1", deleted, err)
	}
	if len(n.deleted) != 1 || n.cleared != 1 {
		t.Errorf("notifier deleted=%v cleared=%d", n.deleted, n.cleared)
	}
}

func TestExportLocalizedHeaders(t *testing.T) {
	svc, _ := newResultService(t, "vi")
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 9, 20, 0, 0, time.UTC)
	spent := 600
	if _, err := svc.Append(ctx, model.CreateResultRequest{
		StudentName: "Mai", Score: 3, Total: 4, StartTime: &start, TimeSpent: &spent,
	}); err != nil {
		t.Fatal(err)
	}

	buf := new(bytes.Buffer)
	if err := svc.Export(ctx, buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Kết quả")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if rows[0][0] != "Tên" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"Mai", "01/06/2024", "09:20:00", "N/A", "600", "3", "75"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("row[%d] = %q, want %q", i, rows[1][i], v)
		}
	}
}
