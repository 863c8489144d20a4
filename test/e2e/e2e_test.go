//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stemsi/quizdesk/internal/client"
	"github.com/stemsi/quizdesk/internal/exam"
	"github.com/xuri/excelize/v2"
)

const (
	defaultBaseURL = "http://localhost:3001"
	defaultPIN     = "1317"
	studentName    = "E2E Student"
)

var (
	baseURL string
	pin     string
	api     *client.Client
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pin = os.Getenv("E2E_TEACHER_PIN")
	if pin == "" {
		pin = defaultPIN
	}
	api = client.New(baseURL)

	if err := resetServer(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// resetServer unlocks the teacher endpoints and empties the bank and the log.
func resetServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, _, err := api.Unlock(ctx, pin); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if _, err := api.ClearQuestions(ctx); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	if _, err := api.ClearResults(ctx); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}

func TestE2EFlow(t *testing.T) {
	ctx := context.Background()
	var resultID int64

	t.Run("ImportQuestions", func(t *testing.T) {
		rep, err := api.ImportQuestions(ctx, "bank.xlsx", bytes.NewReader(buildWorkbook(t)), true)
		if err != nil {
			t.Fatalf("import: %v", err)
		}
		if rep.Imported != 3 {
			t.Errorf("imported = %d, want 3", rep.Imported)
		}
		if len(rep.Errors) != 1 {
			t.Errorf("errors = %+v, want exactly one rejected row", rep.Errors)
		}
	})

	t.Run("Settings", func(t *testing.T) {
		if _, err := api.SetTimeLimit(ctx, 0); err != nil {
			t.Fatalf("time limit: %v", err)
		}
		if stored, err := api.SetPassingThreshold(ctx, 66.9); err != nil || stored != 66 {
			t.Fatalf("threshold = %d, %v; want 66", stored, err)
		}
		if _, err := api.SetExamTitle(ctx, "E2E Quiz"); err != nil {
			t.Fatalf("title: %v", err)
		}

		s, err := api.ExamSettings(ctx)
		if err != nil {
			t.Fatalf("settings: %v", err)
		}
		if s.TimeLimitMinutes != 0 || s.PassingThreshold != 66 || s.ExamTitle != "E2E Quiz" {
			t.Errorf("settings = %+v", s)
		}
	})

	t.Run("TakeExam", func(t *testing.T) {
		bank, err := api.ListQuestions(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		settings, err := api.ExamSettings(ctx)
		if err != nil {
			t.Fatalf("settings: %v", err)
		}

		engine := exam.NewEngine(api)
		qs, err := engine.Start(bank, studentName, settings)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		// Two of three correct rounds to 67%, over the truncated 66% threshold.
		for i, q := range qs {
			correct, ok := q.Correct.Int()
			if !ok {
				t.Fatalf("question %d has no correct choice", q.ID)
			}
			choice := correct
			if i == 0 {
				choice = (correct + 1) % len(q.Choices)
			}
			if err := engine.Answer(q.Key(), choice); err != nil {
				t.Fatalf("answer %d: %v", q.ID, err)
			}
		}

		sum, err := engine.Submit(ctx)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if sum.Score != 2 || sum.Total != 3 || sum.Percent != 67 || !sum.Passed {
			t.Errorf("summary = %+v", sum)
		}
		resultID = sum.ResultID
	})

	t.Run("ListResults", func(t *testing.T) {
		results, err := api.ListResults(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
		r := results[0]
		if r.ID != resultID || r.StudentName != studentName || r.Score != 2 || len(r.Answers) != 3 {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("ExportResults", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := api.ExportResults(ctx, &buf)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if n == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
			t.Errorf("export is not an xlsx archive (%d bytes)", n)
		}
	})

	t.Run("DeleteResult", func(t *testing.T) {
		if err := api.DeleteResult(ctx, resultID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		err := api.DeleteResult(ctx, resultID)
		if !client.IsStatus(err, http.StatusNotFound) {
			t.Errorf("second delete err = %v, want 404", err)
		}
	})
}

func TestWrongPINRejected(t *testing.T) {
	c := client.New(baseURL)
	_, _, err := c.Unlock(context.Background(), pin+"0")
	if !client.IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("err = %v, want 401", err)
	}
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Question", "A", "B", "C", "D", "Correct"},
		{"2 + 2 = ?", "3", "4", "5", "", 2},
		{"Capital of France?", "Paris", "Rome", "", "", 1},
		{},
		{"Largest planet?", "Mars", "Jupiter", "Venus", "Earth", 2},
		{"No choices here", "", "", "", "", 1},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

