package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/stemsi/quizdesk/internal/sheet"
)

func newQuestionService(t *testing.T) *QuestionService {
	t.Helper()
	return NewQuestionService(repository.NewQuestionRepository(newTestDB(t)), nil, zerolog.Nop())
}

func TestImportRowIsolation(t *testing.T) {
	svc := newQuestionService(t)
	ctx := context.Background()

	buf := xlsx(t, [][]any{
		{"Q1", "a", "b", "", "", 1},
		{"Q2", "a", "b", "c", "", 3},
		{"Q3", "a", "b", "", "", 5},
		{"Q4", "a", "b", "c", "d", 4},
		{"Q5", "a", "b", "", "", "2"},
	})

	report, err := svc.Import(ctx, buf, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 4 {
		t.Errorf("Imported = %d, want 4", report.Imported)
	}
	if len(report.Errors) != 1 || report.Errors[0].Row != 3 {
		t.Fatalf("Errors = %+v, want one error on row 3", report.Errors)
	}
	if want := "Correct answer must be between 1 and 2 (Column F)"; report.Errors[0].Message != want {
		t.Errorf("message = %q, want %q", report.Errors[0].Message, want)
	}

	// Every insert has landed by the time Import returns.
	questions, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("stored %d questions, want 4", len(questions))
	}
	if questions[1].Text != "Q2" || questions[1].Correct != "2" {
		t.Errorf("Q2 stored as %+v, want correct 2 (0-based)", questions[1])
	}
}

func TestImportRowValidation(t *testing.T) {
	svc := newQuestionService(t)

	buf := xlsx(t, [][]any{
		{"Text", "A", "B", "C", "D", "Correct"},
		{"", "a", "b", "", "", 1},
		{"Only one", "a", "", "", "", 1},
		{},
		{"Gaps", "", "x", "", "y", 2},
		{"Bad number", "a", "b", "", "", "abc"},
	})

	report, err := svc.Import(context.Background(), buf, true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Imported != 1 {
		t.Errorf("Imported = %d, want 1", report.Imported)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}

	want := map[int]string{
		2: "Question text required (Column A)",
		3: "At least 2 choices required (Columns B-E)",
		6: "Correct answer must be between 1 and 2 (Column F)",
	}
	if len(report.Errors) != len(want) {
		t.Fatalf("Errors = %+v", report.Errors)
	}
	for _, e := range report.Errors {
		if want[e.Row] != e.Message {
			t.Errorf("row %d: message %q, want %q", e.Row, e.Message, want[e.Row])
		}
	}
}

func TestImportUnreadableFile(t *testing.T) {
	svc := newQuestionService(t)
	_, err := svc.Import(context.Background(), strings.NewReader("not a workbook"), false)
	if !errors.Is(err, sheet.ErrUnreadable) {
		t.Fatalf("err = %v, want sheet.ErrUnreadable", err)
	}
}

func TestParseImportRow(t *testing.T) {
	tests := []struct {
		name    string
		cells   []string
		correct model.ChoiceIndex
		choices int
		wantErr bool
		blank   bool
	}{
		{name: "blank", cells: []string{"", "", ""}, blank: true},
		{name: "empty", cells: nil, blank: true},
		{name: "four choices", cells: []string{"Q", "a", "b", "c", "d", "4"}, correct: "3", choices: 4},
		{name: "decimal cell", cells: []string{"Q", "a", "b", "", "", "2.0"}, correct: "1", choices: 2},
		{name: "zero", cells: []string{"Q", "a", "b", "", "", "0"}, wantErr: true},
		{name: "missing correct", cells: []string{"Q", "a", "b"}, wantErr: true},
		{name: "negative", cells: []string{"Q", "a", "b", "", "", "-1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, rowErr := parseImportRow(tt.cells)
			switch {
			case tt.blank:
				if q != nil || rowErr != nil {
					t.Fatalf("got %v, %v; want blank", q, rowErr)
				}
			case tt.wantErr:
				if rowErr == nil {
					t.Fatalf("expected row error, got %+v", q)
				}
			default:
				if rowErr != nil {
					t.Fatalf("unexpected error %v", rowErr)
				}
				if q.Correct != tt.correct || len(q.Choices) != tt.choices {
					t.Errorf("got %+v", q)
				}
			}
		})
	}
}

func TestQuestionCRUD(t *testing.T) {
	svc := newQuestionService(t)
	ctx := context.Background()

	q, err := svc.Create(ctx, model.QuestionRequest{Text: " Sky colour? ", Choices: []string{"red", "blue"}, Correct: "1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if q.Text != "Sky colour?" {
		t.Errorf("Text = %q, want trimmed", q.Text)
	}

	if err := svc.Update(ctx, q.ID, model.QuestionRequest{Text: "Grass colour?", Choices: []string{"green", "pink"}, Correct: "0"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Update(ctx, q.ID+100, model.QuestionRequest{Text: "x", Choices: []string{"a"}, Correct: "0"}); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("Update unknown err = %v, want ErrQuestionNotFound", err)
	}
	if err := svc.Delete(ctx, q.ID+100); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("Delete unknown err = %v, want ErrQuestionNotFound", err)
	}

	n, err := svc.ClearAll(ctx)
	if err != nil || n != 1 {
		t.Errorf("ClearAll = %d, %v; want 1", n, err)
	}
}

func TestQuestionValidation(t *testing.T) {
	svc := newQuestionService(t)
	tests := []struct {
		name  string
		req   model.QuestionRequest
		field string
	}{
		{"blank text", model.QuestionRequest{Text: "   ", Choices: []string{"a", "b"}, Correct: "0"}, "text"},
		{"correct out of range", model.QuestionRequest{Text: "q", Choices: []string{"a", "b"}, Correct: "2"}, "correct"},
		{"correct not a number", model.QuestionRequest{Text: "q", Choices: []string{"a", "b"}, Correct: "b"}, "correct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

type countingCache struct {
	stored      []model.Question
	hits, sets  int
	invalidated int
}

func (c *countingCache) Get(context.Context) ([]model.Question, bool) {
	if c.stored == nil {
		return nil, false
	}
	c.hits++
	return c.stored, true
}
func (c *countingCache) Set(_ context.Context, q []model.Question) { c.stored = q; c.sets++ }
func (c *countingCache) Invalidate(context.Context)               { c.stored = nil; c.invalidated++ }

func TestQuestionListUsesCache(t *testing.T) {
	qc := &countingCache{}
	svc := NewQuestionService(repository.NewQuestionRepository(newTestDB(t)), qc, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	if qc.sets != 1 || qc.hits != 1 {
		t.Errorf("sets=%d hits=%d, want 1 and 1", qc.sets, qc.hits)
	}

	if _, err := svc.Create(ctx, model.QuestionRequest{Text: "q", Choices: []string{"a", "b"}, Correct: "0"}); err != nil {
		t.Fatal(err)
	}
	if qc.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", qc.invalidated)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Errorf("List after create = %d items, want 1", len(list))
	}
}
