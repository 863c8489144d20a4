package exam

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stemsi/quizdesk/internal/model"
)

func TestShuffle_PreservesCorrectAnswerText(t *testing.T) {
	bank := []model.Question{
		{ID: 1, Text: "a", Choices: []string{"w", "x", "y", "z"}, Correct: model.NewChoiceIndex(2)},
		{ID: 2, Text: "b", Choices: []string{"p", "q"}, Correct: model.NewChoiceIndex(0)},
		{ID: 3, Text: "c", Choices: []string{"r", "s", "t"}, Correct: model.NewChoiceIndex(1)},
	}
	want := map[int64]string{1: "y", 2: "p", 3: "s"}

	for seed := range uint64(50) {
		rng := rand.New(rand.NewPCG(seed, seed*31+1))
		got := Shuffle(bank, rng)
		if len(got) != len(bank) {
			t.Fatalf("seed %d: len = %d", seed, len(got))
		}
		seen := map[int64]bool{}
		for _, q := range got {
			seen[q.ID] = true
			idx, ok := q.Correct.Int()
			if !ok || idx < 0 || idx >= len(q.Choices) {
				t.Fatalf("seed %d: question %d correct = %q", seed, q.ID, q.Correct)
			}
			if q.Choices[idx] != want[q.ID] {
				t.Errorf("seed %d: question %d correct text = %q, want %q", seed, q.ID, q.Choices[idx], want[q.ID])
			}
		}
		if len(seen) != len(bank) {
			t.Errorf("seed %d: questions lost or duplicated: %v", seed, seen)
		}
	}
}

func TestShuffle_DoesNotMutateBank(t *testing.T) {
	bank := []model.Question{
		{ID: 1, Text: "a", Choices: []string{"w", "x", "y", "z"}, Correct: model.NewChoiceIndex(3)},
		{ID: 2, Text: "b", Choices: []string{"p", "q", "r"}, Correct: model.NewChoiceIndex(1)},
	}
	orig := []model.Question{
		{ID: 1, Text: "a", Choices: slices.Clone(bank[0].Choices), Correct: bank[0].Correct},
		{ID: 2, Text: "b", Choices: slices.Clone(bank[1].Choices), Correct: bank[1].Correct},
	}

	Shuffle(bank, rand.New(rand.NewPCG(3, 4)))

	for i := range bank {
		if bank[i].ID != orig[i].ID || bank[i].Correct != orig[i].Correct || !slices.Equal(bank[i].Choices, orig[i].Choices) {
			t.Errorf("bank[%d] changed: %+v, was %+v", i, bank[i], orig[i])
		}
	}
}

func TestShuffle_InvalidCorrectBecomesUnmatchable(t *testing.T) {
	tests := []struct {
		name    string
		correct model.ChoiceIndex
	}{
		{"out of range", model.NewChoiceIndex(5)},
		{"negative", model.NewChoiceIndex(-2)},
		{"not a number", model.ParseChoiceIndex("B")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := []model.Question{{ID: 1, Text: "a", Choices: []string{"x", "y"}, Correct: tt.correct}}
			got := Shuffle(bank, rand.New(rand.NewPCG(1, 1)))
			if got[0].Correct != "-1" {
				t.Errorf("correct = %q, want -1", got[0].Correct)
			}
			score, total, _ := Score(got, model.AnswerMap{"1": model.NewChoiceIndex(0)})
			if score != 0 || total != 1 {
				t.Errorf("score = %d/%d, want 0/1", score, total)
			}
		})
	}
}

// fixedSource always picks the lowest index.
type fixedSource struct{}

func (fixedSource) IntN(int) int { return 0 }

func TestShuffle_FisherYatesWithFixedSource(t *testing.T) {
	bank := []model.Question{
		{ID: 1, Choices: []string{"a", "b", "c"}, Correct: model.NewChoiceIndex(0)},
		{ID: 2, Choices: []string{"d"}, Correct: model.NewChoiceIndex(0)},
		{ID: 3, Choices: []string{"e", "f"}, Correct: model.NewChoiceIndex(1)},
	}
	got := Shuffle(bank, fixedSource{})

	// Swapping i with 0 for i=n-1..1 rotates [0 1 2] into [1 2 0].
	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	if !slices.Equal(ids, []int64{2, 3, 1}) {
		t.Errorf("order = %v, want [2 3 1]", ids)
	}
	q1 := got[2]
	if !slices.Equal(q1.Choices, []string{"b", "c", "a"}) || q1.Correct != "2" {
		t.Errorf("question 1 = %v correct %q", q1.Choices, q1.Correct)
	}
}

func TestScoreAndPassed(t *testing.T) {
	qs := []AttemptQuestion{
		{ID: 1, Correct: "0"},
		{ID: 2, Correct: "1"},
		{ID: 3, Correct: "2"},
	}
	tests := []struct {
		name        string
		answers     model.AnswerMap
		wantScore   int
		wantPercent int
	}{
		{"none", model.AnswerMap{}, 0, 0},
		{"one", model.AnswerMap{"1": "0", "2": "0"}, 1, 33},
		{"two", model.AnswerMap{"1": "0", "2": "1"}, 2, 67},
		{"all", model.AnswerMap{"1": "0", "2": "1", "3": "2"}, 3, 100},
		{"stray key ignored", model.AnswerMap{"9": "0"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, total, pct := Score(qs, tt.answers)
			if score != tt.wantScore || total != 3 || pct != tt.wantPercent {
				t.Errorf("got %d/%d %d%%, want %d/3 %d%%", score, total, pct, tt.wantScore, tt.wantPercent)
			}
		})
	}

	if !Passed(80, 80) || Passed(79, 80) || !Passed(0, 0) {
		t.Error("Passed threshold comparison is wrong")
	}
}
