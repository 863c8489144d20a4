package exam

import (
	"math/rand/v2"
	"strconv"

	"github.com/stemsi/quizdesk/internal/model"
)

// AttemptQuestion is a bank question with its choices reordered for one
// session. Correct points into the reordered Choices, or is "-1" when the
// stored index was invalid.
type AttemptQuestion struct {
	ID      int64             `json:"id"`
	Text    string            `json:"text"`
	Choices []string          `json:"choices"`
	Correct model.ChoiceIndex `json:"-"`
}

// Key is the AnswerMap key for q.
func (q AttemptQuestion) Key() string {
	return strconv.FormatInt(q.ID, 10)
}

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Shuffle returns the bank in a uniformly random order with every question's
// choices independently permuted. bank and its choice slices are not modified.
func Shuffle(bank []model.Question, rng Source) []AttemptQuestion {
	if rng == nil {
		rng = globalSource{}
	}
	out := make([]AttemptQuestion, len(bank))
	for i, q := range bank {
		out[i] = shuffleChoices(q, rng)
	}
	fisherYates(len(out), rng, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func shuffleChoices(q model.Question, rng Source) AttemptQuestion {
	perm := make([]int, len(q.Choices))
	for i := range perm {
		perm[i] = i
	}
	fisherYates(len(perm), rng, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	orig, ok := q.Correct.Int()
	ok = ok && q.Correct.Valid(len(q.Choices))

	aq := AttemptQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Choices: make([]string, len(perm)),
		Correct: model.NewChoiceIndex(-1),
	}
	for newIdx, oldIdx := range perm {
		aq.Choices[newIdx] = q.Choices[oldIdx]
		if ok && oldIdx == orig {
			aq.Correct = model.NewChoiceIndex(newIdx)
		}
	}
	return aq
}

func fisherYates(n int, rng Source, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, rng.IntN(i+1))
	}
}
