package exam

import "github.com/stemsi/quizdesk/internal/model"

// Score counts the questions whose answer equals the session's correct
// index. Both sides are canonical ChoiceIndex strings; unanswered questions
// never match.
func Score(questions []AttemptQuestion, answers model.AnswerMap) (score, total, percent int) {
	total = len(questions)
	for _, q := range questions {
		if a, ok := answers[q.Key()]; ok && a == q.Correct {
			score++
		}
	}
	return score, total, model.Percent(score, total)
}

// Passed reports whether percent meets threshold.
func Passed(percent, threshold int) bool {
	return percent >= threshold
}
