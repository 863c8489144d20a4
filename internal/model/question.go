package model

// Question is a multiple-choice question in the bank. Correct indexes into
// Choices in their stored order.
type Question struct {
	ID      int64       `json:"id"`
	Text    string      `json:"text"`
	Choices []string    `json:"choices"`
	Correct ChoiceIndex `json:"correct"`
}

// QuestionRequest is the payload for creating or replacing a question.
type QuestionRequest struct {
	Text    string      `json:"text" binding:"required,notblank,max=4000"`
	Choices []string    `json:"choices" binding:"required,max=26"`
	Correct ChoiceIndex `json:"correct"`
}

// ImportRowError describes why one spreadsheet row was rejected.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e ImportRowError) Error() string {
	return e.Message
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}
