package websocket

import "github.com/stemsi/quizdesk/internal/model"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventResultAppended Event = "result_appended"
	EventResultDeleted  Event = "result_deleted"
	EventResultsCleared Event = "results_cleared"
	EventError          Event = "error"
)

// FeedEvent is one message on the results feed.
type FeedEvent struct {
	Event  Event         `json:"event"`
	Result *model.Result `json:"result,omitempty"`
	ID     int64         `json:"id,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
