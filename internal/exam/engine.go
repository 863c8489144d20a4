// Package exam runs a single student's exam attempt: randomized question
// set, answer tracking, the elapsed-time clock with timeout submission, and
// at-most-once result submission.
package exam

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

// State is the lifecycle position of the engine's session.
type State int

const (
	StateIdle State = iota
	StateActive
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ResultSink records a finished attempt and returns the stored result id.
type ResultSink interface {
	SubmitResult(ctx context.Context, req model.CreateResultRequest) (int64, error)
}

// Summary describes a successfully submitted attempt.
type Summary struct {
	SessionID        uuid.UUID `json:"sessionId"`
	ResultID         int64     `json:"resultId"`
	StudentName      string    `json:"studentName"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
	Percent          int       `json:"percent"`
	PassingThreshold int       `json:"passingThreshold"`
	Passed           bool      `json:"passed"`
	TimeSpent        int       `json:"timeSpent"`
	StartTime        time.Time `json:"startTime"`
	SubmitTime       time.Time `json:"submitTime"`
	AutoSubmitted    bool      `json:"autoSubmitted"`
}

// TickEvent is the outcome of one clock tick.
type TickEvent struct {
	State   State
	Elapsed int
	// Remaining is -1 when the session has no time limit.
	Remaining     int
	AutoSubmitted bool
	Summary       *Summary
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithRand(r Source) Option { return func(e *Engine) { e.rng = r } }

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "exam_engine").Logger() }
}

// Engine owns at most one session at a time. All methods are safe for
// concurrent use; the timer loop and the student may race to submit and
// exactly one of them wins.
type Engine struct {
	sink  ResultSink
	clock Clock
	rng   Source
	log   zerolog.Logger

	mu      sync.Mutex
	state   State
	session *session
	summary *Summary
}

type session struct {
	id        uuid.UUID
	student   string
	settings  model.ExamSettings
	questions []AttemptQuestion
	choices   map[string]int
	answers   model.AnswerMap
	startTime time.Time
	elapsed   int
	// autoFired is set once the timeout submission has been attempted.
	autoFired bool
}

type pendingSubmit struct {
	session *session
	req     model.CreateResultRequest
	score   int
	total   int
	percent int
	auto    bool
}

// NewEngine creates an idle engine that submits results to sink.
func NewEngine(sink ResultSink, opts ...Option) *Engine {
	e := &Engine{
		sink:  sink,
		clock: systemClock{},
		rng:   globalSource{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a session over a randomized copy of bank. The returned
// questions are fixed for the session's lifetime.
func (e *Engine) Start(bank []model.Question, studentName string, settings model.ExamSettings) ([]AttemptQuestion, error) {
	name := strings.TrimSpace(studentName)
	if name == "" {
		return nil, &ValidationError{Field: "studentName", Message: "student name is required"}
	}
	if len(bank) == 0 {
		return nil, &ValidationError{Field: "questions", Message: "question bank is empty"}
	}
	if settings.TimeLimitMinutes < 0 {
		settings.TimeLimitMinutes = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateActive:
		return nil, ErrSessionActive
	case StateSubmitting:
		return nil, ErrSubmitInProgress
	}

	questions := Shuffle(bank, e.rng)
	choices := make(map[string]int, len(questions))
	for _, q := range questions {
		choices[q.Key()] = len(q.Choices)
	}

	e.session = &session{
		id:        uuid.New(),
		student:   name,
		settings:  settings,
		questions: questions,
		choices:   choices,
		answers:   model.AnswerMap{},
		startTime: e.clock.Now(),
	}
	e.summary = nil
	e.state = StateActive

	e.log.Info().
		Str("session_id", e.session.id.String()).
		Str("student", name).
		Int("questions", len(questions)).
		Int("time_limit_minutes", settings.TimeLimitMinutes).
		Msg("exam started")

	return cloneQuestions(questions), nil
}

// Answer records choice for questionID, replacing any earlier choice.
func (e *Engine) Answer(questionID string, choice int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActiveLocked(); err != nil {
		return err
	}
	s := e.session
	if s.autoFired {
		return ErrTimeExpired
	}
	n, ok := s.choices[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if choice < 0 || choice >= n {
		return ErrChoiceOutOfRange
	}
	s.answers[questionID] = model.NewChoiceIndex(choice)
	return nil
}

// Tick recomputes elapsed time. When a positive time limit is first reached
// it submits the session; that attempt happens at most once per session.
func (e *Engine) Tick(ctx context.Context) (TickEvent, error) {
	e.mu.Lock()
	if e.state != StateActive {
		ev := e.tickEventLocked()
		e.mu.Unlock()
		return ev, nil
	}

	s := e.session
	s.elapsed = elapsedSeconds(s.startTime, e.clock.Now())
	ev := e.tickEventLocked()

	limit := LimitSeconds(s.settings.TimeLimitMinutes)
	if limit <= 0 || s.elapsed < limit || s.autoFired {
		e.mu.Unlock()
		return ev, nil
	}

	s.autoFired = true
	p := e.beginSubmitLocked(true)
	e.mu.Unlock()

	e.log.Info().
		Str("session_id", s.id.String()).
		Int("elapsed", ev.Elapsed).
		Msg("time limit reached, submitting")

	summary, err := e.finishSubmit(ctx, p)
	if err != nil {
		return ev, err
	}
	ev.State = StateSubmitted
	ev.AutoSubmitted = true
	ev.Summary = summary
	return ev, nil
}

// Submit scores the session and hands the result to the sink. Only one
// submission can be in flight; a failed one returns the session to active
// so it can be retried.
func (e *Engine) Submit(ctx context.Context) (*Summary, error) {
	e.mu.Lock()
	if err := e.requireActiveLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	p := e.beginSubmitLocked(false)
	e.mu.Unlock()

	return e.finishSubmit(ctx, p)
}

// Quit discards the session without recording anything. It is a no-op when
// idle and refused while a submission is in flight.
func (e *Engine) Quit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if e.session != nil && e.state == StateActive {
		e.log.Info().Str("session_id", e.session.id.String()).Msg("exam abandoned")
	}
	e.session = nil
	e.summary = nil
	e.state = StateIdle
	return nil
}

// Run ticks every interval until ctx is done or the session is submitted or
// discarded. onTick, if set, sees every tick outcome.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onTick func(TickEvent, error)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev, err := e.Tick(ctx)
			if onTick != nil {
				onTick(ev, err)
			}
			if st := e.State(); st == StateIdle || st == StateSubmitted {
				return
			}
		}
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Elapsed returns the seconds counted at the last tick or submission.
func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.elapsed
}

// Expired reports whether the time limit has been reached.
func (e *Engine) Expired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && e.session.autoFired
}

// Questions returns a copy of the session's question set.
func (e *Engine) Questions() []AttemptQuestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return cloneQuestions(e.session.questions)
}

// Answers returns a copy of the current answer map.
func (e *Engine) Answers() model.AnswerMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return maps.Clone(e.session.answers)
}

// Settings returns the settings the session was started with.
func (e *Engine) Settings() model.ExamSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return model.ExamSettings{}
	}
	return e.session.settings
}

// Summary returns the outcome of a submitted session, or nil.
func (e *Engine) Summary() *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary == nil {
		return nil
	}
	s := *e.summary
	return &s
}

func (e *Engine) requireActiveLocked() error {
	switch e.state {
	case StateActive:
		return nil
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNoSession
	}
}

// beginSubmitLocked snapshots the session and moves it to StateSubmitting.
// The caller holds e.mu and has checked the session is active.
func (e *Engine) beginSubmitLocked(auto bool) *pendingSubmit {
	s := e.session
	now := e.clock.Now()
	s.elapsed = elapsedSeconds(s.startTime, now)

	answers := maps.Clone(s.answers)
	score, total, percent := Score(s.questions, answers)
	start := s.startTime
	timeSpent := s.elapsed

	e.state = StateSubmitting
	return &pendingSubmit{
		session: s,
		req: model.CreateResultRequest{
			StudentName: s.student,
			Answers:     answers,
			Score:       score,
			Total:       total,
			StartTime:   &start,
			SubmitTime:  &now,
			TimeSpent:   &timeSpent,
		},
		score:   score,
		total:   total,
		percent: percent,
		auto:    auto,
	}
}

func (e *Engine) finishSubmit(ctx context.Context, p *pendingSubmit) (*Summary, error) {
	id, err := e.sink.SubmitResult(ctx, p.req)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = StateActive
		e.log.Warn().Err(err).
			Str("session_id", p.session.id.String()).
			Bool("auto", p.auto).
			Msg("result submission failed, session left open for retry")
		return nil, fmt.Errorf("submit result: %w", err)
	}

	threshold := p.session.settings.PassingThreshold
	summary := &Summary{
		SessionID:        p.session.id,
		ResultID:         id,
		StudentName:      p.session.student,
		Score:            p.score,
		Total:            p.total,
		Percent:          p.percent,
		PassingThreshold: threshold,
		Passed:           Passed(p.percent, threshold),
		TimeSpent:        *p.req.TimeSpent,
		StartTime:        *p.req.StartTime,
		SubmitTime:       *p.req.SubmitTime,
		AutoSubmitted:    p.auto,
	}
	e.summary = summary
	e.state = StateSubmitted

	e.log.Info().
		Str("session_id", p.session.id.String()).
		Int64("result_id", id).
		Int("score", p.score).
		Int("total", p.total).
		Bool("auto", p.auto).
		Msg("exam submitted")

	out := *summary
	return &out, nil
}

func (e *Engine) tickEventLocked() TickEvent {
	ev := TickEvent{State: e.state, Remaining: -1}
	if e.session == nil {
		return ev
	}
	ev.Elapsed = e.session.elapsed
	if limit := LimitSeconds(e.session.settings.TimeLimitMinutes); limit > 0 {
		ev.Remaining = max(limit-e.session.elapsed, 0)
	}
	return ev
}

// LimitSeconds converts a time limit in minutes to seconds. Non-positive
// limits yield 0 (unlimited); oversized ones are clamped to
// model.MaxTimeLimitMinutes.
func LimitSeconds(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return min(minutes, model.MaxTimeLimitMinutes) * 60
}

func elapsedSeconds(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func cloneQuestions(qs []AttemptQuestion) []AttemptQuestion {
	out := make([]AttemptQuestion, len(qs))
	for i, q := range qs {
		q.Choices = append([]string(nil), q.Choices...)
		out[i] = q
	}
	return out
}
