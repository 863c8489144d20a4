// Package client talks to the quizdesk REST API. The exam engine uses it to
// load the bank and settings and to submit results; quizctl uses the rest.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "api_client").Logger() }
}

// New returns a client for the server at baseURL, e.g. http://localhost:3001.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer credential.
func (c *Client) SetToken(token string) { c.token = token }

// ─── Questions ────────────────────────────────────────────────────────────────

func (c *Client) ListQuestions(ctx context.Context) ([]model.Question, error) {
	var out []model.Question
	if err := c.doJSON(ctx, "list questions", http.MethodGet, "/api/questions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateQuestion(ctx context.Context, req model.QuestionRequest) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, "create question", http.MethodPost, "/api/questions", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, req model.QuestionRequest) error {
	return c.doJSON(ctx, "update question", http.MethodPut, "/api/questions/"+strconv.FormatInt(id, 10), req, nil)
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete question", http.MethodDelete, "/api/questions/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ClearQuestions(ctx context.Context) (int64, error) {
	var out model.ClearResponse
	if err := c.doJSON(ctx, "clear questions", http.MethodPost, "/api/questions/clear-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ImportQuestions uploads a spreadsheet as the multipart field "file".
func (c *Client) ImportQuestions(ctx context.Context, filename string, r io.Reader, skipHeader bool) (*model.ImportReport, error) {
	const op = "import questions"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("%s: read file: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	path := "/api/questions/import"
	if skipHeader {
		path += "?skipHeader=true"
	}
	resp, err := c.do(ctx, op, http.MethodPost, path, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out model.ImportReport
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return &out, nil
}

// ─── Settings ─────────────────────────────────────────────────────────────────

// TimeLimit returns the stored limit in minutes, or nil when unset.
func (c *Client) TimeLimit(ctx context.Context) (*int, error) {
	var out struct {
		Minutes *int `json:"minutes"`
	}
	if err := c.doJSON(ctx, "get time limit", http.MethodGet, "/api/settings/time-limit", nil, &out); err != nil {
		return nil, err
	}
	return out.Minutes, nil
}

// PassingThreshold returns the stored threshold percent, or nil when unset.
func (c *Client) PassingThreshold(ctx context.Context) (*int, error) {
	var out struct {
		Percent *int `json:"percent"`
	}
	if err := c.doJSON(ctx, "get passing threshold", http.MethodGet, "/api/settings/passing-threshold", nil, &out); err != nil {
		return nil, err
	}
	return out.Percent, nil
}

func (c *Client) ExamTitle(ctx context.Context) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	if err := c.doJSON(ctx, "get exam title", http.MethodGet, "/api/settings/exam-title", nil, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}

// ExamSettings fetches all three settings and applies defaults: no limit and
// DefaultPassingThreshold.
func (c *Client) ExamSettings(ctx context.Context) (model.ExamSettings, error) {
	var es model.ExamSettings

	minutes, err := c.TimeLimit(ctx)
	if err != nil {
		return es, err
	}
	threshold, err := c.PassingThreshold(ctx)
	if err != nil {
		return es, err
	}
	title, err := c.ExamTitle(ctx)
	if err != nil {
		return es, err
	}

	if minutes != nil && *minutes > 0 {
		es.TimeLimitMinutes = *minutes
	}
	es.PassingThreshold = model.DefaultPassingThreshold
	if threshold != nil {
		es.PassingThreshold = *threshold
	}
	es.ExamTitle = title
	return es, nil
}

func (c *Client) SetTimeLimit(ctx context.Context, minutes float64) (int, error) {
	var out struct {
		Minutes int `json:"minutes"`
	}
	body := map[string]float64{"minutes": minutes}
	if err := c.doJSON(ctx, "set time limit", http.MethodPost, "/api/settings/time-limit", body, &out); err != nil {
		return 0, err
	}
	return out.Minutes, nil
}

func (c *Client) SetPassingThreshold(ctx context.Context, percent float64) (int, error) {
	var out struct {
		Percent int `json:"percent"`
	}
	body := map[string]float64{"percent": percent}
	if err := c.doJSON(ctx, "set passing threshold", http.MethodPost, "/api/settings/passing-threshold", body, &out); err != nil {
		return 0, err
	}
	return out.Percent, nil
}

func (c *Client) SetExamTitle(ctx context.Context, title string) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, "set exam title", http.MethodPost, "/api/settings/exam-title", body, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}

// ─── Results ──────────────────────────────────────────────────────────────────

// SubmitResult posts a finished attempt and returns its id. It satisfies
// exam.ResultSink.
func (c *Client) SubmitResult(ctx context.Context, req model.CreateResultRequest) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, "submit result", http.MethodPost, "/api/results", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) ListResults(ctx context.Context) ([]model.Result, error) {
	var out []model.Result
	if err := c.doJSON(ctx, "list results", http.MethodGet, "/api/results", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteResult(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "delete result", http.MethodDelete, "/api/results/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ClearResults(ctx context.Context) (int64, error) {
	var out model.ClearResponse
	if err := c.doJSON(ctx, "clear results", http.MethodPost, "/api/results/clear-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ExportResults streams the results workbook into w.
func (c *Client) ExportResults(ctx context.Context, w io.Writer) (int64, error) {
	const op = "export results"
	resp, err := c.do(ctx, op, http.MethodGet, "/api/results/export", "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: op, Err: err}
	}
	return n, nil
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

// Unlock exchanges the teacher PIN for an admin token. The client keeps the
// token for later requests.
func (c *Client) Unlock(ctx context.Context, pin string) (string, time.Time, error) {
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := c.doJSON(ctx, "unlock", http.MethodPost, "/api/auth/pin", model.PinRequest{PIN: pin}, &out); err != nil {
		return "", time.Time{}, err
	}
	c.token = out.Token
	return out.Token, out.ExpiresAt, nil
}

// ─── Plumbing ─────────────────────────────────────────────────────────────────

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do sends the request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(op, resp)
}

type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields"`
	RequestID string            `json:"request_id"`
}

func decodeError(op string, resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
		if eb.Error == "" {
			eb.Error = resp.Status
		}
	}

	if resp.StatusCode >= 500 {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(eb.Error)}
	}
	return &APIError{
		Op:        op,
		Status:    resp.StatusCode,
		Message:   eb.Error,
		Code:      eb.Code,
		Fields:    eb.Fields,
		RequestID: eb.RequestID,
	}
}
