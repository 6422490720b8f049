// Package submitter runs the fetch-token, build, post, record pipeline for
// one nomination at a time.
package submitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/config"
	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/form"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
	"github.com/tejzpr/eloy-nominator/internal/payload"
)

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.5"
	fetchRetryDelay      = 500 * time.Millisecond
	maxResponseDrain     = 1 << 20
)

// Recorder appends submission attempts to durable storage.
type Recorder interface {
	Append(ctx context.Context, rec db.Submission) (uint, error)
}

// Client submits nominations. It holds no state between calls.
type Client struct {
	httpClient *http.Client
	fetcher    form.Fetcher
	builder    *payload.Builder
	ledger     Recorder
	logger     *zap.Logger

	submitURL     string
	origin        string
	userAgent     string
	fetchAttempts int

	now        func() time.Time
	onRecorded func(db.Submission)
}

// Option customizes a Client.
type Option func(*Client)

// WithClock overrides the clock used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRecordedHook registers fn to run after every successful ledger append.
func WithRecordedHook(fn func(db.Submission)) Option {
	return func(c *Client) { c.onRecorded = fn }
}

// New builds a Client posting with httpClient to cfg.SubmitURL.
func New(cfg config.Config, httpClient *http.Client, fetcher form.Fetcher, ledger Recorder, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:    httpClient,
		fetcher:       fetcher,
		builder:       payload.NewBuilder(),
		ledger:        ledger,
		logger:        log,
		submitURL:     cfg.SubmitURL,
		origin:        cfg.Origin,
		userAgent:     cfg.UserAgent,
		fetchAttempts: max(cfg.FetchAttempts, 1),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns the http.Client shared by the extractor and the
// submitter, with the configured timeout.
func NewHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// Submit runs one pipeline pass. It never returns an error; every failure
// is folded into the Outcome.
//
// A form-state failure ends the call with nothing recorded. Once a payload
// has been built the attempt is always recorded, whatever the POST did.
// Any HTTP response, including non-2xx, counts as sent.
func (c *Client) Submit(ctx context.Context, req nomination.Request) nomination.Outcome {
	log := c.logger.With(
		zap.String("attempt_id", uuid.NewString()),
		zap.String("category", req.Category),
	)

	state, err := c.fetchState(ctx, log)
	if err != nil {
		log.Warn("Form state unavailable", zap.Error(err))
		return nomination.Outcome{
			Detail:  fmt.Sprintf("Failed to get form data: %v", err),
			Failure: nomination.FailureExtraction,
		}
	}

	fields := c.builder.Build(req, state)

	status, postErr := c.post(ctx, state.PageURL, fields)

	// Record even when ctx was cancelled during the POST.
	recordCtx := context.WithoutCancel(ctx)
	rec := db.NewSubmission(req, state.Token, c.now())
	id, recErr := c.ledger.Append(recordCtx, rec)
	if recErr == nil {
		rec.ID = id
		if c.onRecorded != nil {
			c.onRecorded(rec)
		}
	}

	out := nomination.Outcome{RecordID: id, Token: state.Token}
	switch {
	case postErr != nil:
		out.Failure = nomination.FailureTransport
		out.Detail = fmt.Sprintf("Submission failed: %v", postErr)
		if recErr != nil {
			out.Detail += fmt.Sprintf("; attempt not recorded: %v", recErr)
		}
		log.Error("Submission transport failed", zap.Error(postErr), zap.NamedError("record_error", recErr))
	case recErr != nil:
		out.Sent = true
		out.Failure = nomination.FailureStorage
		out.Detail = fmt.Sprintf("Nomination sent (response %d) but not recorded: %v", status, recErr)
		log.Error("Submission sent but not recorded", zap.Int("status", status), zap.Error(recErr))
	default:
		out.Success = true
		out.Sent = true
		out.Detail = fmt.Sprintf("Nomination submitted successfully. Response: %d", status)
		log.Info("Nomination submitted", zap.Int("status", status), zap.Uint("record_id", id))
	}
	return out
}

// FetchCategories returns the category values from a fresh fetch, or an
// empty slice when the page cannot be read.
func (c *Client) FetchCategories(ctx context.Context) []string {
	state, err := c.fetcher.FetchFormState(ctx)
	if err != nil {
		c.logger.Warn("Category fetch failed", zap.Error(err))
		return []string{}
	}
	return state.CategoryValues()
}

// Preview fetches fresh form state and builds the payload without sending it.
func (c *Client) Preview(ctx context.Context, req nomination.Request) (*form.FormState, payload.FieldMap, http.Header, error) {
	state, err := c.fetcher.FetchFormState(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return state, c.builder.Build(req, state), c.headers(state.PageURL), nil
}

func (c *Client) fetchState(ctx context.Context, log *zap.Logger) (*form.FormState, error) {
	var lastErr error
	for attempt := 1; attempt <= c.fetchAttempts; attempt++ {
		state, err := c.fetcher.FetchFormState(ctx)
		if err == nil {
			return state, nil
		}
		lastErr = err
		if attempt == c.fetchAttempts {
			break
		}
		log.Debug("Retrying form fetch", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", nomination.ErrExtraction, ctx.Err())
		case <-time.After(fetchRetryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, pageURL string, fields payload.FieldMap) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, strings.NewReader(fields.Values().Encode()))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", nomination.ErrTransport, err)
	}
	req.Header = c.headers(pageURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", nomination.ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))

	return resp.StatusCode, nil
}

func (c *Client) headers(pageURL string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", c.userAgent)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Referer", pageURL)
	h.Set("Origin", c.origin)
	h.Set("Accept", acceptHeader)
	h.Set("Accept-Language", acceptLanguageHeader)
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}
