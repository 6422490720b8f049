// Package form fetches the nomination page and extracts the short-lived
// token and category state needed to submit it.
package form

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/config"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

const (
	formIDSelector   = `input[name="wpforms[id]"]`
	categorySelector = "select#wpforms-4045-field_12 option"
	maxPageBytes     = 10 << 20
)

var (
	tokenTimePattern = regexp.MustCompile(`data-token-time="(\d+)"`)
	tokenPattern     = regexp.MustCompile(`data-token="([^"]+)"`)
)

// Fetcher returns a fresh FormState.
type Fetcher interface {
	FetchFormState(ctx context.Context) (*FormState, error)
}

// Extractor fetches the live form page over HTTP.
type Extractor struct {
	client    *http.Client
	pageURL   string
	userAgent string
	decorate  bool
	maxBytes  int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewExtractor creates an Extractor for cfg.FormURL using client.
func NewExtractor(cfg config.Config, client *http.Client, log *zap.Logger) *Extractor {
	return &Extractor{
		client:    client,
		pageURL:   cfg.FormURL,
		userAgent: cfg.UserAgent,
		decorate:  !cfg.DisableTrackingParam,
		maxBytes:  maxPageBytes,
		logger:    log,
		now:       time.Now,
	}
}

// FetchFormState performs one GET of the form page. Any failure is returned
// wrapped in nomination.ErrExtraction and no partial state is returned.
func (e *Extractor) FetchFormState(ctx context.Context) (*FormState, error) {
	pageURL, err := e.targetURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nomination.ErrExtraction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", nomination.ErrExtraction, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch form page: %w", nomination.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d", nomination.ErrExtraction, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read form page: %w", nomination.ErrExtraction, err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, fmt.Errorf("%w: form page exceeds %d bytes", nomination.ErrExtraction, e.maxBytes)
	}

	state, err := Parse(body, pageURL, e.now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Fetched form state",
		zap.String("url", pageURL),
		zap.String("form_id", state.FormID),
		zap.Int64("token_time", state.TokenTime),
		zap.Int("categories", len(state.Categories)),
	)
	return state, nil
}

func (e *Extractor) targetURL() (string, error) {
	if !e.decorate {
		return e.pageURL, nil
	}
	u, err := url.Parse(e.pageURL)
	if err != nil {
		return "", fmt.Errorf("parse form url: %w", err)
	}
	q := u.Query()
	q.Set("fbclid", trackingID())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse extracts a FormState from raw page markup, applying the named
// fallbacks for any value the page does not carry.
func Parse(body []byte, pageURL string, now time.Time) (*FormState, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse form page: %w", nomination.ErrExtraction, err)
	}

	state := &FormState{
		FormID:     DefaultFormID,
		PageURL:    pageURL,
		Categories: []Category{},
	}

	if id, ok := doc.Find(formIDSelector).First().Attr("value"); ok && id != "" {
		state.FormID = id
	}

	state.TokenTime = now.Unix()
	if raw, ok := findAttr(doc, body, "data-token-time", tokenTimePattern); ok {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			state.TokenTime = ts
		}
	}

	if token, ok := findAttr(doc, body, "data-token", tokenPattern); ok && token != "" {
		state.Token = token
	} else {
		state.Token = GenerateToken()
	}

	doc.Find(categorySelector).Each(func(_ int, opt *goquery.Selection) {
		label := strings.TrimSpace(opt.Text())
		value, ok := opt.Attr("value")
		if !ok {
			value = label
		}
		state.Categories = append(state.Categories, Category{Label: label, Value: value})
	})

	return state, nil
}

// findAttr looks for attr on any element, then falls back to a raw markup
// match so tokens emitted inside inline scripts are still found.
func findAttr(doc *goquery.Document, body []byte, attr string, pattern *regexp.Regexp) (string, bool) {
	if v, ok := doc.Find("[" + attr + "]").First().Attr(attr); ok && v != "" {
		return v, true
	}
	if m := pattern.FindSubmatch(body); m != nil {
		return string(m[1]), true
	}
	return "", false
}
