package webserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/events"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

type fakeSubmitter struct {
	categories []string
	outcome    nomination.Outcome
	got        []nomination.Request
	ledger     *db.Ledger
}

func (f *fakeSubmitter) Submit(ctx context.Context, req nomination.Request) nomination.Outcome {
	f.got = append(f.got, req)
	if f.ledger != nil {
		f.ledger.Append(ctx, db.NewSubmission(req, "fake-token", time.Now()))
	}
	return f.outcome
}

func (f *fakeSubmitter) FetchCategories(context.Context) []string {
	if f.categories == nil {
		return []string{}
	}
	return f.categories
}

func setupTestLedger(t *testing.T) *db.Ledger {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(d) })
	return db.NewLedger(d)
}

func seedSubmissions(t *testing.T, ledger *db.Ledger) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, nominee := range []string{"first", "second", "third"} {
		rec := db.NewSubmission(nomination.Request{NomineeFirst: nominee}, "tok-"+nominee, base.Add(time.Duration(i)*time.Hour))
		if _, err := ledger.Append(context.Background(), rec); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != healthMagic {
		t.Errorf("expected health magic, got %q", body["status"])
	}
}

func TestHandleCategories(t *testing.T) {
	s := New(&fakeSubmitter{categories: []string{"Entrepreneur", "Innovator"}}, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/categories", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Categories) != 2 || body.Categories[0] != "Entrepreneur" {
		t.Errorf("unexpected categories %v", body.Categories)
	}
}

func TestHandleCategoriesEmptyOnFailure(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/categories", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"categories":[]}` {
		t.Errorf("expected empty list, got %s", got)
	}
}

func TestHandleSubmit(t *testing.T) {
	fake := &fakeSubmitter{outcome: nomination.Outcome{Success: true, Sent: true, Detail: "Nomination submitted successfully. Response: 200"}}
	s := New(fake, setupTestLedger(t), nil, zap.NewNop())

	body := strings.NewReader(`{"nominator_first":"John","nominator_last":"Doe","category":"Entrepreneur","nominee_first":"Jane","nominee_last":"Smith","nominee_instagram":""}`)
	req := httptest.NewRequest("POST", "/api/submit", body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	json.NewDecoder(w.Body).Decode(&result)
	if !result.Success {
		t.Error("expected success")
	}
	if !strings.Contains(result.Message, "submitted") {
		t.Errorf("unexpected message %q", result.Message)
	}
	if len(fake.got) != 1 || fake.got[0].NomineeFirst != "Jane" || fake.got[0].Category != "Entrepreneur" {
		t.Errorf("request not passed through: %+v", fake.got)
	}
}

func TestHandleSubmitFailureIsStill200(t *testing.T) {
	fake := &fakeSubmitter{outcome: nomination.Outcome{Detail: "Failed to get form data", Failure: nomination.FailureExtraction}}
	s := New(fake, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/api/submit", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result nomination.Outcome
	json.NewDecoder(w.Body).Decode(&result)
	if result.Success {
		t.Error("expected failure verdict")
	}
	if result.Failure != nomination.FailureExtraction {
		t.Errorf("expected extraction failure, got %q", result.Failure)
	}
}

func TestHandleSubmitInvalidJSON(t *testing.T) {
	fake := &fakeSubmitter{}
	s := New(fake, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/api/submit", strings.NewReader(`not json`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}
	if len(fake.got) != 0 {
		t.Error("submitter should not be called on invalid body")
	}
}

func TestHandleSubmissions(t *testing.T) {
	ledger := setupTestLedger(t)
	seedSubmissions(t, ledger)
	s := New(&fakeSubmitter{}, ledger, nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/submissions", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Submissions []db.Submission `json:"submissions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Submissions) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(body.Submissions))
	}
	if body.Submissions[0].NomineeFirst != "third" {
		t.Errorf("expected newest first (third), got %q", body.Submissions[0].NomineeFirst)
	}
	if body.Submissions[0].Token != "tok-third" {
		t.Errorf("expected token 'tok-third', got %q", body.Submissions[0].Token)
	}
}

func TestEventsRouteDisabledWithoutBroker(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/events", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleSSEStreamsSubmissions(t *testing.T) {
	broker := events.NewBroker()
	s := New(&fakeSubmitter{}, setupTestLedger(t), broker, zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/events", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": keepalive") {
		t.Fatalf("expected keepalive, got %q (%v)", line, err)
	}
	reader.ReadString('\n')

	broker.PublishSubmission(db.Submission{ID: 7, Token: "streamed"})

	event, _ := reader.ReadString('\n')
	data, _ := reader.ReadString('\n')
	if strings.TrimSpace(event) != "event: new-submission" {
		t.Errorf("unexpected event line %q", event)
	}
	if !strings.Contains(data, `"token":"streamed"`) {
		t.Errorf("unexpected data line %q", data)
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	req := httptest.NewRequest("GET", "/api/submissions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected CORS methods header")
	}
}

func TestPreflight(t *testing.T) {
	s := New(&fakeSubmitter{}, setupTestLedger(t), nil, zap.NewNop())

	req := httptest.NewRequest("OPTIONS", "/api/submit", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}
