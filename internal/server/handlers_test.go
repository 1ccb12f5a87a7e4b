package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/auth"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/embedding"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/generate"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/retrieval"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

const testToken = "secret-token"

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "feedback.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index, err := vector.OpenPersistent(filepath.Join(dir, "feedback.idx"), 32)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })
	kw, err := keyword.NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	orch := retrieval.NewOrchestrator(embedding.NewHashEmbedder(32), index, store, generate.NewTemplateGenerator(),
		retrieval.WithKeywordIndex(kw))
	opts = append([]Option{
		WithKeywordIndex(kw),
		WithVerifier(auth.NewStaticVerifier([]string{testToken}), false),
		WithDataPaths(storage.DataPaths{Database: filepath.Join(dir, "feedback.db")}),
	}, opts...)
	return NewServer(orch, store, index, &config.ServerConfig{Port: 8000}, zap.NewNop(), opts...).Router()
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func submit(t *testing.T, h http.Handler, path, district, service, text string) models.SubmitResult {
	t.Helper()
	w := do(t, h, http.MethodPost, path, testToken, models.FeedbackInput{
		DistrictName: district, ServiceType: service, UserFeedback: text,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}
	var res models.SubmitResult
	decode(t, w, &res)
	return res
}

func TestHandleRoot(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/", "", nil)
	var out map[string]string
	decode(t, w, &out)
	if w.Code != http.StatusOK || out["message"] != "Public Services Feedback Analysis API" {
		t.Errorf("got %d %v", w.Code, out)
	}
}

func TestHandleSubmit_auth(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name, token, want string
	}{
		{"missing", "", "Missing Bearer token"},
		{"wrong", "nope", "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/submit_feedback/", tt.token, `{}`)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", w.Code)
			}
			var out map[string]string
			decode(t, w, &out)
			if out["detail"] != tt.want || out["error"] != tt.want {
				t.Errorf("body = %v, want %q", out, tt.want)
			}
		})
	}
}

func TestHandleSubmit_storesAndReturnsResponse(t *testing.T) {
	h := newTestServer(t)
	first := submit(t, h, "/submit_feedback/", "Pune", "Healthcare", "The clinic opened late")
	if first.ID == "" || first.Response == "" {
		t.Fatalf("result = %+v", first)
	}
	if len(first.SimilarIDs) != 0 {
		t.Errorf("first submission should have no similar feedback, got %v", first.SimilarIDs)
	}
	second := submit(t, h, "/submit_feedback", "Pune", "Healthcare", "The clinic opened late again")
	if len(second.SimilarIDs) != 1 || second.SimilarIDs[0] != first.ID {
		t.Errorf("similar = %v, want [%s]", second.SimilarIDs, first.ID)
	}

	w := do(t, h, http.MethodGet, "/api/v1/feedback/"+first.ID, testToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var rec map[string]interface{}
	decode(t, w, &rec)
	if rec["user_feedback"] != "The clinic opened late" || rec["source"] != "api" {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["embedding"]; ok {
		t.Error("embedding should not be serialized")
	}

	if w := do(t, h, http.MethodGet, "/api/v1/feedback/missing", testToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d", w.Code)
	}
}

func TestHandleSubmit_badInput(t *testing.T) {
	h := newTestServer(t)
	if w := do(t, h, http.MethodPost, "/submit_feedback/", testToken, `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", w.Code)
	}
	w := do(t, h, http.MethodPost, "/submit_feedback/", testToken, models.FeedbackInput{DistrictName: "Pune", UserFeedback: "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "service_type") {
		t.Errorf("body should name the missing field: %s", w.Body.String())
	}
}

func TestHandleSummary(t *testing.T) {
	h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/summary/Pune/Water", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]string
	decode(t, w, &out)
	if out["detail"] != "No feedbacks found" {
		t.Errorf("detail = %q", out["detail"])
	}

	submit(t, h, "/submit_feedback/", "Pune", "Water", "Tap water is muddy")
	submit(t, h, "/submit_feedback/", "Pune", "Water", "Low pressure every evening")
	w = do(t, h, http.MethodGet, "/summary/Pune/Water", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var sum models.SummaryResult
	decode(t, w, &sum)
	if sum.Summary == "" || sum.FeedbackCount != 2 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestHandleSummary_requiresTokenWhenConfigured(t *testing.T) {
	h := newTestServer(t, WithVerifier(auth.NewStaticVerifier([]string{testToken}), true))
	if w := do(t, h, http.MethodGet, "/summary/Pune/Water", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/summary/Pune/Water", testToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleSearchAndStatus(t *testing.T) {
	h := newTestServer(t)
	submit(t, h, "/submit_feedback/", "Nagpur", "Transport", "The bus driver was rude")
	submit(t, h, "/submit_feedback/", "Nagpur", "Roads", "Potholes on the ring road")

	w := do(t, h, http.MethodGet, "/api/v1/feedback/search?q=driver&district=Nagpur", testToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if len(resp.Hits) != 1 || resp.Hits[0].Record.ServiceType != "Transport" {
		t.Errorf("hits = %+v", resp.Hits)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/feedback/search?q=", testToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/feedback/search?q=x&limit=many", testToken, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/status", testToken, nil)
	var st models.Status
	decode(t, w, &st)
	if st.Records != 2 || st.IndexSize != 2 || !st.IndexInSync || st.IndexDimensions != 32 || st.KeywordDocs != 2 {
		t.Errorf("status = %+v", st)
	}
	if st.Disk.Database <= 0 || st.Disk.Total != st.Disk.Database {
		t.Errorf("disk usage = %+v", st.Disk)
	}
}

func TestHandleListFeedback(t *testing.T) {
	h := newTestServer(t)
	var ids []string
	for _, text := range []string{"first complaint", "second complaint", "third complaint"} {
		ids = append(ids, submit(t, h, "/submit_feedback", "Pune", "Water", text).ID)
	}

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []string
		wantLim  int
	}{
		{"defaults newest first", "", http.StatusOK, []string{ids[2], ids[1], ids[0]}, defaultPageSize},
		{"offset and limit", "?offset=1&limit=1", http.StatusOK, []string{ids[1]}, 1},
		{"limit capped", "?limit=1000", http.StatusOK, []string{ids[2], ids[1], ids[0]}, maxPageSize},
		{"past the end", "?offset=10", http.StatusOK, []string{}, defaultPageSize},
		{"bad limit", "?limit=ten", http.StatusBadRequest, nil, 0},
		{"negative offset", "?offset=-1", http.StatusBadRequest, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/feedback"+tt.query, testToken, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var page models.FeedbackPage
			decode(t, w, &page)
			got := make([]string, 0, len(page.Records))
			for _, rec := range page.Records {
				got = append(got, rec.ID)
			}
			if !reflect.DeepEqual(got, tt.wantIDs) || page.Total != 3 || page.Limit != tt.wantLim {
				t.Errorf("page = ids %v total %d limit %d, want ids %v total 3 limit %d",
					got, page.Total, page.Limit, tt.wantIDs, tt.wantLim)
			}
		})
	}

	if w := do(t, h, http.MethodGet, "/api/v1/feedback", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("without token status = %d, want 401", w.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name        string
		method      string
		path        string
		headers     map[string]string
		wantCode    int
		wantOrigin  string
		wantMethods string
		wantHeaders string
		wantMaxAge  string
	}{
		{
			name:   "preflight skips auth",
			method: http.MethodOptions,
			path:   "/submit_feedback/",
			headers: map[string]string{
				"Origin":                         "https://portal.example",
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "authorization,content-type",
			},
			wantCode:    http.StatusOK,
			wantOrigin:  "*",
			wantMethods: "POST",
			wantHeaders: "Authorization, Content-Type",
			wantMaxAge:  "600",
		},
		{
			name:       "simple request",
			method:     http.MethodGet,
			path:       "/health",
			headers:    map[string]string{"Origin": "https://portal.example"},
			wantCode:   http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:     "no origin",
			method:   http.MethodGet,
			path:     "/health",
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			checks := map[string]string{
				"Access-Control-Allow-Origin":  tt.wantOrigin,
				"Access-Control-Allow-Methods": tt.wantMethods,
				"Access-Control-Allow-Headers": tt.wantHeaders,
				"Access-Control-Max-Age":       tt.wantMaxAge,
			}
			for header, want := range checks {
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

type failingFeedback struct {
	err    error
	stored *models.SubmitResult
}

func (f failingFeedback) Submit(context.Context, models.FeedbackInput) (*models.SubmitResult, error) {
	return f.stored, f.err
}

func (f failingFeedback) Summarize(context.Context, string, string) (*models.SummaryResult, error) {
	return nil, f.err
}

func TestHandlers_generationFailure(t *testing.T) {
	index, _ := vector.OpenPersistent("", 4)
	srv := NewServer(failingFeedback{err: fmt.Errorf("%w: quota exceeded", generate.ErrGeneration)},
		nil, index, &config.ServerConfig{}, nil)
	h := srv.Router()

	w := do(t, h, http.MethodPost, "/submit_feedback/", "", models.FeedbackInput{})
	var out map[string]string
	decode(t, w, &out)
	if w.Code != http.StatusInternalServerError || !strings.HasPrefix(out["detail"], "Feedback processing failed: ") {
		t.Errorf("submit = %d %v", w.Code, out)
	}
	if _, ok := out["id"]; ok {
		t.Errorf("unexpected id in %v", out)
	}

	w = do(t, h, http.MethodGet, "/summary/a/b", "", nil)
	out = nil
	decode(t, w, &out)
	if w.Code != http.StatusInternalServerError || !strings.HasPrefix(out["detail"], "Summary generation failed: ") {
		t.Errorf("summary = %d %v", w.Code, out)
	}
}

func TestHandleSubmit_storedButNotPersisted(t *testing.T) {
	index, _ := vector.OpenPersistent("", 4)
	fb := failingFeedback{
		err:    fmt.Errorf("failed to index feedback rec-9: %w", vector.ErrPersistBehind),
		stored: &models.SubmitResult{ID: "rec-9", Response: "Thank you"},
	}
	h := NewServer(fb, nil, index, &config.ServerConfig{}, nil).Router()

	w := do(t, h, http.MethodPost, "/submit_feedback/", "", models.FeedbackInput{})
	var out map[string]string
	decode(t, w, &out)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if out["id"] != "rec-9" || !strings.Contains(out["detail"], "persistence is behind") {
		t.Errorf("body = %v", out)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", vector.ErrDimensionMismatch), http.StatusBadRequest},
		{fmt.Errorf("x: %w", vector.ErrNonFiniteVector), http.StatusBadRequest},
		{fmt.Errorf("x: %w", retrieval.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", vector.ErrPersistBehind), http.StatusInternalServerError},
		{embedding.ErrModelUnavailable, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
