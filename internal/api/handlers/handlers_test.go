package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/auth"
	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/extract"
	bq "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
	"github.com/dvloznov/ledgerchat/internal/jobs"
	"github.com/dvloznov/ledgerchat/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerchat/internal/logger"
)

var testLog = logger.NewWithWriter(io.Discard)

type mockUserStore struct {
	insertFn func(ctx context.Context, row *bq.UserRow) error
	findFn   func(ctx context.Context, email string) (*bq.UserRow, error)
}

func (m *mockUserStore) InsertUser(ctx context.Context, row *bq.UserRow) error {
	return m.insertFn(ctx, row)
}

func (m *mockUserStore) FindUserByEmail(ctx context.Context, email string) (*bq.UserRow, error) {
	return m.findFn(ctx, email)
}

type mockSessionStore struct {
	sessions map[string]*domain.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) InsertSession(ctx context.Context, session *domain.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) ResolveSession(ctx context.Context, sessionID string) (*domain.User, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, bq.ErrNotFound
	}
	return &domain.User{ID: session.UserID}, nil
}

func (m *mockSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

type mockTransactionStore struct {
	insertFn func(ctx context.Context, row *bq.TransactionRow) error
	listFn   func(ctx context.Context, userID string) ([]*bq.TransactionRow, error)
	updateFn func(ctx context.Context, userID, transactionID string, entry domain.ParsedEntry) error
	deleteFn func(ctx context.Context, userID, transactionID string) error
}

func (m *mockTransactionStore) InsertTransaction(ctx context.Context, row *bq.TransactionRow) error {
	return m.insertFn(ctx, row)
}

func (m *mockTransactionStore) ListTransactionsByUser(ctx context.Context, userID string) ([]*bq.TransactionRow, error) {
	return m.listFn(ctx, userID)
}

func (m *mockTransactionStore) UpdateTransaction(ctx context.Context, userID, transactionID string, entry domain.ParsedEntry) error {
	return m.updateFn(ctx, userID, transactionID, entry)
}

func (m *mockTransactionStore) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return m.deleteFn(ctx, userID, transactionID)
}

// staticResolver always resolves to the same user, so tests can exercise
// handlers behind the real session middleware.
type staticResolver struct {
	user *domain.User
}

func (s *staticResolver) Resolve(ctx context.Context, sessionID string) (*domain.User, error) {
	if s.user == nil {
		return nil, auth.ErrUnauthorized
	}
	return s.user, nil
}

// doAuthed runs the handler behind RequireSession with a session cookie
// for the given user.
func doAuthed(t *testing.T, user *domain.User, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "test-session"})
	rec := httptest.NewRecorder()

	middleware.RequireSession(&staticResolver{user: user})(handler).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func TestRegisterRequiresAllFields(t *testing.T) {
	h := NewAuthHandler(&mockUserStore{}, auth.NewService(newMockSessionStore()), false, testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"name":"Dana","email":""}`))
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "All fields are required." {
		t.Errorf("error = %q", got)
	}
}

func TestRegisterConflict(t *testing.T) {
	users := &mockUserStore{
		findFn: func(ctx context.Context, email string) (*bq.UserRow, error) {
			return &bq.UserRow{UserID: "u1", Email: email}, nil
		},
	}
	h := NewAuthHandler(users, auth.NewService(newMockSessionStore()), false, testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Dana","email":"dana@example.com","password":"hunter22"}`))
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "An account with that email already exists." {
		t.Errorf("error = %q", got)
	}
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	var inserted *bq.UserRow
	users := &mockUserStore{
		findFn: func(ctx context.Context, email string) (*bq.UserRow, error) {
			return nil, bq.ErrNotFound
		},
		insertFn: func(ctx context.Context, row *bq.UserRow) error {
			inserted = row
			return nil
		},
	}
	sessions := newMockSessionStore()
	h := NewAuthHandler(users, auth.NewService(sessions), false, testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Dana","email":"dana@example.com","password":"hunter22"}`))
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if inserted == nil {
		t.Fatal("no user inserted")
	}
	if inserted.PasswordHash == "" || inserted.PasswordHash == "hunter22" {
		t.Error("password stored without hashing")
	}
	if !auth.VerifyPassword("hunter22", inserted.PasswordHash) {
		t.Error("stored hash does not verify")
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("sessions created = %d, want 1", len(sessions.sessions))
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("no session cookie set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	if strings.Contains(rec.Body.String(), inserted.PasswordHash) {
		t.Error("response body leaks the password hash")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	users := &mockUserStore{
		findFn: func(ctx context.Context, email string) (*bq.UserRow, error) {
			if email == "dana@example.com" {
				return &bq.UserRow{UserID: "u1", Email: email, PasswordHash: hash}, nil
			}
			return nil, bq.ErrNotFound
		},
	}
	h := NewAuthHandler(users, auth.NewService(newMockSessionStore()), false, testLog)

	tests := []struct {
		name string
		body string
	}{
		{"unknown email", `{"email":"nobody@example.com","password":"correct-password"}`},
		{"wrong password", `{"email":"dana@example.com","password":"wrong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			h.Login(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if got := decodeBody(t, rec)["error"]; got != "Invalid credentials." {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	users := &mockUserStore{
		findFn: func(ctx context.Context, email string) (*bq.UserRow, error) {
			return &bq.UserRow{UserID: "u1", Name: "Dana", Email: email, PasswordHash: hash}, nil
		},
	}
	sessions := newMockSessionStore()
	h := NewAuthHandler(users, auth.NewService(sessions), false, testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"dana@example.com","password":"correct-password"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("sessions created = %d, want 1", len(sessions.sessions))
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	sessions := newMockSessionStore()
	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", UserID: "u1"}
	h := NewAuthHandler(&mockUserStore{}, auth.NewService(sessions), false, testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "sess-1"})
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sessions.sessions) != 0 {
		t.Error("session row not deleted")
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestParseRequiresText(t *testing.T) {
	h := NewAssistantHandler(extract.NewInterpreter(testLog, extract.NewLexical()), testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/parse", strings.NewReader(`{"text":""}`))
	h.Parse(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestParseReturnsCandidate(t *testing.T) {
	h := NewAssistantHandler(extract.NewInterpreter(testLog, extract.NewLexical()), testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/parse",
		strings.NewReader(`{"text":"Paid $800 for office rent"}`))
	h.Parse(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result extract.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success || result.Parsed == nil {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.Parsed.Amount != 800 || result.Parsed.Category != domain.CategoryRent {
		t.Errorf("parsed = %+v", result.Parsed)
	}
}

func TestParseFailureIsStillOK(t *testing.T) {
	h := NewAssistantHandler(extract.NewInterpreter(testLog, extract.NewLexical()), testLog)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/parse",
		strings.NewReader(`{"text":"hello there"}`))
	h.Parse(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result extract.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Success || result.Error == "" {
		t.Errorf("result = %+v, want guidance error", result)
	}
}

func TestCreateTransaction(t *testing.T) {
	var inserted *bq.TransactionRow
	store := &mockTransactionStore{
		insertFn: func(ctx context.Context, row *bq.TransactionRow) error {
			inserted = row
			return nil
		},
	}
	h := NewTransactionsHandler(store, testLog)
	user := &domain.User{ID: "u1"}

	rec := doAuthed(t, user, h.CreateTransaction, http.MethodPost, "/api/transactions",
		`{"description":"Office rent","amount":800,"type":"expense","category":"Rent","date":"2025-06-15"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	if inserted == nil {
		t.Fatal("no row inserted")
	}
	if inserted.UserID != "u1" {
		t.Errorf("row user = %q, want session user", inserted.UserID)
	}
	if inserted.TransactionID == "" {
		t.Error("row has no ID")
	}
}

func TestCreateTransactionRejectsInvalidEntry(t *testing.T) {
	h := NewTransactionsHandler(&mockTransactionStore{}, testLog)
	user := &domain.User{ID: "u1"}

	tests := []struct {
		name string
		body string
	}{
		{"negative amount", `{"description":"x","amount":-5,"type":"expense","category":"Rent","date":"2025-06-15"}`},
		{"bad type", `{"description":"x","amount":5,"type":"transfer","category":"Rent","date":"2025-06-15"}`},
		{"bad date", `{"description":"x","amount":5,"type":"expense","category":"Rent","date":"June 15"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthed(t, user, h.CreateTransaction, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListTransactionsEmptyLedger(t *testing.T) {
	store := &mockTransactionStore{
		listFn: func(ctx context.Context, userID string) ([]*bq.TransactionRow, error) {
			return nil, nil
		},
	}
	h := NewTransactionsHandler(store, testLog)

	rec := doAuthed(t, &domain.User{ID: "u1"}, h.ListTransactions, http.MethodGet, "/api/transactions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"transactions":[]`) {
		t.Errorf("empty ledger did not serialize as []: %s", rec.Body.String())
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	store := &mockTransactionStore{
		updateFn: func(ctx context.Context, userID, transactionID string, entry domain.ParsedEntry) error {
			return bq.ErrNotFound
		},
	}
	h := NewTransactionsHandler(store, testLog)

	handler := func(w http.ResponseWriter, r *http.Request) {
		h.UpdateTransaction(w, r, "tx-other")
	}
	rec := doAuthed(t, &domain.User{ID: "u1"}, handler, http.MethodPut, "/api/transactions/tx-other",
		`{"description":"x","amount":5,"type":"expense","category":"Rent","date":"2025-06-15"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	var gotUser, gotID string
	store := &mockTransactionStore{
		deleteFn: func(ctx context.Context, userID, transactionID string) error {
			gotUser, gotID = userID, transactionID
			return nil
		},
	}
	h := NewTransactionsHandler(store, testLog)

	handler := func(w http.ResponseWriter, r *http.Request) {
		h.DeleteTransaction(w, r, "tx-1")
	}
	rec := doAuthed(t, &domain.User{ID: "u1"}, handler, http.MethodDelete, "/api/transactions/tx-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "u1" || gotID != "tx-1" {
		t.Errorf("delete called with (%q, %q)", gotUser, gotID)
	}
}

func TestHealthScoreNoData(t *testing.T) {
	store := &mockTransactionStore{
		listFn: func(ctx context.Context, userID string) ([]*bq.TransactionRow, error) {
			return nil, nil
		},
	}
	h := NewHealthScoreHandler(store, testLog)

	rec := doAuthed(t, &domain.User{ID: "u1"}, h.GetHealthScore, http.MethodGet, "/api/health-score", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "no_data" {
		t.Errorf("status field = %v, want no_data", body["status"])
	}
	if body["message"] != "Add transactions to calculate your financial health score." {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["report"]; ok {
		t.Error("no_data response carries a report")
	}
}

func TestHealthScoreWithLedger(t *testing.T) {
	row, err := bq.NewTransactionRow("tx-1", "u1", domain.ParsedEntry{
		Description: "Client payment",
		Amount:      5000,
		Type:        domain.TypeIncome,
		Category:    domain.CategorySales,
		Date:        "2025-06-01",
	}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTransactionRow error: %v", err)
	}

	store := &mockTransactionStore{
		listFn: func(ctx context.Context, userID string) ([]*bq.TransactionRow, error) {
			return []*bq.TransactionRow{row}, nil
		},
	}
	h := NewHealthScoreHandler(store, testLog)

	rec := doAuthed(t, &domain.User{ID: "u1"}, h.GetHealthScore, http.MethodGet, "/api/health-score", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	report, ok := body["report"].(map[string]interface{})
	if !ok {
		t.Fatalf("report missing: %v", body)
	}
	if report["total_income"] != float64(5000) {
		t.Errorf("total_income = %v", report["total_income"])
	}
}

func TestRequestInsightsEnqueuesJob(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store)
	defer queue.Close()

	h := NewInsightsHandler(queue, store, testLog)

	rec := doAuthed(t, &domain.User{ID: "u1"}, h.RequestInsights, http.MethodPost, "/api/insights", "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("no job_id in response")
	}

	job, err := store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.UserID != "u1" {
		t.Errorf("job user = %q", job.UserID)
	}
}

func TestGetInsightJobHidesForeignJobs(t *testing.T) {
	store := inmemory.NewStore()
	if err := store.SaveJob(context.Background(), &jobs.InsightJob{
		JobID:  "job-1",
		UserID: "someone-else",
		Status: jobs.JobStatusCompleted,
		Result: "insights",
	}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}

	h := NewInsightsHandler(inmemory.NewQueue(10, 1, store), store, testLog)

	handler := func(w http.ResponseWriter, r *http.Request) {
		h.GetInsightJob(w, r, "job-1")
	}
	rec := doAuthed(t, &domain.User{ID: "u1"}, handler, http.MethodGet, "/api/insights/job-1", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Job not found" {
		t.Errorf("error = %q", got)
	}
}

func TestGetInsightJob(t *testing.T) {
	store := inmemory.NewStore()
	if err := store.SaveJob(context.Background(), &jobs.InsightJob{
		JobID:  "job-1",
		UserID: "u1",
		Status: jobs.JobStatusCompleted,
		Result: "Revenue is concentrated in one client.",
	}); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}

	h := NewInsightsHandler(inmemory.NewQueue(10, 1, store), store, testLog)

	handler := func(w http.ResponseWriter, r *http.Request) {
		h.GetInsightJob(w, r, "job-1")
	}
	rec := doAuthed(t, &domain.User{ID: "u1"}, handler, http.MethodGet, "/api/insights/job-1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var job jobs.InsightJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Status != jobs.JobStatusCompleted || job.Result == "" {
		t.Errorf("job = %+v", job)
	}
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	h := NewTransactionsHandler(&mockTransactionStore{}, testLog)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	middleware.RequireSession(&staticResolver{})(http.HandlerFunc(h.ListTransactions)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
