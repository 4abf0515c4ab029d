package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"expense-api/internal/common"
	"expense-api/internal/dbx"
	"expense-api/internal/logging"
	"expense-api/internal/server/config"
	"expense-api/internal/server/models"
	"expense-api/internal/server/repositories/expenses"
	"expense-api/internal/server/repositories/users"
	"expense-api/internal/server/services"
)

// memStore is an in-memory stand-in for Postgres used by the handler tests.
// It reproduces the repository contracts, including ownership scoping and
// decimal aggregation, so requests exercise the full stack below the mux.
type memStore struct {
	users         map[string]*models.User
	expenses      map[int64]*models.Expense
	nextUserID    int64
	nextExpenseID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*models.User{},
		expenses:      map[int64]*models.Expense{},
		nextUserID:    1,
		nextExpenseID: 1,
	}
}

type memUsersRepo struct{ s *memStore }

func (r *memUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := r.s.users[user.Username]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := *user
	u.ID = r.s.nextUserID
	r.s.nextUserID++
	u.CreatedAt = time.Now()
	r.s.users[u.Username] = &u
	return &u, nil
}

func (r *memUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := r.s.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type memExpensesRepo struct{ s *memStore }

func (r *memExpensesRepo) Create(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	e := *expense
	e.ID = r.s.nextExpenseID
	r.s.nextExpenseID++
	e.CreatedAt = time.Now()
	r.s.expenses[e.ID] = &e
	return &e, nil
}

func (r *memExpensesRepo) List(ctx context.Context, owner string, limit, offset int) ([]models.Expense, error) {
	result := []models.Expense{}
	for _, e := range r.s.expenses {
		if e.Owner == owner {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	if offset >= len(result) {
		return []models.Expense{}, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *memExpensesRepo) GetOwner(ctx context.Context, id int64) (string, error) {
	e, ok := r.s.expenses[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return e.Owner, nil
}

func (r *memExpensesRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.s.expenses[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.expenses, id)
	return nil
}

func (r *memExpensesRepo) Summary(ctx context.Context, owner string) (*models.Summary, error) {
	summary := &models.Summary{Total: decimal.Zero, ByCategory: []models.CategoryTotal{}}
	byCategory := map[string]decimal.Decimal{}
	for _, e := range r.s.expenses {
		if e.Owner != owner {
			continue
		}
		summary.Total = summary.Total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}
	for category, total := range byCategory {
		summary.ByCategory = append(summary.ByCategory, models.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Total.GreaterThan(summary.ByCategory[j].Total)
	})
	return summary, nil
}

func (r *memExpensesRepo) MonthlySummary(ctx context.Context, owner string, year int) ([]models.MonthlyTotal, error) {
	byMonth := map[time.Time]decimal.Decimal{}
	for _, e := range r.s.expenses {
		if e.Owner != owner {
			continue
		}
		if year != 0 && e.Date.Year() != year {
			continue
		}
		month := time.Date(e.Date.Year(), e.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		byMonth[month] = byMonth[month].Add(e.Amount)
	}
	result := []models.MonthlyTotal{}
	for month, total := range byMonth {
		result = append(result, models.MonthlyTotal{Month: month, Total: total})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

type memRepoManager struct{ s *memStore }

func (m *memRepoManager) Users(db dbx.DBTX) users.Repository       { return &memUsersRepo{s: m.s} }
func (m *memRepoManager) Expenses(db dbx.DBTX) expenses.Repository { return &memExpensesRepo{s: m.s} }

func (m *memRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m := &memRepoManager{s: newMemStore()}
	us := services.NewUserService(db, m, cfg)
	es := services.NewExpenseService(db, m, cfg)

	return NewServer(cfg, logger, us, es), mock
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return v
}

func registerAndLogin(t *testing.T, srv *Server, username, password string) string {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/api/register", "", credentialsRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/login", "", credentialsRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	token := decodeBody[map[string]string](t, rec)["access_token"]
	if token == "" {
		t.Fatalf("login %s: empty access token", username)
	}
	return token
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/register", "", credentialsRequest{Username: "alice", Password: "password1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first register: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/register", "", credentialsRequest{Username: "alice", Password: "password2"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: want 400, got %d", rec.Code)
	}
	if detail := decodeBody[errorResponse](t, rec).Detail; detail != "user already exists" {
		t.Fatalf("unexpected detail: %q", detail)
	}
}

func TestRegister_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body credentialsRequest
	}{
		{"short username", credentialsRequest{Username: "ab", Password: "password1"}},
		{"short password", credentialsRequest{Username: "alice", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/register", "", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("want 422, got %d body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	registerAndLogin(t, srv, "alice", "password1")

	tests := []struct {
		name string
		body credentialsRequest
	}{
		{"unknown username", credentialsRequest{Username: "ghost", Password: "password1"}},
		{"wrong password", credentialsRequest{Username: "alice", Password: "wrongpass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/login", "", tt.body)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", rec.Code)
			}
			if detail := decodeBody[errorResponse](t, rec).Detail; detail != "invalid credentials" {
				t.Fatalf("unexpected detail: %q", detail)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		header     string
		wantDetail string
	}{
		{"missing header", "", "missing authorization header"},
		{"wrong scheme", "Token abc", "invalid authorization header"},
		{"no token", "Bearer", "invalid authorization header"},
		{"garbage token", "Bearer not.a.jwt", "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", rec.Code)
			}
			if detail := decodeBody[errorResponse](t, rec).Detail; detail != tt.wantDetail {
				t.Fatalf("want detail %q, got %q", tt.wantDetail, detail)
			}
		})
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv, mock := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", "password1")

	rec := doRequest(t, srv, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount:      decimal.RequireFromString("12.50"),
		Category:    "food",
		Description: "lunch",
		Date:        "2024-01-15",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[expenseResponse](t, rec)
	if created.ID == 0 || created.Amount != 12.5 || created.Category != "food" || created.Date != "2024-01-15" {
		t.Fatalf("unexpected expense: %+v", created)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/expenses", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	listed := decodeBody[[]expenseResponse](t, rec)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d", rec.Code)
	}
	summary := decodeBody[struct {
		Total      float64 `json:"total"`
		ByCategory []struct {
			Category string  `json:"category"`
			Total    float64 `json:"total"`
		} `json:"by_category"`
	}](t, rec)
	if summary.Total != 12.5 || len(summary.ByCategory) != 1 || summary.ByCategory[0].Category != "food" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/monthly-summary?year=2024", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly summary: status %d", rec.Code)
	}
	monthly := decodeBody[[]struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}](t, rec)
	if len(monthly) != 1 || monthly[0].Month != "2024-01-01" || monthly[0].Total != 12.5 {
		t.Fatalf("unexpected monthly summary: %+v", monthly)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}
	if deleted := decodeBody[map[string]int64](t, rec)["deleted"]; deleted != created.ID {
		t.Fatalf("want deleted id %d, got %d", created.ID, deleted)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/expenses", token, nil)
	if got := decodeBody[[]expenseResponse](t, rec); len(got) != 0 {
		t.Fatalf("expense still listed after delete: %+v", got)
	}
}

func TestCreateExpense_InvalidDate(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", "password1")

	rec := doRequest(t, srv, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount:   decimal.NewFromInt(5),
		Category: "food",
		Date:     "15/01/2024",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d", rec.Code)
	}
}

func TestDeleteExpense_Ownership(t *testing.T) {
	srv, mock := newTestServer(t)
	aliceToken := registerAndLogin(t, srv, "alice", "password1")
	bobToken := registerAndLogin(t, srv, "bob", "password2")

	rec := doRequest(t, srv, http.MethodPost, "/api/expenses", aliceToken, expenseRequest{
		Amount:   decimal.RequireFromString("9.99"),
		Category: "food",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d", rec.Code)
	}
	id := decodeBody[expenseResponse](t, rec).ID

	// bob cannot see alice's expense
	rec = doRequest(t, srv, http.MethodGet, "/api/expenses", bobToken, nil)
	if got := decodeBody[[]expenseResponse](t, rec); len(got) != 0 {
		t.Fatalf("bob sees alice's expenses: %+v", got)
	}

	// bob cannot delete it either, and the record survives the attempt
	mock.ExpectBegin()
	mock.ExpectRollback()
	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", id), bobToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/expenses", aliceToken, nil)
	if got := decodeBody[[]expenseResponse](t, rec); len(got) != 1 {
		t.Fatalf("alice's expense vanished: %+v", got)
	}

	// absent id
	mock.ExpectBegin()
	mock.ExpectRollback()
	rec = doRequest(t, srv, http.MethodDelete, "/api/expenses/424242", aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}

	// unparsable id
	rec = doRequest(t, srv, http.MethodDelete, "/api/expenses/abc", aliceToken, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d", rec.Code)
	}
}

func TestUserIsolation(t *testing.T) {
	srv, _ := newTestServer(t)
	aliceToken := registerAndLogin(t, srv, "alice", "password1")
	bobToken := registerAndLogin(t, srv, "bob", "password2")

	for _, e := range []expenseRequest{
		{Amount: decimal.RequireFromString("10.00"), Category: "food", Date: "2024-01-10"},
		{Amount: decimal.RequireFromString("20.00"), Category: "rent", Date: "2024-02-01"},
	} {
		rec := doRequest(t, srv, http.MethodPost, "/api/expenses", aliceToken, e)
		if rec.Code != http.StatusOK {
			t.Fatalf("create: status %d", rec.Code)
		}
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/expenses", bobToken, expenseRequest{
		Amount: decimal.RequireFromString("500.00"), Category: "travel", Date: "2024-01-20",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary", aliceToken, nil)
	aliceSummary := decodeBody[struct {
		Total float64 `json:"total"`
	}](t, rec)
	if aliceSummary.Total != 30 {
		t.Fatalf("alice total: want 30, got %v", aliceSummary.Total)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary", bobToken, nil)
	bobSummary := decodeBody[struct {
		Total float64 `json:"total"`
	}](t, rec)
	if bobSummary.Total != 500 {
		t.Fatalf("bob total: want 500, got %v", bobSummary.Total)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/expenses", aliceToken, nil)
	listed := decodeBody[[]expenseResponse](t, rec)
	if len(listed) != 2 {
		t.Fatalf("alice listing: want 2, got %d", len(listed))
	}
	// newest date first
	if listed[0].Date != "2024-02-01" || listed[1].Date != "2024-01-10" {
		t.Fatalf("listing out of order: %+v", listed)
	}
}

func TestSummary_DecimalExactTotals(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv, "alice", "password1")

	// 0.1 + 0.2 must come out as exactly 0.3, not 0.30000000000000004
	for _, amount := range []string{"0.10", "0.20"} {
		rec := doRequest(t, srv, http.MethodPost, "/api/expenses", token, expenseRequest{
			Amount:   decimal.RequireFromString(amount),
			Category: "misc",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("create: status %d", rec.Code)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/summary", token, nil)
	summary := decodeBody[struct {
		Total float64 `json:"total"`
	}](t, rec)
	if summary.Total != 0.3 {
		t.Fatalf("want exact total 0.3, got %v", summary.Total)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	// generate one observed request first
	doRequest(t, srv, http.MethodGet, "/healthz", "", nil)

	rec := doRequest(t, srv, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("metrics body missing request counter:\n%s", rec.Body.String())
	}
}

func TestNormalizeRoute(t *testing.T) {
	if got := normalizeRoute("/api/expenses/123"); got != "/api/expenses/{id}" {
		t.Errorf("want /api/expenses/{id}, got %q", got)
	}
	if got := normalizeRoute("/api/summary"); got != "/api/summary" {
		t.Errorf("want /api/summary, got %q", got)
	}
}
