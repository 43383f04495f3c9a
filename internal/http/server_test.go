package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/config"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	cfg := &config.Config{
		Port:          "0",
		AllowedOrigin: "http://localhost:5173",
		Env:           config.EnvDevelopment,
		ShutdownGrace: time.Second,
	}
	srv := NewServer(cfg, services.NewExpenseService(repo))
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	t.Cleanup(func() { repo.Close() })
	return srv
}

// do runs one request through the full middleware chain and decodes the
// envelope body.
func do(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)

	var envelope map[string]any
	if ct := rr.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), "body: %s", rr.Body.String())
	}
	return rr, envelope
}

func createExpense(t *testing.T, srv *Server, amount float64, category, description, date string) map[string]any {
	t.Helper()
	rr, envelope := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount":      amount,
		"category":    category,
		"description": description,
		"date":        date,
	})
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())
	return envelope["data"].(map[string]any)
}

func fieldSet(t *testing.T, envelope map[string]any) map[string]string {
	t.Helper()
	raw, ok := envelope["errors"].([]any)
	require.True(t, ok, "envelope has no errors array: %v", envelope)
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		fe := item.(map[string]any)
		out[fe["field"].(string)] = fe["message"].(string)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Server is running", envelope["message"])

	data := envelope["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, data["timestamp"])
	assert.NotEmpty(t, data["uptime"])
}

func TestCreateExpense(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount":      42.5,
		"category":    "Groceries",
		"description": "Weekly shop",
		"date":        "2024-01-15T09:30:00.000Z",
	})
	require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Expense created successfully", envelope["message"])

	data := envelope["data"].(map[string]any)
	assert.Regexp(t, `^[0-9a-f]{24}$`, data["id"])
	assert.Equal(t, 42.5, data["amount"])
	assert.Equal(t, "Groceries", data["category"])
	assert.Equal(t, "2024-01-15T09:30:00.000Z", data["date"])
	assert.NotEmpty(t, data["createdAt"])
	assert.NotEmpty(t, data["updatedAt"])
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount":      -5,
		"description": "missing category",
		"date":        "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Validation error", envelope["message"])

	msgs := fieldSet(t, envelope)
	assert.Equal(t, "Amount must be positive", msgs["amount"])
	assert.Equal(t, "Category is required", msgs["category"])
	assert.Equal(t, "Date must be a valid ISO 8601 datetime string", msgs["date"])
}

func TestCreateExpenseMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid JSON body")
}

func TestCreateExpenseBodyTooLarge(t *testing.T) {
	srv := newTestServer(t)

	huge := fmt.Sprintf(`{"amount": 1, "category": "a", "description": %q, "date": "2024-01-01"}`,
		strings.Repeat("x", maxBodyBytes+1))
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(huge))
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request body too large")
}

func TestListExpenses(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Expenses retrieved successfully", envelope["message"])

	data := envelope["data"].(map[string]any)
	assert.Equal(t, []any{}, data["expenses"])
	assert.Equal(t, 0.0, data["total"])
	assert.Equal(t, 0.0, data["count"])

	createExpense(t, srv, 10.00, "Food", "lunch", "2024-01-01T00:00:00Z")
	createExpense(t, srv, 20.00, "Rent", "january", "2024-01-02T00:00:00Z")
	createExpense(t, srv, 5.50, "Food", "coffee", "2024-01-03T00:00:00Z")

	rr, envelope = do(t, srv, http.MethodGet, "/api/expenses", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data = envelope["data"].(map[string]any)
	expenses := data["expenses"].([]any)
	require.Len(t, expenses, 3)
	assert.Equal(t, 35.5, data["total"])
	assert.Equal(t, 3.0, data["count"])

	// Default order is date descending.
	first := expenses[0].(map[string]any)
	assert.Equal(t, "coffee", first["description"])
}

func TestListExpensesFilterAndSort(t *testing.T) {
	srv := newTestServer(t)
	createExpense(t, srv, 10.00, "Food", "lunch", "2024-01-01T00:00:00Z")
	createExpense(t, srv, 20.00, "Rent", "january", "2024-01-02T00:00:00Z")
	createExpense(t, srv, 5.50, "Food", "coffee", "2024-01-03T00:00:00Z")

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses?category=Food&sortBy=amount&order=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := envelope["data"].(map[string]any)
	expenses := data["expenses"].([]any)
	require.Len(t, expenses, 2)
	assert.Equal(t, 5.5, expenses[0].(map[string]any)["amount"])
	assert.Equal(t, 10.0, expenses[1].(map[string]any)["amount"])
	assert.Equal(t, 15.5, data["total"])
}

func TestListExpensesPaging(t *testing.T) {
	srv := newTestServer(t)
	for i := 1; i <= 5; i++ {
		createExpense(t, srv, float64(i), "Food", fmt.Sprintf("item %d", i),
			fmt.Sprintf("2024-01-0%dT00:00:00Z", i))
	}

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses?order=asc&limit=2&skip=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	data := envelope["data"].(map[string]any)
	expenses := data["expenses"].([]any)
	require.Len(t, expenses, 2)
	assert.Equal(t, "item 2", expenses[0].(map[string]any)["description"])
	assert.Equal(t, "item 3", expenses[1].(map[string]any)["description"])
	assert.Equal(t, 2.0, data["count"])
}

func TestListExpensesBadQuery(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses?sortBy=color&limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation error", envelope["message"])

	msgs := fieldSet(t, envelope)
	assert.Equal(t, "sortBy must be one of: date, amount, createdAt", msgs["sortBy"])
	assert.Equal(t, "limit must be between 1 and 1000", msgs["limit"])
}

func TestGetExpense(t *testing.T) {
	srv := newTestServer(t)
	created := createExpense(t, srv, 9.99, "Food", "snack", "2024-01-01T00:00:00Z")

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses/"+created["id"].(string), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Expense retrieved successfully", envelope["message"])
	assert.Equal(t, created["id"], envelope["data"].(map[string]any)["id"])
}

func TestGetExpenseInvalidID(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses/not-a-real-id", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	msgs := fieldSet(t, envelope)
	assert.Equal(t, "Invalid expense ID format", msgs["id"])
}

func TestGetExpenseNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/api/expenses/aaaaaaaaaaaaaaaaaaaaaaaa", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Expense not found", envelope["message"])
}

func TestUpdateExpense(t *testing.T) {
	srv := newTestServer(t)
	created := createExpense(t, srv, 10.00, "Food", "lunch", "2024-01-01T00:00:00Z")

	rr, envelope := do(t, srv, http.MethodPut, "/api/expenses/"+created["id"].(string),
		map[string]any{"amount": 12.34})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Expense updated successfully", envelope["message"])

	data := envelope["data"].(map[string]any)
	assert.Equal(t, 12.34, data["amount"])
	assert.Equal(t, "Food", data["category"])
	assert.Equal(t, "lunch", data["description"])
}

func TestUpdateExpenseValidation(t *testing.T) {
	srv := newTestServer(t)
	created := createExpense(t, srv, 10.00, "Food", "lunch", "2024-01-01T00:00:00Z")

	rr, envelope := do(t, srv, http.MethodPut, "/api/expenses/"+created["id"].(string),
		map[string]any{"amount": "lots"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	msgs := fieldSet(t, envelope)
	assert.Equal(t, "Amount must be a number", msgs["amount"])
}

func TestUpdateExpenseNotFound(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodPut, "/api/expenses/aaaaaaaaaaaaaaaaaaaaaaaa",
		map[string]any{"amount": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteExpense(t *testing.T) {
	srv := newTestServer(t)
	created := createExpense(t, srv, 10.00, "Food", "lunch", "2024-01-01T00:00:00Z")
	id := created["id"].(string)

	rr, envelope := do(t, srv, http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Expense deleted successfully", envelope["message"])

	// data is present and explicitly null.
	v, present := envelope["data"]
	assert.True(t, present)
	assert.Nil(t, v)

	rr, _ = do(t, srv, http.MethodGet, "/api/expenses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = do(t, srv, http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Route not found: /api/nope", envelope["message"])
}

func TestUnsupportedMethodGetsEnvelope(t *testing.T) {
	srv := newTestServer(t)

	rr, envelope := do(t, srv, http.MethodPatch, "/api/expenses", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, envelope["success"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestIndexServed(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Expense Tracker")
}

func TestStaticAssetsServed(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age")
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t)

	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	handler := srv.withRecovery(boom)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Internal Server Error")
	// Development mode includes the stack.
	assert.Contains(t, rr.Body.String(), "kaboom")
}
