package customers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
)

func newTestRouter(repo *memoryRepo) chi.Router {
	r := chi.NewRouter()
	NewHandler(slog.Default(), NewService(repo)).MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerCreateCustomer(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := doRequest(t, router, http.MethodPost, "/customers",
		`{"name":"Priya Sharma","phone":"98400-12345"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var env struct {
		Data Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "Priya Sharma", env.Data.Name)
	require.Zero(t, env.Data.StoreCredit)
}

func TestHandlerCreateCustomerValidation(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := doRequest(t, router, http.MethodPost, "/customers", `{"phone":"98400-12345"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "Validation Failed", p.Title)

	rr = doRequest(t, router, http.MethodPost, "/customers",
		`{"name":"Priya","email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerGrantCredit(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rr := doRequest(t, router, http.MethodPost, "/customers", `{"name":"Arun Mehta"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/customers/1/credit", `{"amount":150}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"store_credit":150`)

	rr = doRequest(t, router, http.MethodPost, "/customers/1/credit", `{"amount":-10}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerGetCustomerNotFound(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := doRequest(t, router, http.MethodGet, "/customers/42", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	require.Equal(t, "Not Found", p.Title)
}
