package sale

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type stubReader struct {
	sale Sale
	err  error
}

func (s stubReader) GetSale(ctx context.Context, scope shared.Scope, id uuid.UUID) (Sale, error) {
	if s.err != nil {
		return Sale{}, s.err
	}
	return s.sale, nil
}

func newTestRouter(t *testing.T, f *fixture, reader SaleReader) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, f.service, reader, "IDR")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Tenant-ID") != "" {
				ctx := shared.ContextWithScope(req.Context(), testScope())
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	})
	handler.MountRoutes(r)
	return r
}

func checkoutBody() string {
	return `{
		"currency": "IDR",
		"lines": [{"product_id": 1, "quantity": 10, "unit_price": "100"}],
		"discount_mode": "PERCENT",
		"discount_value": "10",
		"tax_rate": "0.16",
		"tendered_amount": "1044"
	}`
}

func doCheckout(t *testing.T, router http.Handler, body string, scoped bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if scoped {
		req.Header.Set("X-Tenant-ID", "1")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCheckoutCommitted(t *testing.T) {
	f := newFixture(t)
	f.seedStock(1, 25, "60")
	router := newTestRouter(t, f, stubReader{})

	rec := doCheckout(t, router, checkoutBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "sale_id")
	require.Contains(t, resp, "priced_order")
	require.Contains(t, resp, "payment_outcome")
	require.Contains(t, resp, "stock_movements")
	require.Contains(t, resp, "ledger_posting_id")
	require.Len(t, f.runner.state.sales, 1)
}

func TestHandlerCheckoutMissingScope(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f, stubReader{})

	rec := doCheckout(t, router, checkoutBody(), false)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, CodeMissingScope, problem.Code)
}

func TestHandlerCheckoutMalformedBody(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f, stubReader{})

	rec := doCheckout(t, router, "{not json", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, CodeInvalidPricingInput, problem.Code)
}

func TestHandlerCheckoutValidationFailure(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f, stubReader{})

	// No lines at all.
	rec := doCheckout(t, router, `{"currency": "IDR", "lines": []}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCheckoutInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedStock(1, 3, "60")
	router := newTestRouter(t, f, stubReader{})

	rec := doCheckout(t, router, checkoutBody(), true)
	require.Equal(t, http.StatusConflict, rec.Code)

	var problem struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, CodeInsufficientStock, problem.Code)
	require.Contains(t, problem.Detail, "product 1")
}

func TestHandlerCheckoutLockTimeout(t *testing.T) {
	f := newFixture(t)
	f.seedStock(1, 25, "60")
	f.runner.lockErrs = 2
	router := newTestRouter(t, f, stubReader{})

	rec := doCheckout(t, router, checkoutBody(), true)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, CodeStockLockTimeout, problem.Code)
}

func TestHandlerCheckoutResolutionRejected(t *testing.T) {
	f := newFixture(t)
	f.seedStock(1, 25, "60")
	router := newTestRouter(t, f, stubReader{})

	body := strings.Replace(checkoutBody(), `"1044"`, `"1000"`, 1)
	rec := doCheckout(t, router, body, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, CodeInvalidResolution, problem.Code)
}

func TestHandlerGetSale(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	reader := stubReader{sale: Sale{ID: id, Status: StatusCommitted}}
	router := newTestRouter(t, f, reader)

	req := httptest.NewRequest(http.MethodGet, "/sales/"+id.String(), nil)
	req.Header.Set("X-Tenant-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SaleID string `json:"sale_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, id.String(), resp.SaleID)
	require.Equal(t, "COMMITTED", resp.Status)
}

func TestHandlerGetSaleNotFound(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f, stubReader{err: shared.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/sales/"+uuid.NewString(), nil)
	req.Header.Set("X-Tenant-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGetSaleBadID(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f, stubReader{})

	req := httptest.NewRequest(http.MethodGet, "/sales/not-a-uuid", nil)
	req.Header.Set("X-Tenant-ID", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

