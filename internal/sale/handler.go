package sale

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// SaleReader loads committed sales for the read endpoints.
type SaleReader interface {
	GetSale(ctx context.Context, scope shared.Scope, id uuid.UUID) (Sale, error)
}

// Handler exposes the checkout API.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	reader          SaleReader
	validate        *validator.Validate
	defaultCurrency string
}

// NewHandler builds Handler instance. defaultCurrency fills requests that
// omit the currency field.
func NewHandler(logger *slog.Logger, service *Service, reader SaleReader, defaultCurrency string) *Handler {
	return &Handler{
		logger:          logger,
		service:         service,
		reader:          reader,
		validate:        validator.New(),
		defaultCurrency: defaultCurrency,
	}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.checkout)
	r.Get("/sales/{id}", h.getSale)
}

type checkoutLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	VariantID *int64          `json:"variant_id"`
	Quantity  int64           `json:"quantity" validate:"required,gte=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type checkoutRequest struct {
	Lines           []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	DiscountMode    string                `json:"discount_mode" validate:"omitempty,oneof=NONE PERCENT FLAT"`
	DiscountValue   decimal.Decimal       `json:"discount_value"`
	TaxRate         decimal.Decimal       `json:"tax_rate"`
	DeliveryCost    decimal.Decimal       `json:"delivery_cost"`
	TenderedAmount  decimal.Decimal       `json:"tendered_amount"`
	Resolution      string                `json:"resolution" validate:"omitempty,oneof=NONE ALLOW_DEBT RETURN_CHANGE CREDIT_WALLET"`
	CustomerID      *int64                `json:"customer_id" validate:"omitempty,gt=0"`
	Currency        string                `json:"currency" validate:"omitempty,len=3"`
	ClientRequestID string                `json:"client_request_id" validate:"omitempty,max=128"`
}

func (req checkoutRequest) toInput(actorID int64) CheckoutInput {
	lines := make([]Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, Line{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	mode := pricing.DiscountModeNone
	if req.DiscountMode != "" {
		mode = pricing.DiscountMode(req.DiscountMode)
	}
	resolution := payment.ResolutionNone
	if req.Resolution != "" {
		resolution = payment.Resolution(req.Resolution)
	}
	return CheckoutInput{
		Lines:           lines,
		Discount:        pricing.Discount{Mode: mode, Value: req.DiscountValue},
		TaxRate:         req.TaxRate,
		DeliveryCost:    req.DeliveryCost,
		TenderedAmount:  req.TenderedAmount,
		Resolution:      resolution,
		CustomerID:      req.CustomerID,
		Currency:        req.Currency,
		ClientRequestID: req.ClientRequestID,
		ActorID:         actorID,
	}
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.ProblemCode(w, http.StatusBadRequest, CodeMissingScope, "tenant and branch headers are required")
		return
	}

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, CodeInvalidPricingInput, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, CodeInvalidPricingInput, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = h.defaultCurrency
	}

	result, err := h.service.Checkout(r.Context(), scope, req.toInput(actorFromContext(r.Context())))
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Missing Scope", "tenant and branch headers are required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "sale id must be a UUID")
		return
	}
	sale, err := h.reader.GetSale(r.Context(), scope, id)
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
		return
	}
	if err != nil {
		h.logger.Error("load sale failed", slog.String("sale_id", id.String()), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, saleResponse(sale))
}

type saleView struct {
	SaleID     uuid.UUID           `json:"sale_id"`
	Status     Status              `json:"status"`
	CustomerID *int64              `json:"customer_id,omitempty"`
	Order      pricing.PricedOrder `json:"priced_order"`
	Tendered   decimal.Decimal     `json:"tendered_amount"`
	Outcome    payment.OutcomeKind `json:"payment_outcome"`
	Resolution payment.Resolution  `json:"payment_resolution"`
	Lines      []Line              `json:"lines"`
	Movements  []stock.Movement    `json:"stock_movements"`
	PostingID  int64               `json:"ledger_posting_id"`
	CreatedAt  string              `json:"created_at"`
}

func saleResponse(s Sale) saleView {
	return saleView{
		SaleID:     s.ID,
		Status:     s.Status,
		CustomerID: s.CustomerID,
		Order:      s.Order,
		Tendered:   s.TenderedAmount,
		Outcome:    s.Outcome.Kind,
		Resolution: s.Resolution,
		Lines:      s.Lines,
		Movements:  s.Movements,
		PostingID:  s.PostingID,
		CreatedAt:  s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// respondCheckoutError translates checkout failures to problem responses. The
// status tells the client whether to fix the request, retry, or give up.
func (h *Handler) respondCheckoutError(w http.ResponseWriter, err error) {
	code := FailureCode(err)
	switch code {
	case CodeMissingScope, CodeInvalidPricingInput, CodeInvalidResolution:
		httpx.ProblemCode(w, http.StatusBadRequest, code, err.Error())
	case CodeDebtRequiresCustomer, CodeWalletRequiresCustomer, CodeCustomerNotFound:
		httpx.ProblemCode(w, http.StatusUnprocessableEntity, code, err.Error())
	case CodeInsufficientStock:
		var short *stock.InsufficientStockError
		detail := err.Error()
		if errors.As(err, &short) {
			detail = short.Error()
		}
		httpx.ProblemCode(w, http.StatusConflict, code, detail)
	case CodeDuplicateRequest:
		httpx.ProblemCode(w, http.StatusConflict, code, "a sale with this client request id is already in flight or committed")
	case CodeStockLockTimeout:
		httpx.ProblemCode(w, http.StatusServiceUnavailable, code, "stock rows are contended, retry the checkout")
	case CodeLedgerImbalance:
		h.logger.Error("sale posting rejected as unbalanced", slog.Any("error", err))
		httpx.ProblemCode(w, http.StatusInternalServerError, code, "")
	default:
		if errors.Is(err, ledger.ErrMappingNotFound) {
			httpx.ProblemCode(w, http.StatusUnprocessableEntity, CodeInternal, err.Error())
			return
		}
		h.logger.Error("checkout failed", slog.Any("error", err))
		httpx.ProblemCode(w, http.StatusInternalServerError, CodeInternal, "")
	}
}

type actorKey struct{}

// ContextWithActor attaches the acting cashier's user id.
func ContextWithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey{}).(int64)
	return id
}
