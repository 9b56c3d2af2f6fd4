package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/customer"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// TxBundle exposes the per-domain stores bound to one transaction. Every
// store mutation commits or rolls back together.
type TxBundle interface {
	Stock() stock.TxStore
	Customers() customer.TxStore
	Ledger() ledger.TxStore
	Sales() TxStore
}

// TxRunner owns the transaction boundary for checkouts.
type TxRunner interface {
	WithTx(ctx context.Context, scope shared.Scope, fn func(context.Context, TxBundle) error) error
}

// TxStore persists the sale aggregate inside the transaction.
type TxStore interface {
	InsertSale(ctx context.Context, s Sale) error
	InsertSaleLines(ctx context.Context, saleID uuid.UUID, lines []Line) error
}

// AccountResolver resolves the canonical ledger accounts for sale postings.
type AccountResolver interface {
	SaleAccounts(ctx context.Context, scope shared.Scope) (ledger.SaleAccounts, error)
}

// AuditPort records committed sales for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replayed client request ids. Satisfied by
// shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts checkout outcomes.
type MetricsPort interface {
	SaleCommitted(outcome string, seconds float64)
	SaleRejected(code string)
}

// Service orchestrates the checkout state machine:
// Priced -> StockReserved -> PaymentReconciled -> LedgerPosted -> Committed,
// with any failure rolling the whole unit back.
type Service struct {
	runner      TxRunner
	accounts    AccountResolver
	deductor    *stock.Ledger
	ledger      *ledger.Service
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the orchestrator.
func NewService(runner TxRunner, accounts AccountResolver, audit AuditPort, idem IdempotencyPort, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{
		runner:      runner,
		accounts:    accounts,
		deductor:    stock.NewLedger(),
		ledger:      ledger.NewService(),
		audit:       audit,
		idempotency: idem,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
		s.deductor.WithNow(now)
	}
}

// Checkout turns a cart and a tendered payment into a committed sale. Input
// and policy validation happen before any resource is touched; a stock lock
// timeout is retried once; every other failure aborts and is returned as is.
func (s *Service) Checkout(ctx context.Context, scope shared.Scope, in CheckoutInput) (Result, error) {
	started := s.now()
	if !scope.Valid() {
		return Result{}, shared.ErrScopeMissing
	}
	if in.TenderedAmount.IsNegative() {
		return Result{}, payment.ErrInvalidTender
	}

	order, err := pricing.Calculate(pricing.Input{
		Currency:     in.Currency,
		Lines:        cartLines(in.Lines),
		Discount:     in.Discount,
		TaxRate:      in.TaxRate,
		DeliveryCost: in.DeliveryCost,
	})
	if err != nil {
		s.rejected(err)
		return Result{}, err
	}

	intent := payment.Intent{
		Outcome:    payment.Classify(order.GrandTotal, in.TenderedAmount),
		Resolution: in.Resolution,
		CustomerID: in.CustomerID,
	}
	if err := intent.Validate(); err != nil {
		s.rejected(err)
		return Result{}, err
	}

	accounts, err := s.accounts.SaleAccounts(ctx, scope)
	if err != nil {
		s.rejected(err)
		return Result{}, err
	}

	insertedKey := false
	if in.ClientRequestID != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, in.ClientRequestID, "sale"); err != nil {
			s.rejected(err)
			return Result{}, err
		}
		insertedKey = true
	}

	result, err := s.commit(ctx, scope, in, order, intent, accounts)
	if errors.Is(err, stock.ErrLockTimeout) {
		s.logger.Warn("stock lock timed out, retrying checkout once",
			slog.Int64("tenant_id", scope.TenantID), slog.Int64("branch_id", scope.BranchID))
		result, err = s.commit(ctx, scope, in, order, intent, accounts)
	}
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, in.ClientRequestID)
		}
		s.rejected(err)
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.SaleCommitted(string(result.Outcome.Kind), s.now().Sub(started).Seconds())
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "sale.checkout",
			Entity:   "sale",
			EntityID: result.SaleID.String(),
			Meta: map[string]any{
				"tenant_id":   scope.TenantID,
				"branch_id":   scope.BranchID,
				"grand_total": result.Order.GrandTotal.String(),
				"outcome":     result.Outcome.Kind,
				"posting_id":  result.PostingID,
			},
			At: s.now(),
		})
	}
	return result, nil
}

// commit runs one attempt of the atomic unit. Any error returned from the
// callback rolls back every effect applied inside it.
func (s *Service) commit(ctx context.Context, scope shared.Scope, in CheckoutInput, order pricing.PricedOrder, intent payment.Intent, accounts ledger.SaleAccounts) (Result, error) {
	saleID := uuid.New()
	createdAt := s.now().UTC()
	var result Result

	err := s.runner.WithTx(ctx, scope, func(ctx context.Context, tx TxBundle) error {
		movements, err := s.deductor.ReserveAndDeduct(ctx, tx.Stock(), saleID, deductLines(in.Lines))
		if err != nil {
			return err
		}
		settlement, err := payment.Reconcile(ctx, tx.Customers(), order.GrandTotal, intent)
		if err != nil {
			return err
		}
		posting, err := s.ledger.Post(ctx, tx.Ledger(),
			ledger.BuildSalePosting(saleID, createdAt, order, settlement, movements, accounts))
		if err != nil {
			return err
		}

		record := Sale{
			ID:             saleID,
			TenantID:       scope.TenantID,
			BranchID:       scope.BranchID,
			CustomerID:     in.CustomerID,
			Status:         StatusCommitted,
			Order:          order,
			TenderedAmount: in.TenderedAmount,
			Outcome:        settlement.Outcome,
			Resolution:     settlement.Resolution,
			PostingID:      posting.ID,
			CreatedBy:      in.ActorID,
			CreatedAt:      createdAt,
		}
		if err := tx.Sales().InsertSale(ctx, record); err != nil {
			return fmt.Errorf("sale: insert sale: %w", err)
		}
		if err := tx.Sales().InsertSaleLines(ctx, saleID, in.Lines); err != nil {
			return fmt.Errorf("sale: insert lines: %w", err)
		}

		result = Result{
			SaleID:           saleID,
			Order:            order,
			Outcome:          settlement.Outcome,
			Resolution:       settlement.Resolution,
			Movements:        movements,
			PostingID:        posting.ID,
			CustomerBalances: settlement.Balances,
		}
		return nil
	})
	return result, err
}

func (s *Service) rejected(err error) {
	if s.metrics != nil {
		s.metrics.SaleRejected(FailureCode(err))
	}
}

func cartLines(lines []Line) []pricing.CartLine {
	out := make([]pricing.CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.CartLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return out
}

func deductLines(lines []Line) []stock.DeductLine {
	out := make([]stock.DeductLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, stock.DeductLine{ProductID: line.ProductID, Qty: line.Quantity})
	}
	return out
}
