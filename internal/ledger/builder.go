package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// SaleAccounts holds the resolved account ids for the canonical sale lines.
type SaleAccounts struct {
	CashInTransit   int64
	Receivable      int64
	Revenue         int64
	TaxPayable      int64
	DiscountsGiven  int64
	DeliveryIncome  int64
	WalletLiability int64
	COGS            int64
	InventoryAsset  int64
}

// BuildSalePosting constructs the canonical balanced line set for one sale:
//
//	Dr Cash-in-transit        cash actually applied to the total
//	Dr Accounts Receivable    underpaid balance booked as debt
//	Dr Discounts Given        contra-revenue, when discounted
//	Cr Sales Revenue          gross subtotal; the contra debit nets it
//	Cr Tax Payable            tax amount
//	Cr Delivery Income        delivery cost charged to the buyer
//	Dr Cash-in-transit / Cr Customer Wallet Liability   overpaid excess kept as credit
//	Dr COGS / Cr Inventory Asset   cost snapshotted on the stock movements
//
// Movement costs are captured at sale time, so the posting stays stable even
// if catalog costs change later.
func BuildSalePosting(saleID uuid.UUID, postedAt time.Time, order pricing.PricedOrder, st payment.Settlement, movements []stock.Movement, accounts SaleAccounts) PostingInput {
	lines := make([]PostingLineInput, 0, 8)
	add := func(accountID int64, debit, credit decimal.Decimal) {
		lines = append(lines, PostingLineInput{AccountID: accountID, Debit: debit, Credit: credit})
	}

	if st.CashApplied.IsPositive() {
		add(accounts.CashInTransit, st.CashApplied, decimal.Zero)
	}
	if st.DebtDelta.IsPositive() {
		add(accounts.Receivable, st.DebtDelta, decimal.Zero)
	}
	if order.DiscountAmount.IsPositive() {
		add(accounts.DiscountsGiven, order.DiscountAmount, decimal.Zero)
	}

	// Revenue is credited gross; the Discounts Given debit above nets it to
	// subtotal - discount. Crediting net here would double-count the discount
	// and unbalance the posting.
	if order.Subtotal.IsPositive() {
		add(accounts.Revenue, decimal.Zero, order.Subtotal)
	}
	if order.TaxAmount.IsPositive() {
		add(accounts.TaxPayable, decimal.Zero, order.TaxAmount)
	}
	if order.DeliveryCost.IsPositive() {
		add(accounts.DeliveryIncome, decimal.Zero, order.DeliveryCost)
	}

	if st.WalletDelta.IsPositive() {
		add(accounts.CashInTransit, st.WalletDelta, decimal.Zero)
		add(accounts.WalletLiability, decimal.Zero, st.WalletDelta)
	}

	cost := decimal.Zero
	for _, m := range movements {
		cost = cost.Add(m.UnitCost.Mul(decimal.NewFromInt(-m.QtyDelta)))
	}
	cost = cost.Round(2)
	if cost.IsPositive() {
		add(accounts.COGS, cost, decimal.Zero)
		add(accounts.InventoryAsset, decimal.Zero, cost)
	}

	return PostingInput{
		SourceModule: "POS.SALE",
		SourceID:     saleID,
		Memo:         fmt.Sprintf("Sale %s", saleID),
		PostedAt:     postedAt,
		Lines:        lines,
	}
}
