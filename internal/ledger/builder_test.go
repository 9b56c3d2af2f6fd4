package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/payment"
	"github.com/meridian-pos/meridian-pos/internal/pricing"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var testAccounts = SaleAccounts{
	CashInTransit:   1,
	Receivable:      2,
	Revenue:         3,
	TaxPayable:      4,
	DiscountsGiven:  5,
	DeliveryIncome:  6,
	WalletLiability: 7,
	COGS:            8,
	InventoryAsset:  9,
}

func testOrder() pricing.PricedOrder {
	return pricing.PricedOrder{
		Currency:       "IDR",
		Subtotal:       dec("1000"),
		DiscountAmount: dec("100"),
		TaxAmount:      dec("144"),
		DeliveryCost:   dec("0"),
		GrandTotal:     dec("1044"),
	}
}

func testMovements() []stock.Movement {
	return []stock.Movement{
		{ProductID: 1, QtyDelta: -4, UnitCost: dec("120")},
		{ProductID: 2, QtyDelta: -1, UnitCost: dec("55.25")},
	}
}

func lineAmount(t *testing.T, input PostingInput, accountID int64) (debit, credit decimal.Decimal) {
	t.Helper()
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range input.Lines {
		if line.AccountID == accountID {
			debit = debit.Add(line.Debit)
			credit = credit.Add(line.Credit)
		}
	}
	return debit, credit
}

func TestBuildSalePostingExact(t *testing.T) {
	st := payment.Settlement{
		Outcome:     payment.Outcome{Kind: payment.OutcomeExact},
		Resolution:  payment.ResolutionNone,
		CashApplied: dec("1044"),
	}
	input := BuildSalePosting(uuid.New(), time.Now(), testOrder(), st, testMovements(), testAccounts)
	require.NoError(t, input.Validate())

	cashDr, _ := lineAmount(t, input, testAccounts.CashInTransit)
	require.True(t, cashDr.Equal(dec("1044")))
	_, revenueCr := lineAmount(t, input, testAccounts.Revenue)
	require.True(t, revenueCr.Equal(dec("1000")))
	_, taxCr := lineAmount(t, input, testAccounts.TaxPayable)
	require.True(t, taxCr.Equal(dec("144")))
	discountDr, _ := lineAmount(t, input, testAccounts.DiscountsGiven)
	require.True(t, discountDr.Equal(dec("100")))
	cogsDr, _ := lineAmount(t, input, testAccounts.COGS)
	require.True(t, cogsDr.Equal(dec("535.25")), "cogs %s", cogsDr)
	_, invCr := lineAmount(t, input, testAccounts.InventoryAsset)
	require.True(t, invCr.Equal(dec("535.25")))
}

func TestBuildSalePostingDebt(t *testing.T) {
	// Tendered 1000 against 1044: 44 booked as receivable instead of cash.
	st := payment.Settlement{
		Outcome:     payment.Outcome{Kind: payment.OutcomeUnderpaid, Balance: dec("44")},
		Resolution:  payment.ResolutionAllowDebt,
		CashApplied: dec("1000"),
		DebtDelta:   dec("44"),
	}
	input := BuildSalePosting(uuid.New(), time.Now(), testOrder(), st, testMovements(), testAccounts)
	require.NoError(t, input.Validate())

	cashDr, _ := lineAmount(t, input, testAccounts.CashInTransit)
	require.True(t, cashDr.Equal(dec("1000")))
	arDr, _ := lineAmount(t, input, testAccounts.Receivable)
	require.True(t, arDr.Equal(dec("44")))
}

func TestBuildSalePostingWalletCredit(t *testing.T) {
	// Tendered 1100 against 1044: the 56 excess is kept as wallet credit,
	// adding a balanced cash/liability pair.
	st := payment.Settlement{
		Outcome:     payment.Outcome{Kind: payment.OutcomeOverpaid, Excess: dec("56")},
		Resolution:  payment.ResolutionCreditWallet,
		CashApplied: dec("1044"),
		WalletDelta: dec("56"),
	}
	input := BuildSalePosting(uuid.New(), time.Now(), testOrder(), st, testMovements(), testAccounts)
	require.NoError(t, input.Validate())

	cashDr, _ := lineAmount(t, input, testAccounts.CashInTransit)
	require.True(t, cashDr.Equal(dec("1100")), "cash %s", cashDr)
	_, walletCr := lineAmount(t, input, testAccounts.WalletLiability)
	require.True(t, walletCr.Equal(dec("56")))
}

func TestBuildSalePostingWithDelivery(t *testing.T) {
	order := pricing.PricedOrder{
		Currency:       "IDR",
		Subtotal:       dec("500"),
		DiscountAmount: dec("0"),
		TaxAmount:      dec("50"),
		DeliveryCost:   dec("25"),
		GrandTotal:     dec("575"),
	}
	st := payment.Settlement{
		Outcome:     payment.Outcome{Kind: payment.OutcomeExact},
		Resolution:  payment.ResolutionNone,
		CashApplied: dec("575"),
	}
	input := BuildSalePosting(uuid.New(), time.Now(), order, st, nil, testAccounts)
	require.NoError(t, input.Validate())

	_, deliveryCr := lineAmount(t, input, testAccounts.DeliveryIncome)
	require.True(t, deliveryCr.Equal(dec("25")))
}

func TestBuildSalePostingAlwaysBalances(t *testing.T) {
	settlements := []payment.Settlement{
		{Outcome: payment.Outcome{Kind: payment.OutcomeExact}, CashApplied: dec("1044")},
		{Outcome: payment.Outcome{Kind: payment.OutcomeUnderpaid, Balance: dec("44")}, CashApplied: dec("1000"), DebtDelta: dec("44")},
		{Outcome: payment.Outcome{Kind: payment.OutcomeOverpaid, Excess: dec("56")}, CashApplied: dec("1044"), WalletDelta: dec("56")},
		{Outcome: payment.Outcome{Kind: payment.OutcomeOverpaid, Excess: dec("56")}, CashApplied: dec("1044")},
	}
	for _, st := range settlements {
		input := BuildSalePosting(uuid.New(), time.Now(), testOrder(), st, testMovements(), testAccounts)
		require.NoError(t, input.Validate(), "settlement %+v", st)
	}
}

func TestBuildSalePostingDiscountedSaleBalances(t *testing.T) {
	// Revenue must be credited gross: cash is debited for the discounted
	// grand total while the discount contra is debited separately, so a net
	// revenue credit would leave the posting short by the discount amount.
	st := payment.Settlement{
		Outcome:     payment.Outcome{Kind: payment.OutcomeExact},
		Resolution:  payment.ResolutionNone,
		CashApplied: dec("1044"),
	}
	input := BuildSalePosting(uuid.New(), time.Now(), testOrder(), st, testMovements(), testAccounts)
	require.NoError(t, input.Validate())

	totalDr, totalCr := decimal.Zero, decimal.Zero
	for _, line := range input.Lines {
		totalDr = totalDr.Add(line.Debit)
		totalCr = totalCr.Add(line.Credit)
	}
	require.True(t, totalDr.Equal(totalCr), "debit %s credit %s", totalDr, totalCr)

	discountDr, _ := lineAmount(t, input, testAccounts.DiscountsGiven)
	_, revenueCr := lineAmount(t, input, testAccounts.Revenue)
	require.True(t, revenueCr.Sub(discountDr).Equal(dec("900")), "net revenue %s", revenueCr.Sub(discountDr))
}

func TestValidateRejectsImbalance(t *testing.T) {
	input := PostingInput{
		SourceModule: "POS.SALE",
		SourceID:     uuid.New(),
		PostedAt:     time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: dec("100")},
			{AccountID: 3, Credit: dec("99")},
		},
	}
	require.ErrorIs(t, input.Validate(), ErrImbalance)
}

func TestValidateRejectsTwoSidedLine(t *testing.T) {
	input := PostingInput{
		SourceModule: "POS.SALE",
		SourceID:     uuid.New(),
		PostedAt:     time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: dec("100"), Credit: dec("100")},
			{AccountID: 3, Credit: dec("0")},
		},
	}
	require.Error(t, input.Validate())
}
