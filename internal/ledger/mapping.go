package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// MappingStore provides account mapping lookups.
type MappingStore interface {
	Get(ctx context.Context, tenantID int64, module, key string) (AccountMapping, error)
}

// Resolver resolves mapping keys to account ids with a Redis cache in front
// of the store. Concurrent checkouts resolving the same key share one load.
type Resolver struct {
	store MappingStore
	cache *Cache
	group singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(store MappingStore, cache *Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve returns the account id mapped to (module, key) for the tenant.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64, module, key string) (int64, error) {
	cacheKey := fmt.Sprintf("ledger:mapping:%d:%s:%s", tenantID, module, key)
	if id, ok := r.cache.GetAccountID(ctx, cacheKey); ok {
		return id, nil
	}
	result, err, _ := r.group.Do(cacheKey, func() (any, error) {
		mapping, err := r.store.Get(ctx, tenantID, module, key)
		if err != nil {
			return int64(0), err
		}
		r.cache.SetAccountID(ctx, cacheKey, mapping.AccountID)
		return mapping.AccountID, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// SaleAccounts resolves the full canonical account set for sale postings.
// A missing mapping aborts the sale before any resource is touched.
func (r *Resolver) SaleAccounts(ctx context.Context, scope shared.Scope) (SaleAccounts, error) {
	var accounts SaleAccounts
	for _, target := range []struct {
		key  string
		dest *int64
	}{
		{KeyCashInTransit, &accounts.CashInTransit},
		{KeyReceivable, &accounts.Receivable},
		{KeyRevenue, &accounts.Revenue},
		{KeyTaxPayable, &accounts.TaxPayable},
		{KeyDiscountsGiven, &accounts.DiscountsGiven},
		{KeyDeliveryIncome, &accounts.DeliveryIncome},
		{KeyWalletLiability, &accounts.WalletLiability},
		{KeyCOGS, &accounts.COGS},
		{KeyInventoryAsset, &accounts.InventoryAsset},
	} {
		id, err := r.Resolve(ctx, scope.TenantID, MappingModuleSale, target.key)
		if err != nil {
			return SaleAccounts{}, fmt.Errorf("resolve %s: %w", target.key, err)
		}
		*target.dest = id
	}
	return accounts, nil
}
