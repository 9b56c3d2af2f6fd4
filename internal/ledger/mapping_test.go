package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type memoryMappings struct {
	mappings map[string]int64
	loads    int
}

func (m *memoryMappings) Get(ctx context.Context, tenantID int64, module, key string) (AccountMapping, error) {
	m.loads++
	if id, ok := m.mappings[key]; ok {
		return AccountMapping{Module: module, Key: key, AccountID: id}, nil
	}
	return AccountMapping{}, ErrMappingNotFound
}

func fullMappings() *memoryMappings {
	return &memoryMappings{mappings: map[string]int64{
		KeyCashInTransit:   1,
		KeyReceivable:      2,
		KeyRevenue:         3,
		KeyTaxPayable:      4,
		KeyDiscountsGiven:  5,
		KeyDeliveryIncome:  6,
		KeyWalletLiability: 7,
		KeyCOGS:            8,
		KeyInventoryAsset:  9,
	}}
}

func TestResolverCachesLookups(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := fullMappings()
	resolver := NewResolver(store, NewCache(client, time.Minute))
	ctx := context.Background()

	id, err := resolver.Resolve(ctx, 1, MappingModuleSale, KeyRevenue)
	require.NoError(t, err)
	require.Equal(t, int64(3), id)
	require.Equal(t, 1, store.loads)

	id, err = resolver.Resolve(ctx, 1, MappingModuleSale, KeyRevenue)
	require.NoError(t, err)
	require.Equal(t, int64(3), id)
	require.Equal(t, 1, store.loads, "second resolve served from cache")

	// A different tenant does not share the cached entry.
	_, err = resolver.Resolve(ctx, 2, MappingModuleSale, KeyRevenue)
	require.NoError(t, err)
	require.Equal(t, 2, store.loads)
}

func TestResolverWorksWithoutRedis(t *testing.T) {
	store := fullMappings()
	resolver := NewResolver(store, nil)

	accounts, err := resolver.SaleAccounts(context.Background(), shared.Scope{TenantID: 1, BranchID: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), accounts.CashInTransit)
	require.Equal(t, int64(9), accounts.InventoryAsset)
}

func TestResolverMissingMapping(t *testing.T) {
	store := &memoryMappings{mappings: map[string]int64{KeyRevenue: 3}}
	resolver := NewResolver(store, nil)

	_, err := resolver.SaleAccounts(context.Background(), shared.Scope{TenantID: 1, BranchID: 1})
	require.ErrorIs(t, err, ErrMappingNotFound)
}
