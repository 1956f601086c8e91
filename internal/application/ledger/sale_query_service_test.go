package ledger

import (
	"context"
	"testing"

	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleQueryService(t *testing.T) {
	ctx := context.Background()
	draft := newSaleInStatus(t, ledger.StatusDraft)
	deleted := newSaleInStatus(t, ledger.StatusDraft)
	deleted.SoftDelete()
	svc := NewSaleQueryService(newMemorySaleRepo(draft, deleted))

	t.Run("get returns the sale", func(t *testing.T) {
		sale, err := svc.Get(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.Reference, sale.Reference)
	})

	t.Run("deleted and missing sales are not found", func(t *testing.T) {
		_, err := svc.Get(ctx, deleted.ID)
		assert.ErrorIs(t, err, ErrSaleNotFound)
		_, err = svc.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrSaleNotFound)
	})

	t.Run("list pages results", func(t *testing.T) {
		page, err := svc.List(ctx, ledger.SaleFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 20, page.PageSize)
	})
}
