package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSale(t *testing.T, reference string) *ledger.Sale {
	t.Helper()
	sale, err := ledger.NewSale(reference, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	sale.BuyerName = "Jane Doe"
	sale.AmountIncTax = decimal.RequireFromString("12000.00")
	sale.BuyPrice = decimal.RequireFromString("9000.00")
	return sale
}

func newImportedTestSale(t *testing.T, externalID string) *ledger.Sale {
	t.Helper()
	sale, err := ledger.NewImportedSale(ledger.ImportedInvoice{
		ExternalInvoiceID: externalID,
		InvoiceNumber:     "INV-" + externalID,
		ExternalStatus:    "AUTHORISED",
		Date:              time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		BuyerName:         "Jane Doe",
		AmountIncTax:      decimal.RequireFromString("500.00"),
	}, ledger.StatusInvoiced)
	require.NoError(t, err)
	return sale
}

func TestGormSaleRepository_SaveAndFind(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()

	sale := newTestSale(t, "C19-0001")
	override := decimal.RequireFromString("12.50")
	sale.OverridePercent = &override
	sale.RecordError("margin looks implausible")
	require.NoError(t, repo.Save(ctx, sale))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, "C19-0001", found.Reference)
		assert.Equal(t, ledger.StatusDraft, found.Status)
		assert.Equal(t, ledger.SourceInternal, found.Source)
		assert.True(t, found.AmountIncTax.Equal(decimal.RequireFromString("12000")))
		require.NotNil(t, found.OverridePercent)
		assert.True(t, found.OverridePercent.Equal(override))
		assert.True(t, found.HasError)
		assert.Equal(t, []string{"margin looks implausible"}, found.ErrorMessages)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("returns nil for missing sale", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("empty lookups return nil without querying", func(t *testing.T) {
		found, err := repo.FindByExternalInvoiceID(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, found)

		found, err = repo.FindByInvoiceNumber(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestGormSaleRepository_SaveWithLock(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()

	sale := newTestSale(t, "C19-0002")
	require.NoError(t, repo.Save(ctx, sale))

	t.Run("writes and advances the version", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)

		loaded.Status = ledger.StatusInvoiced
		loaded.HasError = false
		require.NoError(t, repo.SaveWithLock(ctx, loaded))
		assert.Equal(t, 2, loaded.Version)

		reloaded, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusInvoiced, reloaded.Status)
		assert.Equal(t, 2, reloaded.Version)
	})

	t.Run("stale version conflicts and leaves the row unchanged", func(t *testing.T) {
		first, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)

		first.Status = ledger.StatusPaid
		require.NoError(t, repo.SaveWithLock(ctx, first))

		second.Status = ledger.StatusOngoing
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPaid, reloaded.Status)
	})

	t.Run("zero values are written", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)

		loaded.NeedsAllocation = false
		loaded.BuyPrice = decimal.Zero
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		reloaded, err := repo.FindByID(ctx, sale.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.BuyPrice.IsZero())
	})
}

func TestGormSaleRepository_CreateOrGetByExternalInvoiceID(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()

	t.Run("creates then returns the existing row", func(t *testing.T) {
		first := newImportedTestSale(t, "inv-1")
		stored, created, err := repo.CreateOrGetByExternalInvoiceID(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, first.ID, stored.ID)

		again := newImportedTestSale(t, "inv-1")
		stored, created, err = repo.CreateOrGetByExternalInvoiceID(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, stored.ID)
	})

	t.Run("concurrent creators end with a single row", func(t *testing.T) {
		const workers = 8
		var wg sync.WaitGroup
		ids := make(chan uuid.UUID, workers)
		createdCount := make(chan bool, workers)

		candidates := make([]*ledger.Sale, workers)
		for i := range candidates {
			candidates[i] = newImportedTestSale(t, "inv-race")
		}

		for _, candidate := range candidates {
			wg.Add(1)
			go func(candidate *ledger.Sale) {
				defer wg.Done()
				stored, created, err := repo.CreateOrGetByExternalInvoiceID(ctx, candidate)
				if assert.NoError(t, err) {
					ids <- stored.ID
					createdCount <- created
				}
			}(candidate)
		}
		wg.Wait()
		close(ids)
		close(createdCount)

		var distinct = map[uuid.UUID]struct{}{}
		for id := range ids {
			distinct[id] = struct{}{}
		}
		creations := 0
		for c := range createdCount {
			if c {
				creations++
			}
		}
		assert.Len(t, distinct, 1)
		assert.Equal(t, 1, creations)

		var count int64
		require.NoError(t, db.Table("sales").Where("external_invoice_id = ?", "inv-race").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("requires an external id", func(t *testing.T) {
		_, _, err := repo.CreateOrGetByExternalInvoiceID(ctx, newTestSale(t, "C19-0003"))
		assert.ErrorIs(t, err, ErrExternalInvoiceIDRequired)
	})

	t.Run("finds by invoice number", func(t *testing.T) {
		found, err := repo.FindByInvoiceNumber(ctx, "INV-inv-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "inv-1", found.ExternalID())
		assert.True(t, found.NeedsAllocation)
		assert.Equal(t, ledger.SourceXeroImport, found.Source)
	})
}

func TestGormSaleRepository_List(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()

	for i, ref := range []string{"A-1", "A-2", "A-3"} {
		sale := newTestSale(t, ref)
		sale.SaleDate = sale.SaleDate.AddDate(0, 0, i)
		require.NoError(t, repo.Save(ctx, sale))
	}
	imported := newImportedTestSale(t, "inv-list")
	_, _, err := repo.CreateOrGetByExternalInvoiceID(ctx, imported)
	require.NoError(t, err)

	deleted := newTestSale(t, "A-deleted")
	deleted.SoftDelete()
	require.NoError(t, repo.Save(ctx, deleted))

	t.Run("excludes deleted sales", func(t *testing.T) {
		sales, total, err := repo.List(ctx, ledger.SaleFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, sales, 4)
	})

	t.Run("filters needs allocation", func(t *testing.T) {
		needs := true
		sales, total, err := repo.List(ctx, ledger.SaleFilter{NeedsAllocation: &needs})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "inv-list", sales[0].ExternalID())
	})

	t.Run("filters status", func(t *testing.T) {
		status := ledger.StatusDraft
		_, total, err := repo.List(ctx, ledger.SaleFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("paginates with whitelisted ordering", func(t *testing.T) {
		sales, total, err := repo.List(ctx, ledger.SaleFilter{
			Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "reference", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, sales, 2)
		assert.Equal(t, "A-1", sales[0].Reference)
		assert.Equal(t, "A-2", sales[1].Reference)
	})

	t.Run("unknown sort field falls back to sale date", func(t *testing.T) {
		sales, _, err := repo.List(ctx, ledger.SaleFilter{
			Filter: shared.Filter{OrderBy: "reference; DROP TABLE sales", OrderDir: "desc"},
		})
		require.NoError(t, err)
		assert.Len(t, sales, 4)
	})
}

func TestGormSaleRepository_QueryShape(t *testing.T) {
	gdb, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormSaleRepository(gdb.DB)

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "reference", "status", "source", "version"}).
		AddRow(id.String(), "C19-0009", "paid", "internal", 3)

	mock.ExpectQuery(`SELECT \* FROM "sales" WHERE id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(id, 1).
		WillReturnRows(rows)

	sale, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, ledger.StatusPaid, sale.Status)
	assert.Equal(t, 3, sale.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
