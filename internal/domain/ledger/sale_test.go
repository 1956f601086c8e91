package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSale(t *testing.T) {
	sale, err := NewSale(" C19-0042 ", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "C19-0042", sale.Reference)
	assert.Equal(t, StatusDraft, sale.Status)
	assert.Equal(t, SourceInternal, sale.Source)
	assert.Equal(t, 1, sale.Version)
	assert.False(t, sale.NeedsAllocation)

	_, err = NewSale("", time.Now())
	assert.Error(t, err)
}

func TestNewImportedSale(t *testing.T) {
	buyerID := uuid.New()
	sale, err := NewImportedSale(ImportedInvoice{
		ExternalInvoiceID: "inv-1",
		InvoiceNumber:     "INV-0100",
		ExternalStatus:    "AUTHORISED",
		BuyerID:           &buyerID,
		BuyerName:         "Jane Doe",
		AmountIncTax:      d("500.004"),
		Date:              time.Now(),
	}, StatusInvoiced)
	require.NoError(t, err)

	assert.Equal(t, "INV-0100", sale.Reference)
	assert.Equal(t, "inv-1", sale.ExternalID())
	assert.Equal(t, SourceXeroImport, sale.Source)
	assert.True(t, sale.NeedsAllocation)
	assert.Equal(t, StatusInvoiced, sale.Status)
	assertMoney(t, "500.00", sale.AmountIncTax)
	assert.True(t, sale.BuyPrice.IsZero())
	assert.Nil(t, sale.SupplierID)
	assert.Nil(t, sale.ShopperID)

	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeSaleImported, events[0].EventType())

	_, err = NewImportedSale(ImportedInvoice{}, StatusInvoiced)
	assert.Error(t, err)

	_, err = NewImportedSale(ImportedInvoice{ExternalInvoiceID: "x"}, StatusPaid)
	assert.Error(t, err)
}

func TestSale_ApplyExternalState(t *testing.T) {
	sale := newTestSale(t, StatusInvoiced)
	paid := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, sale.ApplyExternalState("PAID", &paid, "INV-1", "https://x/inv"))
	assert.Equal(t, "PAID", sale.ExternalStatus)
	assert.Equal(t, paid, *sale.ExternalPaidDate)
	assert.Equal(t, "INV-1", sale.InvoiceNumber)

	later := paid.Add(48 * time.Hour)
	assert.False(t, sale.ApplyExternalState("PAID", &later, "INV-2", "https://y"))
	assert.Equal(t, paid, *sale.ExternalPaidDate)
	assert.Equal(t, "INV-1", sale.InvoiceNumber)

	// Status changes are external-only; lifecycle status is not touched
	assert.Equal(t, StatusInvoiced, sale.Status)
}

func TestSale_ApplyEconomicsAndCommission(t *testing.T) {
	sale := newTestSale(t, StatusDraft)
	sale.AmountIncTax = d("12000")
	sale.BuyPrice = d("9000")
	sale.BrandingTheme = "standard"

	sale.ApplyEconomics(CalculateEconomics(sale.EconomicsInput()))
	assertMoney(t, "1000", sale.GrossMargin)

	band := &CommissionBand{ID: uuid.New(), Percent: d("10")}
	require.NoError(t, sale.ApplyCommission(CalculateCommission(CommissionInput{
		CommissionableMargin: sale.CommissionableMargin,
		Band:                 band,
	})))
	assertMoney(t, "100", sale.CommissionAmount)
	assert.False(t, sale.HasError)

	sale.CommissionLocked = true
	assert.Error(t, sale.ApplyCommission(CommissionResult{}))
}

func TestSale_FailedCommissionFlagsSale(t *testing.T) {
	sale := newTestSale(t, StatusDraft)

	require.NoError(t, sale.ApplyCommission(CalculateCommission(CommissionInput{CommissionableMargin: d("10")})))

	assert.True(t, sale.HasError)
	assert.NotEmpty(t, sale.ErrorMessages)
}

func TestSale_SoftDelete(t *testing.T) {
	sale := newTestSale(t, StatusDraft)
	sale.SoftDelete()
	first := *sale.DeletedAt
	sale.SoftDelete()

	assert.True(t, sale.IsDeleted())
	assert.Equal(t, first, *sale.DeletedAt)
}

func TestValidateMargin(t *testing.T) {
	supplierID := uuid.New()

	t.Run("zero amount", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		assert.Equal(t, []string{"sale amount is zero"}, ValidateMargin(sale))
	})

	t.Run("implausible supplier margin", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		sale.SupplierID = &supplierID
		sale.AmountIncTax = d("12000")
		sale.BuyPrice = d("1000")
		sale.ApplyEconomics(CalculateEconomics(sale.EconomicsInput()))

		warnings := ValidateMargin(sale)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "implausibly high")
	})

	t.Run("negative margin", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		sale.AmountIncTax = d("1200")
		sale.BuyPrice = d("1500")
		sale.ApplyEconomics(CalculateEconomics(sale.EconomicsInput()))

		warnings := ValidateMargin(sale)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "negative gross margin")
	})

	t.Run("needs allocation skips margin checks", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		sale.NeedsAllocation = true
		sale.AmountIncTax = d("500")
		sale.ApplyEconomics(CalculateEconomics(sale.EconomicsInput()))

		assert.Empty(t, ValidateMargin(sale))
	})

	t.Run("plausible", func(t *testing.T) {
		sale := newTestSale(t, StatusDraft)
		sale.SupplierID = &supplierID
		sale.AmountIncTax = d("12000")
		sale.BuyPrice = d("9000")
		sale.ApplyEconomics(CalculateEconomics(sale.EconomicsInput()))

		assert.Empty(t, ValidateMargin(sale))
	})
}

func TestErrorEntry_Resolve(t *testing.T) {
	entry := NewErrorEntry(SeverityHigh, ErrorSourceSecurity, "bad signature").WithContext("ip", "10.0.0.1")

	require.NoError(t, entry.Resolve("ops@club19"))
	assert.True(t, entry.Resolved)
	assert.NotNil(t, entry.ResolvedAt)
	assert.Equal(t, "ops@club19", entry.ResolvedBy)

	assert.Error(t, entry.Resolve("again"))
	assert.True(t, SeverityHigh.IsValid())
	assert.False(t, Severity("urgent").IsValid())
	assert.True(t, ErrorSourceCredential.IsValid())
}
