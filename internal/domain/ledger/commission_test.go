package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func testBands() []CommissionBand {
	return []CommissionBand{
		{ID: uuid.New(), BandType: "standard", MinThreshold: d("0"), MaxThreshold: pct("1000"), Percent: d("10")},
		{ID: uuid.New(), BandType: "standard", MinThreshold: d("1000"), MaxThreshold: pct("5000"), Percent: d("15")},
		{ID: uuid.New(), BandType: "standard", MinThreshold: d("5000"), MaxThreshold: nil, Percent: d("20")},
	}
}

func TestFindBand(t *testing.T) {
	bands := testBands()

	tests := []struct {
		margin string
		want   string
	}{
		{"0", "10"},
		{"999.99", "10"},
		{"1000", "15"},
		{"4999.99", "15"},
		{"5000", "20"},
		{"250000", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.margin, func(t *testing.T) {
			band := FindBand(bands, d(tt.margin))
			require.NotNil(t, band)
			assert.True(t, d(tt.want).Equal(band.Percent))
		})
	}

	assert.Nil(t, FindBand(bands, d("-1")))
	assert.Nil(t, FindBand(nil, d("100")))
}

func TestFindBand_FirstContainingWins(t *testing.T) {
	first := CommissionBand{ID: uuid.New(), MinThreshold: d("0"), Percent: d("5")}
	second := CommissionBand{ID: uuid.New(), MinThreshold: d("0"), Percent: d("50")}

	band := FindBand([]CommissionBand{first, second}, d("10"))

	require.NotNil(t, band)
	assert.Equal(t, first.ID, band.ID)
}

func TestValidateBands(t *testing.T) {
	assert.NoError(t, ValidateBands(testBands()))

	t.Run("overlapping ranges", func(t *testing.T) {
		bands := append(testBands(), CommissionBand{BandType: "standard", MinThreshold: d("4000"), MaxThreshold: pct("6000"), Percent: d("12")})
		err := ValidateBands(bands)
		assert.True(t, errors.Is(err, ErrBandsOverlap))
	})

	t.Run("open ended band followed by another", func(t *testing.T) {
		bands := []CommissionBand{
			{BandType: "standard", MinThreshold: d("0"), Percent: d("10")},
			{BandType: "standard", MinThreshold: d("100"), MaxThreshold: pct("200"), Percent: d("10")},
		}
		assert.ErrorIs(t, ValidateBands(bands), ErrBandsOverlap)
	})

	t.Run("different band types may share ranges", func(t *testing.T) {
		bands := []CommissionBand{
			{BandType: "standard", MinThreshold: d("0"), MaxThreshold: pct("100"), Percent: d("10")},
			{BandType: "trade", MinThreshold: d("0"), MaxThreshold: pct("100"), Percent: d("5")},
		}
		assert.NoError(t, ValidateBands(bands))
	})

	t.Run("inverted range", func(t *testing.T) {
		bands := []CommissionBand{{MinThreshold: d("100"), MaxThreshold: pct("100"), Percent: d("10")}}
		assert.ErrorIs(t, ValidateBands(bands), ErrBandInvalidRange)
	})

	t.Run("rate above 100", func(t *testing.T) {
		bands := []CommissionBand{{MinThreshold: d("0"), Percent: d("101")}}
		assert.ErrorIs(t, ValidateBands(bands), ErrBandInvalidRate)
	})
}

func TestCalculateCommission_Precedence(t *testing.T) {
	band := &CommissionBand{ID: uuid.New(), MinThreshold: d("0"), Percent: d("15")}

	tests := []struct {
		name       string
		override   *decimal.Decimal
		introducer *decimal.Decimal
		band       *CommissionBand
		basis      CommissionBasis
		percent    string
	}{
		{"override only", pct("30"), nil, nil, CommissionBasisOverride, "30"},
		{"override beats band", pct("30"), nil, band, CommissionBasisOverride, "30"},
		{"override beats introducer", pct("30"), pct("5"), nil, CommissionBasisOverride, "30"},
		{"override beats all", pct("30"), pct("5"), band, CommissionBasisOverride, "30"},
		{"introducer beats band", nil, pct("5"), band, CommissionBasisIntroducer, "5"},
		{"introducer only", nil, pct("5"), nil, CommissionBasisIntroducer, "5"},
		{"band only", nil, nil, band, CommissionBasisBand, "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculateCommission(CommissionInput{
				CommissionableMargin: d("1000"),
				OverridePercent:      tt.override,
				OverrideNotes:        "agreed with client",
				IntroducerPercent:    tt.introducer,
				Band:                 tt.band,
			})
			require.True(t, res.OK)
			assert.Equal(t, tt.basis, res.Basis)
			assert.True(t, d(tt.percent).Equal(res.Percent))
		})
	}
}

func TestCalculateCommission_NoBasisFails(t *testing.T) {
	res := CalculateCommission(CommissionInput{CommissionableMargin: d("1000")})

	assert.False(t, res.OK)
	assert.Equal(t, CommissionBasisNone, res.Basis)
	assert.True(t, res.Amount.IsZero())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "no commission band")
}

func TestCalculateCommission_Amounts(t *testing.T) {
	t.Run("band commission all to shopper", func(t *testing.T) {
		band := &CommissionBand{ID: uuid.New(), Percent: d("15")}
		res := CalculateCommission(CommissionInput{CommissionableMargin: d("1234.56"), Band: band})

		require.True(t, res.OK)
		assertMoney(t, "185.18", res.Amount)
		assertMoney(t, "185.18", res.ShopperShare)
		assertMoney(t, "0", res.IntroducerShare)
		require.NotNil(t, res.BandID)
		assert.Equal(t, band.ID, *res.BandID)
	})

	t.Run("override split with introducer", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{
			CommissionableMargin: d("1000"),
			OverridePercent:      pct("20"),
			OverrideNotes:        "vip",
			IntroducerPercent:    pct("5"),
		})

		require.True(t, res.OK)
		assertMoney(t, "200", res.Amount)
		assertMoney(t, "10", res.IntroducerShare)
		assertMoney(t, "190", res.ShopperShare)
		assert.Contains(t, res.Warnings, "admin override supersedes introducer percent")
	})

	t.Run("introducer basis keeps a shopper share", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{
			CommissionableMargin: d("1000"),
			IntroducerPercent:    pct("20"),
			Band:                 &CommissionBand{ID: uuid.New(), Percent: d("10")},
		})

		require.True(t, res.OK)
		assert.Equal(t, CommissionBasisIntroducer, res.Basis)
		assertMoney(t, "200", res.Amount)
		assertMoney(t, "40", res.IntroducerShare)
		assertMoney(t, "160", res.ShopperShare)
		assert.True(t, res.IntroducerShare.Add(res.ShopperShare).Equal(res.Amount))
		assert.Empty(t, res.Warnings)
	})

	t.Run("introducer share rounds and sums to the amount", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{
			CommissionableMargin: d("1234.56"),
			IntroducerPercent:    pct("12.5"),
		})

		require.True(t, res.OK)
		assertMoney(t, "154.32", res.Amount)
		assertMoney(t, "19.29", res.IntroducerShare)
		assertMoney(t, "135.03", res.ShopperShare)
	})

	t.Run("a full introducer percent leaves the shopper nothing and says so", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{
			CommissionableMargin: d("500"),
			OverridePercent:      pct("10"),
			OverrideNotes:        "one-off",
			IntroducerPercent:    pct("100"),
		})

		require.True(t, res.OK)
		assertMoney(t, "50", res.IntroducerShare)
		assertMoney(t, "0", res.ShopperShare)
		assert.Contains(t, res.Warnings, "introducer share consumes the full commission, shopper share is zero")
	})

	t.Run("negative margin yields zero with a reason", func(t *testing.T) {
		band := &CommissionBand{ID: uuid.New(), Percent: d("10")}
		res := CalculateCommission(CommissionInput{CommissionableMargin: d("-50"), Band: band})

		assert.True(t, res.OK)
		assert.True(t, res.Amount.IsZero())
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "negative commissionable margin")
	})

	t.Run("override without notes warns", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{CommissionableMargin: d("100"), OverridePercent: pct("10")})

		assert.True(t, res.OK)
		assert.Contains(t, res.Warnings, "admin override applied without notes")
	})

	t.Run("override out of range", func(t *testing.T) {
		res := CalculateCommission(CommissionInput{CommissionableMargin: d("100"), OverridePercent: pct("150")})

		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Errors)
	})
}

func TestCalculateCommission_ZeroAmountAlwaysExplained(t *testing.T) {
	inputs := []CommissionInput{
		{CommissionableMargin: d("0"), Band: &CommissionBand{Percent: d("10")}},
		{CommissionableMargin: d("100"), Band: &CommissionBand{Percent: d("0")}},
		{CommissionableMargin: d("-1"), IntroducerPercent: pct("5")},
		{CommissionableMargin: d("100")},
	}
	for _, in := range inputs {
		res := CalculateCommission(in)
		if res.Amount.IsZero() {
			assert.NotEmpty(t, res.Messages())
		}
	}
}
