package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Jane Doe":      "jane doe",
		"  jane   DOE ": "jane doe",
		"Hermès Paris":  "hermes paris",
		"ZOË O'Brien":   "zoe o'brien",
		"":              "",
		"   ":           "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeName(in))
		})
	}
}

func TestCanonicalSupplierName(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		review bool
	}{
		{"Galaxy", "Galaxy VIC", false},
		{"galaxy vic", "Galaxy VIC", false},
		{"STOCK", "Stock (Internal)", false},
		{"In Stock", "Stock (Internal)", false},
		{"BagsbyAppointment", "Bags by Appointment", false},
		{"TSUM", "TSUM", true},
		{"Local", "Local", true},
		{"Vestiaire", "Vestiaire", false},
		{"", "Unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, review := CanonicalSupplierName(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.review, review)
		})
	}
}

func TestNewCounterparty(t *testing.T) {
	buyer, err := NewCounterparty(CounterpartyBuyer, "  Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", buyer.Name)
	assert.Equal(t, "jane doe", buyer.NormalizedName)
	assert.False(t, buyer.RequiresReview)

	supplier, err := NewCounterparty(CounterpartySupplier, "Galaxy Vic")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy VIC", supplier.Name)
	assert.Equal(t, "galaxy vic", supplier.NormalizedName)

	_, err = NewCounterparty(CounterpartyBuyer, "   ")
	assert.Error(t, err)

	_, err = NewCounterparty(CounterpartyKind("shopper"), "Anna")
	assert.Error(t, err)
}

func TestCounterparty_LinkExternalContact(t *testing.T) {
	c, err := NewCounterparty(CounterpartyBuyer, "Jane Doe")
	require.NoError(t, err)

	assert.True(t, c.LinkExternalContact("contact-1"))
	assert.False(t, c.LinkExternalContact("contact-1"))
	assert.False(t, c.LinkExternalContact("contact-2"))
	assert.False(t, c.LinkExternalContact(""))
	assert.Equal(t, "contact-1", c.ExternalContactID)
}
