package ledger

import (
	"strings"
	"time"
	"unicode"

	"github.com/club19/salesos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CounterpartyKind distinguishes buyers from suppliers
type CounterpartyKind string

const (
	CounterpartyBuyer    CounterpartyKind = "buyer"
	CounterpartySupplier CounterpartyKind = "supplier"
)

// IsValid checks if the kind is known
func (k CounterpartyKind) IsValid() bool {
	return k == CounterpartyBuyer || k == CounterpartySupplier
}

// Counterparty is a buyer or supplier referenced by sales. Sales hold its id
// only and never own its lifecycle.
type Counterparty struct {
	ID                uuid.UUID
	Kind              CounterpartyKind
	Name              string
	NormalizedName    string
	ExternalContactID string
	RequiresReview    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewCounterparty creates a counterparty with its normalised lookup key
func NewCounterparty(kind CounterpartyKind, name string) (*Counterparty, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Counterparty kind must be buyer or supplier")
	}
	name = strings.TrimSpace(name)
	requiresReview := false
	if kind == CounterpartySupplier {
		name, requiresReview = CanonicalSupplierName(name)
	}
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Counterparty name cannot be empty")
	}
	now := time.Now()
	return &Counterparty{
		ID:             uuid.New(),
		Kind:           kind,
		Name:           name,
		NormalizedName: normalized,
		RequiresReview: requiresReview,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// LinkExternalContact records the platform contact id if none is set yet
func (c *Counterparty) LinkExternalContact(contactID string) bool {
	if contactID == "" || c.ExternalContactID == contactID {
		return false
	}
	if c.ExternalContactID != "" {
		return false
	}
	c.ExternalContactID = contactID
	c.UpdatedAt = time.Now()
	return true
}

// NormalizeName produces the lookup key for a counterparty name: accents are
// stripped, case is folded and runs of whitespace collapse to one space.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// supplierAliases merges known spellings of the same supplier.
var supplierAliases = map[string]string{
	"galaxy":              "Galaxy VIC",
	"galaxy vic":          "Galaxy VIC",
	"stock":               "Stock (Internal)",
	"in stock":            "Stock (Internal)",
	"stock (internal)":    "Stock (Internal)",
	"bags by appointment": "Bags by Appointment",
	"bagsbyappointment":   "Bags by Appointment",
}

// ambiguousSuppliers cannot be merged automatically and are flagged for review.
var ambiguousSuppliers = map[string]struct{}{
	"l19 stock": {},
	"local":     {},
	"tsum":      {},
}

// CanonicalSupplierName maps a raw supplier name onto its canonical spelling
// and reports whether a human should review the match.
func CanonicalSupplierName(raw string) (string, bool) {
	key := NormalizeName(raw)
	if key == "" {
		return "Unknown", true
	}
	if canonical, ok := supplierAliases[key]; ok {
		return canonical, false
	}
	if _, ok := ambiguousSuppliers[key]; ok {
		return strings.TrimSpace(raw), true
	}
	return strings.TrimSpace(raw), false
}

// Introducer refers clients and earns a commission percent on their deals
type Introducer struct {
	ID                uuid.UUID
	Name              string
	CommissionPercent decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
