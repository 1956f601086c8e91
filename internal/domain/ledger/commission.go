package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission errors
var (
	ErrBandsOverlap     = errors.New("ledger: commission bands overlap")
	ErrBandInvalidRange = errors.New("ledger: commission band max threshold must exceed min threshold")
	ErrBandInvalidRate  = errors.New("ledger: commission percent must be between 0 and 100")
)

// CommissionBasis names the input that determined the commission percent
type CommissionBasis string

const (
	CommissionBasisOverride   CommissionBasis = "override"
	CommissionBasisIntroducer CommissionBasis = "introducer"
	CommissionBasisBand       CommissionBasis = "band"
	CommissionBasisNone       CommissionBasis = "none"
)

// CommissionBand maps a commissionable margin range [MinThreshold, MaxThreshold)
// to a commission percent. A nil MaxThreshold is open-ended.
type CommissionBand struct {
	ID           uuid.UUID
	BandType     string
	MinThreshold decimal.Decimal
	MaxThreshold *decimal.Decimal
	Percent      decimal.Decimal
}

// Contains reports whether margin falls inside the band
func (b CommissionBand) Contains(margin decimal.Decimal) bool {
	if margin.LessThan(b.MinThreshold) {
		return false
	}
	return b.MaxThreshold == nil || margin.LessThan(*b.MaxThreshold)
}

// Validate checks the band's own range and rate
func (b CommissionBand) Validate() error {
	if b.MaxThreshold != nil && !b.MaxThreshold.GreaterThan(b.MinThreshold) {
		return fmt.Errorf("%w: [%s, %s)", ErrBandInvalidRange, b.MinThreshold, b.MaxThreshold)
	}
	if b.Percent.IsNegative() || b.Percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrBandInvalidRate, b.Percent)
	}
	return nil
}

// FindBand returns the first band containing margin, or nil when none does.
func FindBand(bands []CommissionBand, margin decimal.Decimal) *CommissionBand {
	for i := range bands {
		if bands[i].Contains(margin) {
			band := bands[i]
			return &band
		}
	}
	return nil
}

// ValidateBands checks every band and rejects any pair of overlapping ranges
// within the same band type.
func ValidateBands(bands []CommissionBand) error {
	byType := make(map[string][]CommissionBand)
	for _, b := range bands {
		if err := b.Validate(); err != nil {
			return err
		}
		byType[b.BandType] = append(byType[b.BandType], b)
	}

	for bandType, group := range byType {
		sort.Slice(group, func(i, j int) bool {
			return group[i].MinThreshold.LessThan(group[j].MinThreshold)
		})
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			if prev.MaxThreshold == nil || cur.MinThreshold.LessThan(*prev.MaxThreshold) {
				return fmt.Errorf("%w: type %q, band starting at %s overlaps band starting at %s",
					ErrBandsOverlap, bandType, cur.MinThreshold, prev.MinThreshold)
			}
		}
	}
	return nil
}

// CommissionInput holds everything the commission engine needs
type CommissionInput struct {
	CommissionableMargin decimal.Decimal
	IntroducerPercent    *decimal.Decimal
	Band                 *CommissionBand
	OverridePercent      *decimal.Decimal
	OverrideNotes        string
}

// CommissionResult is the outcome of CalculateCommission
type CommissionResult struct {
	OK              bool
	Basis           CommissionBasis
	Percent         decimal.Decimal
	Amount          decimal.Decimal
	ShopperShare    decimal.Decimal
	IntroducerShare decimal.Decimal
	BandID          *uuid.UUID
	Warnings        []string
	Errors          []string
}

// Messages returns errors followed by warnings
func (r CommissionResult) Messages() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred)
}

// CalculateCommission chooses a percent by strict precedence
// (override > introducer > band) and splits the resulting amount between
// shopper and introducer. The introducer share is the introducer percent of
// the amount. A zero amount is always accompanied by a reason.
func CalculateCommission(in CommissionInput) CommissionResult {
	res := CommissionResult{
		Basis:           CommissionBasisNone,
		Percent:         decimal.Zero,
		Amount:          decimal.Zero,
		ShopperShare:    decimal.Zero,
		IntroducerShare: decimal.Zero,
	}

	margin := RoundMoney(in.CommissionableMargin)
	hasIntroducer := in.IntroducerPercent != nil

	switch {
	case in.OverridePercent != nil:
		if !validPercent(*in.OverridePercent) {
			res.Errors = append(res.Errors, fmt.Sprintf("admin override percent %s is outside 0-100", in.OverridePercent))
			return res
		}
		res.Basis = CommissionBasisOverride
		res.Percent = *in.OverridePercent
		if in.OverrideNotes == "" {
			res.Warnings = append(res.Warnings, "admin override applied without notes")
		}
		if hasIntroducer {
			res.Warnings = append(res.Warnings, "admin override supersedes introducer percent")
		}
	case hasIntroducer:
		if !validPercent(*in.IntroducerPercent) {
			res.Errors = append(res.Errors, fmt.Sprintf("introducer percent %s is outside 0-100", in.IntroducerPercent))
			return res
		}
		res.Basis = CommissionBasisIntroducer
		res.Percent = *in.IntroducerPercent
	case in.Band != nil:
		res.Basis = CommissionBasisBand
		res.Percent = in.Band.Percent
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("no commission band covers margin %s", margin.StringFixed(MoneyPlaces)))
		return res
	}

	if in.Band != nil {
		id := in.Band.ID
		res.BandID = &id
	}

	switch {
	case margin.IsNegative():
		res.Warnings = append(res.Warnings, fmt.Sprintf("negative commissionable margin %s, commission set to zero", margin.StringFixed(MoneyPlaces)))
	case margin.IsZero():
		res.Warnings = append(res.Warnings, "zero commissionable margin")
	default:
		res.Amount = percentOf(margin, res.Percent)
	}

	if res.Amount.IsZero() && res.Percent.IsZero() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s percent is zero", res.Basis))
	}

	// The introducer takes their percent of the commission, not of the margin.
	res.ShopperShare = res.Amount
	if hasIntroducer && res.Amount.IsPositive() {
		share := percentOf(res.Amount, *in.IntroducerPercent)
		switch {
		case share.IsNegative():
			share = decimal.Zero
		case share.GreaterThan(res.Amount):
			share = res.Amount
		}
		res.IntroducerShare = share
		res.ShopperShare = RoundMoney(res.Amount.Sub(share))
		if res.ShopperShare.IsZero() {
			res.Warnings = append(res.Warnings, "introducer share consumes the full commission, shopper share is zero")
		}
	}

	res.OK = true
	return res
}
