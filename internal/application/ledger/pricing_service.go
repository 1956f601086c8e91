package ledger

import (
	"context"
	"fmt"

	"github.com/club19/salesos/internal/domain/ledger"
	"go.uber.org/zap"
)

// DefaultBandType is the commission band set used when none is configured
const DefaultBandType = "standard"

// NeedsAllocationWarning is attached to sales whose buy side is still unknown
const NeedsAllocationWarning = "needs allocation: buy price and supplier unknown, commission not calculated"

// PricingResult is the outcome of pricing one sale
type PricingResult struct {
	Economics  ledger.Economics
	Commission *ledger.CommissionResult
	Warnings   []string
	// ErrorEntry is set when validation produced warnings. It is linked to the
	// sale and must be recorded once the sale is stored.
	ErrorEntry *ledger.ErrorEntry
}

// PricingService derives the economics and commission of a sale
type PricingService struct {
	calculator  *ledger.EconomicsCalculator
	bands       ledger.CommissionBandRepository
	introducers ledger.IntroducerRepository
	bandType    string
	logger      *zap.Logger
}

// PricingServiceConfig holds dependencies for the PricingService
type PricingServiceConfig struct {
	Bands       ledger.CommissionBandRepository
	Introducers ledger.IntroducerRepository
	BandType    string
	Logger      *zap.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(cfg PricingServiceConfig) *PricingService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bandType := cfg.BandType
	if bandType == "" {
		bandType = DefaultBandType
	}
	return &PricingService{
		calculator:  ledger.NewEconomicsCalculator(logger),
		bands:       cfg.Bands,
		introducers: cfg.Introducers,
		bandType:    bandType,
		logger:      logger,
	}
}

// Price runs the economics calculator on the sale and, once the sale is
// allocated, the commission engine. Plausibility warnings flag the sale but
// never block it.
func (s *PricingService) Price(ctx context.Context, sale *ledger.Sale) (*PricingResult, error) {
	result := &PricingResult{}

	result.Economics = s.calculator.Calculate(sale.EconomicsInput())
	sale.ApplyEconomics(result.Economics)

	if sale.NeedsAllocation {
		result.Warnings = append(result.Warnings, NeedsAllocationWarning)
	} else if !sale.CommissionLocked {
		commission, err := s.commission(ctx, sale)
		if err != nil {
			return nil, err
		}
		if err := sale.ApplyCommission(commission); err != nil {
			return nil, err
		}
		result.Commission = &commission
		result.Warnings = append(result.Warnings, commission.Warnings...)
	}

	if warnings := ledger.ValidateMargin(sale); len(warnings) > 0 {
		sale.RecordError(warnings...)
		result.Warnings = append(result.Warnings, warnings...)
		result.ErrorEntry = ledger.NewErrorEntry(ledger.SeverityLow, ledger.ErrorSourceValidation, warnings...).
			ForSale(sale.ID).
			WithContext("reference", sale.Reference).
			WithContext("gross_margin", sale.GrossMargin.StringFixed(ledger.MoneyPlaces))
	}

	s.logger.Debug("Sale priced",
		zap.String("sale_id", sale.ID.String()),
		zap.String("scheme", string(result.Economics.Scheme)),
		zap.String("gross_margin", sale.GrossMargin.String()),
		zap.String("commissionable_margin", sale.CommissionableMargin.String()),
		zap.String("commission", sale.CommissionAmount.String()),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (s *PricingService) commission(ctx context.Context, sale *ledger.Sale) (ledger.CommissionResult, error) {
	in := ledger.CommissionInput{
		CommissionableMargin: sale.CommissionableMargin,
		OverridePercent:      sale.OverridePercent,
		OverrideNotes:        sale.OverrideNotes,
	}

	if sale.IntroducerID != nil && s.introducers != nil {
		introducer, err := s.introducers.FindByID(ctx, *sale.IntroducerID)
		if err != nil {
			return ledger.CommissionResult{}, fmt.Errorf("load introducer: %w", err)
		}
		if introducer != nil {
			pct := introducer.CommissionPercent
			in.IntroducerPercent = &pct
		} else {
			s.logger.Warn("Sale references an unknown introducer",
				zap.String("sale_id", sale.ID.String()),
				zap.String("introducer_id", sale.IntroducerID.String()))
		}
	}

	if s.bands != nil {
		bands, err := s.bands.FindByType(ctx, s.bandType)
		if err != nil {
			return ledger.CommissionResult{}, fmt.Errorf("load commission bands: %w", err)
		}
		in.Band = ledger.FindBand(bands, sale.CommissionableMargin)
	}

	return ledger.CalculateCommission(in), nil
}
