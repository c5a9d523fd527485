package services

import (
	"context"
	"sort"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/marginlab/api/internal/domain"
)

// Psychological price boundaries in integer currency units.
const (
	charmStep     = 10_000
	charmOffset   = 1_000
	roundStep     = 50_000
	minimumStep   = 1_000
	maxSuggestion = 4
)

// PriceFinderServiceDeps bundles dependencies required to construct a PriceFinderService.
type PriceFinderServiceDeps struct {
	Bundles BundleService
	IDGen   func() string
	Logger  func(context.Context, string, map[string]any)
}

type priceFinderService struct {
	bundles BundleService
	idGen   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewPriceFinderService wires the reverse price solver on top of the bundle calculator.
func NewPriceFinderService(deps PriceFinderServiceDeps) (PriceFinderService, error) {
	if deps.Bundles == nil {
		return nil, ErrBundleServiceMissing
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return calculationIDPrefix + ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &priceFinderService{bundles: deps.Bundles, idGen: idGen, logger: logger}, nil
}

// FindMinimumPrice solves netProfit = price×(1−feePercent/100) − fixedCosts − totalCost
// for price, then verifies the closed-form estimate against the capped fee
// model by re-running the bundle calculator at the resulting price. Service and
// cashback caps are ignored in the closed form, so the estimate can only be
// conservative (high), never under the target.
func (s *priceFinderService) FindMinimumPrice(ctx context.Context, cmd FindMinimumPriceCommand) (PriceFinderResult, error) {
	mode := domain.NormalizeAllocationMode(cmd.AllocationMode)
	result := PriceFinderResult{
		CalculationID:  s.idGen(),
		AllocationMode: mode,
	}

	items := make([]LineItem, len(cmd.Items))
	totalCost := int64(0)
	totalItems := 0
	for i, raw := range cmd.Items {
		item := normalizeLineItem(raw)
		items[i] = item
		totalCost += item.UnitCost * int64(item.Quantity)
		totalItems += item.Quantity
	}

	if totalCost == 0 {
		result.FailureReason = domain.PriceFinderFailureZeroCostBasis
		return result, nil
	}

	target := targetProfitAmount(cmd.Target, totalCost)
	result.TargetProfitAmount = target

	// Bundle pricing forces both programs on, so the closed form must assume
	// the same worst case or verification would land below the target.
	combined := clampRate(cmd.Fees.AdminRatePercent) +
		clampRate(cmd.Fees.ServiceRatePercent) +
		clampRate(cmd.Fees.CashbackRatePercent)
	result.CombinedFeePercent = combined

	if combined >= 100 {
		result.FailureReason = domain.PriceFinderFailureFeePercentTooHigh
		s.logger(ctx, "price_finder_unsolvable", map[string]any{"combinedFeePercent": combined})
		return result, nil
	}

	fixedCosts := cmd.Fees.PerOrderFixedFee
	if fixedCosts < 0 {
		fixedCosts = 0
	}
	if mode == domain.AllocationPerItem {
		fixedCosts *= int64(totalItems)
	}
	if cmd.Fees.PerTransactionFixedFee > 0 {
		fixedCosts += cmd.Fees.PerTransactionFixedFee
	}

	denominator := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(combined).Div(decimalHundred))
	minimum := decimal.NewFromInt(target + totalCost + fixedCosts).
		Div(denominator).
		Ceil().
		IntPart()

	verification, err := s.bundles.PriceBundle(ctx, PriceBundleCommand{
		Items:          items,
		BundlePrice:    minimum,
		Fees:           cmd.Fees,
		AllocationMode: mode,
	})
	if err != nil {
		return PriceFinderResult{}, err
	}

	result.Solvable = true
	result.MinimumViablePrice = minimum
	result.ActualProfitAtMinimum = verification.NetProfit
	result.ActualMarginAtMinimum = verification.MarginPercent

	suggestions, err := s.suggestPrices(ctx, items, cmd.Fees, mode, minimum)
	if err != nil {
		return PriceFinderResult{}, err
	}
	result.Suggestions = suggestions

	return result, nil
}

// suggestPrices generates up to four psychologically rounded retail prices at
// or above the minimum viable price, each verified against the full fee model.
func (s *priceFinderService) suggestPrices(ctx context.Context, items []LineItem, cfg FeeConfig, mode AllocationMode, minimum int64) ([]PriceSuggestion, error) {
	charm := charmPriceAtOrAbove(minimum)
	candidates := []PriceSuggestion{
		{Kind: domain.SuggestionCharm, Price: charm},
		{Kind: domain.SuggestionRound, Price: ceilToMultiple(minimum, roundStep)},
		{Kind: domain.SuggestionCharmNext, Price: charm + charmStep},
		{Kind: domain.SuggestionMinimum, Price: ceilToMultiple(minimum, minimumStep)},
	}

	seen := make(map[int64]bool, len(candidates))
	unique := candidates[:0]
	for _, candidate := range candidates {
		if candidate.Price < minimum || seen[candidate.Price] {
			continue
		}
		seen[candidate.Price] = true
		unique = append(unique, candidate)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Price < unique[j].Price })
	if len(unique) > maxSuggestion {
		unique = unique[:maxSuggestion]
	}

	for i := range unique {
		verification, err := s.bundles.PriceBundle(ctx, PriceBundleCommand{
			Items:          items,
			BundlePrice:    unique[i].Price,
			Fees:           cfg,
			AllocationMode: mode,
		})
		if err != nil {
			return nil, err
		}
		unique[i].NetProfit = verification.NetProfit
		unique[i].MarginPercent = verification.MarginPercent
	}

	return unique, nil
}

func targetProfitAmount(target ProfitTarget, totalCost int64) int64 {
	value := target.Value
	if value < 0 {
		value = 0
	}
	if target.Kind == domain.ProfitTargetPercentOfCost {
		return decimal.NewFromInt(totalCost).
			Mul(decimal.NewFromFloat(value)).
			Div(decimalHundred).
			Round(0).
			IntPart()
	}
	return decimal.NewFromFloat(value).Round(0).IntPart()
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	return rate
}

// charmPriceAtOrAbove returns the nearest ...9,000 price at or above p.
func charmPriceAtOrAbove(p int64) int64 {
	charm := ceilToMultiple(p, charmStep) - charmOffset
	if charm < p {
		charm += charmStep
	}
	return charm
}

func ceilToMultiple(value, multiple int64) int64 {
	if multiple <= 0 || value <= 0 {
		return value
	}
	return (value + multiple - 1) / multiple * multiple
}
