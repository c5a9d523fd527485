package services

import (
	"context"
	"fmt"
	"math"

	"github.com/oklog/ulid/v2"

	domain "github.com/marginlab/api/internal/domain"
)

// BundleServiceDeps bundles dependencies required to construct a BundleService.
type BundleServiceDeps struct {
	Engine *PricingEngine
	IDGen  func() string
	Logger func(context.Context, string, map[string]any)
}

type bundleService struct {
	engine *PricingEngine
	idGen  func() string
	logger func(context.Context, string, map[string]any)
}

// NewBundleService wires the two-phase bundle calculator on top of the pricing engine.
func NewBundleService(deps BundleServiceDeps) (BundleService, error) {
	if deps.Engine == nil {
		return nil, ErrPricingEngineMissing
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return calculationIDPrefix + ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &bundleService{engine: deps.Engine, idGen: idGen, logger: logger}, nil
}

func (s *bundleService) PriceBundle(ctx context.Context, cmd PriceBundleCommand) (BundleResult, error) {
	mode := domain.NormalizeAllocationMode(cmd.AllocationMode)

	if len(cmd.Items) == 0 {
		return BundleResult{
			CalculationID:  s.idGen(),
			MarginStatus:   domain.MarginStatusDanger,
			Items:          []AllocatedItem{},
			AllocationMode: domain.AllocationTotalBased,
		}, nil
	}

	price := cmd.BundlePrice
	if price < 0 {
		price = 0
	}
	voucher := cmd.VoucherAmount
	if voucher < 0 {
		voucher = 0
	}

	items := make([]LineItem, len(cmd.Items))
	itemCosts := make([]int64, len(cmd.Items))
	totalCost := int64(0)
	totalItems := 0
	for i, raw := range cmd.Items {
		item := normalizeLineItem(raw)
		qty := int64(item.Quantity)
		if item.UnitCost > 0 && item.UnitCost > math.MaxInt64/qty {
			return BundleResult{}, fmt.Errorf("%w: item %s cost overflow", ErrPricingInvalidInput, item.ID)
		}
		cost := item.UnitCost * qty
		if cost > 0 && totalCost > math.MaxInt64-cost {
			return BundleResult{}, fmt.Errorf("%w: bundle cost overflow", ErrPricingInvalidInput)
		}
		items[i] = item
		itemCosts[i] = cost
		totalCost += cost
		totalItems += item.Quantity
	}

	// Bundles always assume worst-case fees so the seller never under-estimates.
	feeCfg := cmd.Fees
	feeCfg.FreeShipProgramActive = true
	feeCfg.CashbackProgramActive = true

	fees := ComputeFees(price, voucher, feeCfg, mode, totalItems)

	netCash := price - fees.TotalFeeAmount - voucher
	netProfit := netCash - totalCost
	margin := 0.0
	if price > 0 {
		margin = float64(netProfit) / float64(price) * 100
	}

	allocated := s.allocateItems(items, itemCosts, totalCost, fees, netProfit, mode)

	individualProfit, err := s.individualSaleProfit(ctx, items, cmd.Fees)
	if err != nil {
		return BundleResult{}, err
	}
	delta := netProfit - individualProfit
	deltaPercent := 0.0
	if individualProfit != 0 {
		deltaPercent = float64(delta) / math.Abs(float64(individualProfit)) * 100
	}

	if netProfit < 0 {
		s.logger(ctx, "bundle_loss", map[string]any{"bundlePrice": price, "netProfit": netProfit})
	}

	return BundleResult{
		CalculationID:        s.idGen(),
		BundlePrice:          price,
		VoucherAmount:        voucher,
		TotalCost:            totalCost,
		TotalItemCount:       totalItems,
		Fees:                 fees,
		NetCashReceived:      netCash,
		NetProfit:            netProfit,
		MarginPercent:        margin,
		MarginStatus:         domain.MarginStatusFor(netProfit, margin),
		BreakEvenROAS:        breakEvenROAS(price, netProfit),
		Items:                allocated,
		IndividualSaleProfit: individualProfit,
		ProfitDelta:          delta,
		ProfitDeltaPercent:   deltaPercent,
		BundleMoreProfitable: netProfit > individualProfit,
		AllocationMode:       mode,
	}, nil
}

// allocateItems distributes bundle fees and profit back to each line item
// under the selected policy. Amounts are integer units; the largest-remainder
// split keeps the per-item sums equal to the bundle totals.
func (s *bundleService) allocateItems(items []LineItem, itemCosts []int64, totalCost int64, fees FeeBreakdown, netProfit int64, mode AllocationMode) []AllocatedItem {
	count := len(items)
	profitShares := allocateAmount(netProfit, itemCosts)

	var feeShares []int64
	var perUnitOrderFee int64
	switch mode {
	case domain.AllocationPerItem:
		// Percentage fees and the per-transaction fee follow cost share; the
		// per-order fee is charged per unit.
		percentShares := allocateAmount(fees.PercentageFeeAmount, itemCosts)
		txnShares := allocateAmount(fees.PerTransactionFeeAmount, itemCosts)
		feeShares = make([]int64, count)
		totalUnits := int64(0)
		for _, item := range items {
			totalUnits += int64(item.Quantity)
		}
		if totalUnits > 0 {
			perUnitOrderFee = fees.PerOrderFeeAmount / totalUnits
		}
		for i := range items {
			feeShares[i] = perUnitOrderFee*int64(items[i].Quantity) + percentShares[i] + txnShares[i]
		}
	default:
		feeShares = allocateAmount(fees.TotalFeeAmount, itemCosts)
	}

	allocated := make([]AllocatedItem, count)
	for i, item := range items {
		ratio := 0.0
		if totalCost > 0 {
			ratio = float64(itemCosts[i]) / float64(totalCost)
		} else {
			ratio = 1 / float64(count)
		}

		allocMargin := 0.0
		if basisShare := ratio * float64(fees.FeeBasis); basisShare > 0 {
			allocMargin = float64(profitShares[i]) / basisShare * 100
		}

		profitShare := 0.0
		if netProfit > 0 {
			profitShare = float64(profitShares[i]) / float64(netProfit) * 100
		}

		allocated[i] = AllocatedItem{
			Item:                   item,
			CostShareRatio:         ratio,
			AllocatedFeeAmount:     feeShares[i],
			AllocatedProfitAmount:  profitShares[i],
			ProfitSharePercent:     profitShare,
			AllocatedMarginPercent: allocMargin,
			MarginStatus:           domain.MarginStatusFor(profitShares[i], allocMargin),
		}
	}
	return allocated
}

// individualSaleProfit sums what each item would earn sold alone at its own
// list price with the caller's original fee configuration.
func (s *bundleService) individualSaleProfit(ctx context.Context, items []LineItem, cfg FeeConfig) (int64, error) {
	total := int64(0)
	for _, item := range items {
		item.DiscountPercent = 0
		result, err := s.engine.PriceSingleItem(ctx, PriceSingleItemCommand{Item: item, Fees: cfg})
		if err != nil {
			return 0, err
		}
		total += result.NetProfit
	}
	return total, nil
}
