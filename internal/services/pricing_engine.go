package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/marginlab/api/internal/domain"
)

const calculationIDPrefix = "calc_"

var decimalHundred = decimal.NewFromInt(100)

// PricingEngine applies a resolved FeeConfig to prices and derives single-item
// profitability. Every method is a pure computation over its arguments; the
// engine carries no mutable state beyond injected clock and ID generation.
type PricingEngine struct {
	now    func() time.Time
	idGen  func() string
	logger func(context.Context, string, map[string]any)
}

// PricingEngineDeps bundles optional dependencies for NewPricingEngine.
type PricingEngineDeps struct {
	Now    func() time.Time
	IDGen  func() string
	Logger func(context.Context, string, map[string]any)
}

// NewPricingEngine constructs the engine, defaulting any missing dependency.
func NewPricingEngine(deps PricingEngineDeps) *PricingEngine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return calculationIDPrefix + ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PricingEngine{
		now:    func() time.Time { return now().UTC() },
		idGen:  idGen,
		logger: logger,
	}
}

// ComputeFees applies a fee configuration to a price basis. The basis is
// clamped at zero so negative inputs cannot produce negative fees. In
// AllocationPerItem mode the fixed per-order fee is charged once per unit.
func ComputeFees(price, voucherAmount int64, cfg FeeConfig, mode AllocationMode, itemCount int) FeeBreakdown {
	basis := price - voucherAmount
	if basis < 0 {
		basis = 0
	}

	admin := percentFee(basis, cfg.AdminRatePercent)

	var service int64
	if cfg.FreeShipProgramActive {
		service = percentFee(basis, cfg.ServiceRatePercent)
		if cfg.ServiceCapAmount > 0 && service > cfg.ServiceCapAmount {
			service = cfg.ServiceCapAmount
		}
	}

	var cashback int64
	if cfg.CashbackProgramActive {
		cashback = percentFee(basis, cfg.CashbackRatePercent)
		if cfg.CashbackCapAmount > 0 && cashback > cfg.CashbackCapAmount {
			cashback = cfg.CashbackCapAmount
		}
	}

	perOrder := cfg.PerOrderFixedFee
	if perOrder < 0 {
		perOrder = 0
	}
	if domain.NormalizeAllocationMode(mode) == domain.AllocationPerItem {
		if itemCount < 1 {
			itemCount = 1
		}
		perOrder *= int64(itemCount)
	}

	perTxn := cfg.PerTransactionFixedFee
	if perTxn < 0 {
		perTxn = 0
	}

	percentage := admin + service + cashback
	fixed := perOrder + perTxn

	// The zero-basis fallback keeps reverse-solving sane at zero price.
	effective := cfg.AdminRatePercent + cfg.ServiceRatePercent
	if basis > 0 {
		effective = float64(percentage) / float64(basis) * 100
	}

	return FeeBreakdown{
		FeeBasis:                basis,
		AdminFeeAmount:          admin,
		ServiceFeeAmount:        service,
		CashbackFeeAmount:       cashback,
		PerOrderFeeAmount:       perOrder,
		PerTransactionFeeAmount: perTxn,
		TotalFeeAmount:          percentage + fixed,
		PercentageFeeAmount:     percentage,
		FixedFeeAmount:          fixed,
		EffectiveFeePercent:     effective,
	}
}

// PriceSingleItem applies discount and quantity to a unit price, computes fees,
// and derives net cash, net profit, and margin for a standalone sale.
func (e *PricingEngine) PriceSingleItem(ctx context.Context, cmd PriceSingleItemCommand) (ProfitResult, error) {
	item := normalizeLineItem(cmd.Item)
	voucher := cmd.VoucherAmount
	if voucher < 0 {
		voucher = 0
	}

	qty := int64(item.Quantity)
	listPrice := listPriceOrDefault(item)
	if listPrice > 0 && listPrice > math.MaxInt64/qty {
		return ProfitResult{}, fmt.Errorf("%w: item %s price overflow", ErrPricingInvalidInput, item.ID)
	}
	if item.UnitCost > 0 && item.UnitCost > math.MaxInt64/qty {
		return ProfitResult{}, fmt.Errorf("%w: item %s cost overflow", ErrPricingInvalidInput, item.ID)
	}
	item.UnitListPrice = listPrice

	effective := discountedTotal(listPrice, item.DiscountPercent, qty)
	totalCost := item.UnitCost * qty

	fees := ComputeFees(effective, voucher, cmd.Fees, domain.AllocationTotalBased, item.Quantity)

	netCash := effective - fees.TotalFeeAmount - voucher
	netProfit := netCash - totalCost

	margin := 0.0
	if effective > 0 {
		margin = float64(netProfit) / float64(effective) * 100
	}

	if netProfit < 0 {
		e.logger(ctx, "single_item_loss", map[string]any{"itemId": item.ID, "netProfit": netProfit})
	}

	return ProfitResult{
		CalculationID:         e.idGen(),
		Item:                  item,
		EffectiveSellingPrice: effective,
		VoucherAmount:         voucher,
		TotalCost:             totalCost,
		Fees:                  fees,
		NetCashReceived:       netCash,
		NetProfit:             netProfit,
		MarginPercent:         margin,
		MarginStatus:          domain.MarginStatusFor(netProfit, margin),
		BreakEvenROAS:         breakEvenROAS(effective, netProfit),
	}, nil
}

// percentFee computes basis × rate/100 rounded to the nearest integer unit.
func percentFee(basis int64, ratePercent float64) int64 {
	if basis <= 0 || ratePercent <= 0 {
		return 0
	}
	return decimal.NewFromInt(basis).
		Mul(decimal.NewFromFloat(ratePercent)).
		Div(decimalHundred).
		Round(0).
		IntPart()
}

// discountedTotal computes listPrice × (1 − discount/100) × quantity rounded
// to the nearest integer unit.
func discountedTotal(listPrice int64, discountPercent float64, quantity int64) int64 {
	if listPrice <= 0 || quantity <= 0 {
		return 0
	}
	return decimal.NewFromInt(listPrice).
		Mul(decimal.NewFromFloat(100 - discountPercent)).
		Div(decimalHundred).
		Mul(decimal.NewFromInt(quantity)).
		Round(0).
		IntPart()
}

func breakEvenROAS(effectivePrice, netProfit int64) float64 {
	if netProfit <= 0 || effectivePrice <= 0 {
		return 0
	}
	return float64(effectivePrice) / float64(netProfit)
}

// normalizeLineItem coerces malformed numeric fields to safe values instead of
// rejecting them.
func normalizeLineItem(item LineItem) LineItem {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.UnitCost < 0 {
		item.UnitCost = 0
	}
	if item.UnitListPrice < 0 {
		item.UnitListPrice = 0
	}
	if math.IsNaN(item.DiscountPercent) || item.DiscountPercent < 0 {
		item.DiscountPercent = 0
	}
	if item.DiscountPercent > 100 {
		item.DiscountPercent = 100
	}
	return item
}

// listPriceOrDefault falls back to twice the unit cost when no list price is given.
func listPriceOrDefault(item LineItem) int64 {
	if item.UnitListPrice > 0 {
		return item.UnitListPrice
	}
	return item.UnitCost * 2
}

// allocateAmount distributes a signed amount across weights, conserving the
// total exactly. Negative amounts are allocated by mirroring the positive case.
func allocateAmount(amount int64, weights []int64) []int64 {
	if amount >= 0 {
		return allocateByWeight(amount, weights)
	}
	allocations := allocateByWeight(-amount, weights)
	for i := range allocations {
		allocations[i] = -allocations[i]
	}
	return allocations
}

// allocateByWeight distributes amount proportionally to weights using the
// largest-remainder method so the allocations always sum to amount. All-zero
// weights fall back to an even split.
func allocateByWeight(amount int64, weights []int64) []int64 {
	if len(weights) == 0 {
		return nil
	}
	allocations := make([]int64, len(weights))
	if amount == 0 {
		return allocations
	}
	totalWeight := int64(0)
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		base := amount / int64(len(weights))
		remainder := amount % int64(len(weights))
		for i := range weights {
			allocations[i] = base
			if remainder > 0 {
				allocations[i]++
				remainder--
			}
		}
		return allocations
	}

	remainderPairs := make([]struct {
		idx       int
		remainder int64
	}, len(weights))

	distributed := int64(0)
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		share := (amount * w) / totalWeight
		allocations[i] = share
		distributed += share
		remainderPairs[i] = struct {
			idx       int
			remainder int64
		}{idx: i, remainder: (amount * w) % totalWeight}
	}

	remainder := amount - distributed
	if remainder <= 0 {
		return allocations
	}

	sort.SliceStable(remainderPairs, func(i, j int) bool {
		if remainderPairs[i].remainder == remainderPairs[j].remainder {
			return remainderPairs[i].idx < remainderPairs[j].idx
		}
		return remainderPairs[i].remainder > remainderPairs[j].remainder
	})

	for _, entry := range remainderPairs {
		if remainder == 0 {
			break
		}
		allocations[entry.idx]++
		remainder--
	}

	return allocations
}
