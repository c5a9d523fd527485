package domain

import "strings"

// AllocationMode selects the policy used to distribute bundle-level fees and
// profit across constituent line items.
type AllocationMode string

const (
	// AllocationTotalBased distributes fees and profit by cost share of the bundle total.
	AllocationTotalBased AllocationMode = "total"
	// AllocationProportional is an alias of AllocationTotalBased kept for API compatibility.
	AllocationProportional AllocationMode = "proportional"
	// AllocationPerItem charges the fixed per-order fee once per unit and
	// distributes the remaining fees by cost share.
	AllocationPerItem AllocationMode = "perItem"
)

// NormalizeAllocationMode maps unknown or empty modes to the default policy.
func NormalizeAllocationMode(mode AllocationMode) AllocationMode {
	key := strings.ToLower(strings.TrimSpace(string(mode)))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	switch key {
	case "proportional":
		return AllocationProportional
	case "peritem":
		return AllocationPerItem
	default:
		return AllocationTotalBased
	}
}

// MarginStatus grades a computed margin for quick seller-facing triage.
type MarginStatus string

const (
	// MarginStatusDanger marks a negative net profit.
	MarginStatusDanger MarginStatus = "danger"
	// MarginStatusWarning marks a non-negative profit with a margin below 10%.
	MarginStatusWarning MarginStatus = "warning"
	// MarginStatusHealthy marks a non-negative profit with a margin of 10% or more.
	MarginStatusHealthy MarginStatus = "healthy"
)

// MarginStatusFor classifies a profit/margin pair. The danger boundary sits
// exactly at profit = 0 and the healthy boundary exactly at margin = 10.
func MarginStatusFor(netProfit int64, marginPercent float64) MarginStatus {
	if netProfit < 0 {
		return MarginStatusDanger
	}
	if marginPercent >= 10 {
		return MarginStatusHealthy
	}
	return MarginStatusWarning
}

// FeeConfig is the fully resolved fee schedule applied to one calculation.
// It is constructed once at the boundary and never mutated afterwards.
type FeeConfig struct {
	Marketplace   string
	SellerTier    string
	CategoryGroup string

	AdminRatePercent       float64
	ServiceRatePercent     float64
	ServiceCapAmount       int64
	CashbackRatePercent    float64
	CashbackCapAmount      int64
	PerOrderFixedFee       int64
	PerTransactionFixedFee int64

	FreeShipProgramActive bool
	CashbackProgramActive bool
}

// LineItem describes one product within a bundle or a single sale.
// Monetary fields are integer minor-currency units.
type LineItem struct {
	ID          string
	DisplayName string
	UnitCost    int64
	Quantity    int
	// UnitListPrice is optional and only used for the individual-sale
	// comparison; zero means unset.
	UnitListPrice int64
	// DiscountPercent applies in single-item mode only.
	DiscountPercent float64
}

// FeeBreakdown itemises the result of applying a FeeConfig to a price basis.
type FeeBreakdown struct {
	FeeBasis                int64
	AdminFeeAmount          int64
	ServiceFeeAmount        int64
	CashbackFeeAmount       int64
	PerOrderFeeAmount       int64
	PerTransactionFeeAmount int64
	TotalFeeAmount          int64
	PercentageFeeAmount     int64
	FixedFeeAmount          int64
	// EffectiveFeePercent is the percentage-based fee share of the basis, or
	// the nominal admin+service rate sum when the basis is zero.
	EffectiveFeePercent float64
}

// ProfitResult captures the financial outcome of a single-item sale.
type ProfitResult struct {
	CalculationID         string
	Item                  LineItem
	EffectiveSellingPrice int64
	VoucherAmount         int64
	TotalCost             int64
	Fees                  FeeBreakdown
	NetCashReceived       int64
	NetProfit             int64
	MarginPercent         float64
	MarginStatus          MarginStatus
	// BreakEvenROAS is the advertising return-on-spend at which ad spend
	// exactly consumes the net profit; zero when the sale is unprofitable.
	BreakEvenROAS float64
}

// AllocatedItem annotates a line item with its share of bundle fees and profit.
type AllocatedItem struct {
	Item                   LineItem
	CostShareRatio         float64
	AllocatedFeeAmount     int64
	AllocatedProfitAmount  int64
	ProfitSharePercent     float64
	AllocatedMarginPercent float64
	MarginStatus           MarginStatus
}

// BundleResult captures bundle-level profitability plus the per-item allocation.
type BundleResult struct {
	CalculationID   string
	BundlePrice     int64
	VoucherAmount   int64
	TotalCost       int64
	TotalItemCount  int
	Fees            FeeBreakdown
	NetCashReceived int64
	NetProfit       int64
	MarginPercent   float64
	MarginStatus    MarginStatus
	BreakEvenROAS   float64
	Items           []AllocatedItem

	// IndividualSaleProfit sums what each item would earn sold alone at its
	// own list price.
	IndividualSaleProfit int64
	ProfitDelta          int64
	ProfitDeltaPercent   float64
	BundleMoreProfitable bool

	AllocationMode AllocationMode
}

// ProfitTargetKind selects how a reverse price-finder target is interpreted.
type ProfitTargetKind string

const (
	// ProfitTargetAmount treats the target value as an absolute profit amount.
	ProfitTargetAmount ProfitTargetKind = "amount"
	// ProfitTargetPercentOfCost treats the target value as a percentage of total cost.
	ProfitTargetPercentOfCost ProfitTargetKind = "percentOfCost"
)

// ProfitTarget is the goal the reverse price finder solves for.
type ProfitTarget struct {
	Kind  ProfitTargetKind
	Value float64
}

// PriceFinderFailure enumerates expected business reasons a target cannot be met.
type PriceFinderFailure string

const (
	// PriceFinderFailureNone means the target was solvable.
	PriceFinderFailureNone PriceFinderFailure = ""
	// PriceFinderFailureZeroCostBasis means the items carry no cost so a
	// relative target is undefined.
	PriceFinderFailureZeroCostBasis PriceFinderFailure = "zero-cost-basis"
	// PriceFinderFailureFeePercentTooHigh means combined percentage fees reach
	// 100% and no finite price satisfies the target.
	PriceFinderFailureFeePercentTooHigh PriceFinderFailure = "fee-percent-too-high"
)

// PriceSuggestionKind labels how a suggested retail price was derived.
type PriceSuggestionKind string

const (
	// SuggestionCharm is the nearest ...9,000 pattern at or above the minimum price.
	SuggestionCharm PriceSuggestionKind = "charm"
	// SuggestionCharmNext is the ...9,000 tier one step above SuggestionCharm.
	SuggestionCharmNext PriceSuggestionKind = "charm_next"
	// SuggestionRound is the nearest 50,000 multiple at or above the minimum price.
	SuggestionRound PriceSuggestionKind = "round"
	// SuggestionMinimum is the minimum price rounded up to the nearest 1,000.
	SuggestionMinimum PriceSuggestionKind = "minimum"
)

// PriceSuggestion is one psychologically rounded retail price candidate,
// verified against the full fee model.
type PriceSuggestion struct {
	Kind          PriceSuggestionKind
	Price         int64
	NetProfit     int64
	MarginPercent float64
}

// PriceFinderResult reports the minimum viable price for a profit target.
type PriceFinderResult struct {
	CalculationID         string
	MinimumViablePrice    int64
	Suggestions           []PriceSuggestion
	TargetProfitAmount    int64
	ActualProfitAtMinimum int64
	ActualMarginAtMinimum float64
	CombinedFeePercent    float64
	Solvable              bool
	FailureReason         PriceFinderFailure
	AllocationMode        AllocationMode
}

// InsightKind enumerates the qualitative findings derived from a bundle result.
type InsightKind string

const (
	// InsightLoss fires when the bundle loses money outright.
	InsightLoss InsightKind = "loss"
	// InsightThinMargin fires when the bundle is profitable but below a 5% margin.
	InsightThinMargin InsightKind = "thin_margin"
	// InsightCrossSubsidy fires when profitable items carry loss-making ones.
	InsightCrossSubsidy InsightKind = "cross_subsidy"
	// InsightDominantContributor fires when a single item earns most of the profit.
	InsightDominantContributor InsightKind = "dominant_contributor"
	// InsightDiscountCeiling reports the maximum safe further discount.
	InsightDiscountCeiling InsightKind = "discount_ceiling"
	// InsightOptimizationCandidate names the worst loss-making item in larger bundles.
	InsightOptimizationCandidate InsightKind = "optimization_candidate"
)

// InsightSeverity grades how urgently a finding deserves attention.
type InsightSeverity string

const (
	// SeverityDanger marks findings that indicate an active loss.
	SeverityDanger InsightSeverity = "danger"
	// SeverityWarning marks findings that need review before committing.
	SeverityWarning InsightSeverity = "warning"
	// SeverityInfo marks purely informational findings.
	SeverityInfo InsightSeverity = "info"
)

// Insight is a structured finding; human-readable text is a presentation
// concern, so only the kind, severity, and numeric payload are carried.
type Insight struct {
	Kind     InsightKind
	Severity InsightSeverity
	Data     map[string]any
}
