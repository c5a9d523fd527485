package services

import (
	"context"

	domain "github.com/marginlab/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	FeeConfig         = domain.FeeConfig
	LineItem          = domain.LineItem
	FeeBreakdown      = domain.FeeBreakdown
	ProfitResult      = domain.ProfitResult
	BundleResult      = domain.BundleResult
	AllocatedItem     = domain.AllocatedItem
	PriceFinderResult = domain.PriceFinderResult
	PriceSuggestion   = domain.PriceSuggestion
	ProfitTarget      = domain.ProfitTarget
	Insight           = domain.Insight
	AllocationMode    = domain.AllocationMode
	MarginStatus      = domain.MarginStatus
	Marketplace       = domain.Marketplace
)

// ResolveFeeScheduleCommand identifies the fee schedule to resolve. Program
// flags represent seller promotion opt-ins and default to inactive.
type ResolveFeeScheduleCommand struct {
	Marketplace           string
	SellerTier            string
	CategoryGroup         string
	FreeShipProgramActive bool
	CashbackProgramActive bool
}

// FeeScheduleService resolves marketplace fee schedules. Unknown marketplaces,
// tiers, or category groups degrade to documented defaults; resolution never fails.
type FeeScheduleService interface {
	Resolve(ctx context.Context, cmd ResolveFeeScheduleCommand) FeeConfig
	Marketplaces(ctx context.Context) []Marketplace
}

// PriceSingleItemCommand prices one line item sold on its own.
type PriceSingleItemCommand struct {
	Item          LineItem
	VoucherAmount int64
	Fees          FeeConfig
}

// PricingService computes single-item profitability.
type PricingService interface {
	PriceSingleItem(ctx context.Context, cmd PriceSingleItemCommand) (ProfitResult, error)
}

// PriceBundleCommand prices several items sold together at one bundle price.
type PriceBundleCommand struct {
	Items          []LineItem
	BundlePrice    int64
	VoucherAmount  int64
	Fees           FeeConfig
	AllocationMode AllocationMode
}

// BundleService computes bundle profitability and per-item allocation.
type BundleService interface {
	PriceBundle(ctx context.Context, cmd PriceBundleCommand) (BundleResult, error)
}

// FindMinimumPriceCommand reverse-solves the bundle price for a profit target.
type FindMinimumPriceCommand struct {
	Items          []LineItem
	Target         ProfitTarget
	Fees           FeeConfig
	AllocationMode AllocationMode
}

// PriceFinderService inverts the fee equation to find minimum viable prices.
type PriceFinderService interface {
	FindMinimumPrice(ctx context.Context, cmd FindMinimumPriceCommand) (PriceFinderResult, error)
}

// InsightService derives qualitative findings from a completed bundle result.
type InsightService interface {
	Generate(ctx context.Context, result BundleResult) []Insight
}
