package services

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	domain "github.com/marginlab/api/internal/domain"
)

// Baseline fee parameters applied when a marketplace is unknown. Amounts are
// integer minor-currency units.
const (
	baselineAdminRatePercent   = 8.0
	defaultServiceRatePercent  = 4.0
	defaultServiceCapAmount    = 40_000
	defaultCashbackRatePercent = 4.5
	defaultCashbackCapAmount   = 60_000
)

// marketplaceSchedule holds the published fee tables for one marketplace.
// adminRates is keyed by seller tier, then category group.
type marketplaceSchedule struct {
	displayName      string
	tiers            []string
	categories       []string
	defaultAdminRate float64
	adminRates       map[string]map[string]float64
	freeShip         domain.ProgramRate
	cashback         domain.ProgramRate
	perOrderFee      int64
	perTxnFee        int64
}

// marketplaceSchedules is the static lookup table backing the resolver. It is
// read-only after init; calculations receive copies via FeeConfig.
var marketplaceSchedules = map[string]marketplaceSchedule{
	"shopee": {
		tiers:            []string{"standard", "star", "mall"},
		categories:       []string{"electronics", "fashion", "fmcg", "lifestyle", "others"},
		defaultAdminRate: 6.5,
		adminRates: map[string]map[string]float64{
			"standard": {"electronics": 4.25, "fashion": 8.0, "fmcg": 5.75, "lifestyle": 7.25, "others": 6.5},
			"star":     {"electronics": 4.5, "fashion": 8.5, "fmcg": 6.25, "lifestyle": 7.5, "others": 7.0},
			"mall":     {"electronics": 5.25, "fashion": 10.0, "fmcg": 7.0, "lifestyle": 8.5, "others": 8.0},
		},
		freeShip:    domain.ProgramRate{RatePercent: 4.0, CapAmount: 40_000},
		cashback:    domain.ProgramRate{RatePercent: 4.5, CapAmount: 60_000},
		perOrderFee: 1_250,
	},
	"tokopedia": {
		tiers:            []string{"standard", "power", "mall"},
		categories:       []string{"electronics", "fashion", "fmcg", "lifestyle", "others"},
		defaultAdminRate: 3.5,
		adminRates: map[string]map[string]float64{
			"standard": {"electronics": 2.0, "fashion": 4.5, "fmcg": 3.0, "lifestyle": 3.8, "others": 3.5},
			"power":    {"electronics": 2.5, "fashion": 5.0, "fmcg": 3.5, "lifestyle": 4.25, "others": 4.0},
			"mall":     {"electronics": 3.25, "fashion": 6.5, "fmcg": 4.5, "lifestyle": 5.5, "others": 5.0},
		},
		freeShip:    domain.ProgramRate{RatePercent: 4.0, CapAmount: 40_000},
		cashback:    domain.ProgramRate{RatePercent: 3.0, CapAmount: 50_000},
		perOrderFee: 1_000,
	},
	"lazada": {
		tiers:            []string{"standard", "lazmall"},
		categories:       []string{"electronics", "fashion", "fmcg", "lifestyle", "others"},
		defaultAdminRate: 4.5,
		adminRates: map[string]map[string]float64{
			"standard": {"electronics": 3.0, "fashion": 5.5, "fmcg": 4.0, "lifestyle": 5.0, "others": 4.5},
			"lazmall":  {"electronics": 5.0, "fashion": 7.5, "fmcg": 6.0, "lifestyle": 7.0, "others": 6.5},
		},
		freeShip:   domain.ProgramRate{RatePercent: 5.0, CapAmount: 50_000},
		cashback:   domain.ProgramRate{RatePercent: 4.0, CapAmount: 50_000},
		perTxnFee:  1_500,
	},
	"tiktokshop": {
		displayName:      "TikTok Shop",
		tiers:            []string{"standard", "mall"},
		categories:       []string{"electronics", "fashion", "fmcg", "lifestyle", "others"},
		defaultAdminRate: 5.5,
		adminRates: map[string]map[string]float64{
			"standard": {"electronics": 4.0, "fashion": 7.5, "fmcg": 5.0, "lifestyle": 6.0, "others": 5.5},
			"mall":     {"electronics": 5.5, "fashion": 9.0, "fmcg": 6.5, "lifestyle": 7.5, "others": 7.0},
		},
		freeShip:    domain.ProgramRate{RatePercent: 4.5, CapAmount: 45_000},
		cashback:    domain.ProgramRate{RatePercent: 4.0, CapAmount: 50_000},
		perOrderFee: 1_000,
	},
}

var marketplaceTitle = cases.Title(language.English)

type feeScheduleService struct{}

// NewFeeScheduleService constructs the resolver backed by the built-in tables.
func NewFeeScheduleService() FeeScheduleService {
	return &feeScheduleService{}
}

func (s *feeScheduleService) Resolve(ctx context.Context, cmd ResolveFeeScheduleCommand) FeeConfig {
	marketplace := normalizeKey(cmd.Marketplace)
	tier := normalizeKey(cmd.SellerTier)
	category := normalizeKey(cmd.CategoryGroup)

	cfg := FeeConfig{
		Marketplace:           marketplace,
		SellerTier:            tier,
		CategoryGroup:         category,
		AdminRatePercent:      baselineAdminRatePercent,
		ServiceRatePercent:    defaultServiceRatePercent,
		ServiceCapAmount:      defaultServiceCapAmount,
		CashbackRatePercent:   defaultCashbackRatePercent,
		CashbackCapAmount:     defaultCashbackCapAmount,
		FreeShipProgramActive: cmd.FreeShipProgramActive,
		CashbackProgramActive: cmd.CashbackProgramActive,
	}

	sched, ok := marketplaceSchedules[marketplace]
	if !ok {
		return cfg
	}

	cfg.AdminRatePercent = sched.defaultAdminRate
	if rates, ok := sched.adminRates[tier]; ok {
		if rate, ok := rates[category]; ok {
			cfg.AdminRatePercent = rate
		}
	}

	cfg.ServiceRatePercent = sched.freeShip.RatePercent
	cfg.ServiceCapAmount = sched.freeShip.CapAmount
	cfg.CashbackRatePercent = sched.cashback.RatePercent
	cfg.CashbackCapAmount = sched.cashback.CapAmount
	cfg.PerOrderFixedFee = sched.perOrderFee
	cfg.PerTransactionFixedFee = sched.perTxnFee

	return cfg
}

func (s *feeScheduleService) Marketplaces(ctx context.Context) []Marketplace {
	result := make([]Marketplace, 0, len(marketplaceSchedules))
	for id, sched := range marketplaceSchedules {
		display := sched.displayName
		if display == "" {
			display = marketplaceTitle.String(id)
		}
		result = append(result, Marketplace{
			ID:                      id,
			DisplayName:             display,
			SellerTiers:             cloneStrings(sched.tiers),
			CategoryGroups:          cloneStrings(sched.categories),
			DefaultAdminRatePercent: sched.defaultAdminRate,
			FreeShipProgram:         sched.freeShip,
			CashbackProgram:         sched.cashback,
			PerOrderFixedFee:        sched.perOrderFee,
			PerTransactionFixedFee:  sched.perTxnFee,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
