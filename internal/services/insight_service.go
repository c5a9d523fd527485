package services

import (
	"context"

	domain "github.com/marginlab/api/internal/domain"
)

const (
	thinMarginThresholdPercent = 5.0
	dominantSharePercent       = 50.0
	optimizationMinItems       = 3
)

type insightService struct{}

// NewInsightService constructs the rule-based insight generator. Each rule is
// evaluated independently against a completed bundle result.
func NewInsightService() InsightService {
	return &insightService{}
}

func (s *insightService) Generate(ctx context.Context, result BundleResult) []Insight {
	insights := make([]Insight, 0, 4)

	if result.NetProfit < 0 {
		insights = append(insights, Insight{
			Kind:     domain.InsightLoss,
			Severity: domain.SeverityDanger,
			Data: map[string]any{
				"netProfit":     result.NetProfit,
				"marginPercent": result.MarginPercent,
			},
		})
	}

	if result.NetProfit >= 0 && result.MarginPercent < thinMarginThresholdPercent {
		insights = append(insights, Insight{
			Kind:     domain.InsightThinMargin,
			Severity: domain.SeverityWarning,
			Data: map[string]any{
				"netProfit":     result.NetProfit,
				"marginPercent": result.MarginPercent,
			},
		})
	}

	if insight, ok := crossSubsidyInsight(result); ok {
		insights = append(insights, insight)
	}

	if insight, ok := dominantContributorInsight(result); ok {
		insights = append(insights, insight)
	}

	if result.NetProfit > 0 && result.BundlePrice > 0 {
		insights = append(insights, Insight{
			Kind:     domain.InsightDiscountCeiling,
			Severity: domain.SeverityInfo,
			Data: map[string]any{
				"maxSafeDiscountPercent": float64(result.NetProfit) / float64(result.BundlePrice) * 100,
			},
		})
	}

	if insight, ok := optimizationCandidateInsight(result); ok {
		insights = append(insights, insight)
	}

	return insights
}

// crossSubsidyInsight fires when the bundle is profitable overall but at least
// one item is allocated a loss, listing who carries whom.
func crossSubsidyInsight(result BundleResult) (Insight, bool) {
	if result.NetProfit <= 0 {
		return Insight{}, false
	}

	type itemAmount struct {
		ID          string `json:"itemId"`
		DisplayName string `json:"displayName"`
		Profit      int64  `json:"profit"`
	}
	var subsidizers, subsidized []itemAmount
	for _, item := range result.Items {
		entry := itemAmount{ID: item.Item.ID, DisplayName: item.Item.DisplayName, Profit: item.AllocatedProfitAmount}
		switch {
		case item.AllocatedProfitAmount < 0:
			subsidized = append(subsidized, entry)
		case item.AllocatedProfitAmount > 0:
			subsidizers = append(subsidizers, entry)
		}
	}
	if len(subsidized) == 0 {
		return Insight{}, false
	}

	return Insight{
		Kind:     domain.InsightCrossSubsidy,
		Severity: domain.SeverityWarning,
		Data: map[string]any{
			"subsidizers": subsidizers,
			"subsidized":  subsidized,
		},
	}, true
}

// dominantContributorInsight fires for the single profitable item with the
// highest profit share when that share exceeds 50%.
func dominantContributorInsight(result BundleResult) (Insight, bool) {
	best := -1
	for i, item := range result.Items {
		if item.AllocatedProfitAmount <= 0 {
			continue
		}
		if best < 0 || item.ProfitSharePercent > result.Items[best].ProfitSharePercent {
			best = i
		}
	}
	if best < 0 || result.Items[best].ProfitSharePercent <= dominantSharePercent {
		return Insight{}, false
	}

	item := result.Items[best]
	return Insight{
		Kind:     domain.InsightDominantContributor,
		Severity: domain.SeverityInfo,
		Data: map[string]any{
			"itemId":             item.Item.ID,
			"displayName":        item.Item.DisplayName,
			"profitSharePercent": item.ProfitSharePercent,
		},
	}, true
}

// optimizationCandidateInsight names the worst loss-making item in bundles of
// more than two items.
func optimizationCandidateInsight(result BundleResult) (Insight, bool) {
	if len(result.Items) <= optimizationMinItems-1 {
		return Insight{}, false
	}
	worst := -1
	for i, item := range result.Items {
		if item.AllocatedProfitAmount >= 0 {
			continue
		}
		if worst < 0 || item.AllocatedProfitAmount < result.Items[worst].AllocatedProfitAmount {
			worst = i
		}
	}
	if worst < 0 {
		return Insight{}, false
	}

	item := result.Items[worst]
	return Insight{
		Kind:     domain.InsightOptimizationCandidate,
		Severity: domain.SeverityWarning,
		Data: map[string]any{
			"itemId":          item.Item.ID,
			"displayName":     item.Item.DisplayName,
			"allocatedProfit": item.AllocatedProfitAmount,
		},
	}, true
}
