package handlers

import (
	"github.com/marginlab/api/internal/services"
)

type lineItemPayload struct {
	ID              string  `json:"id"`
	DisplayName     string  `json:"displayName,omitempty"`
	UnitCost        int64   `json:"unitCost"`
	Quantity        int     `json:"quantity"`
	UnitListPrice   int64   `json:"unitListPrice"`
	DiscountPercent float64 `json:"discountPercent"`
}

type feeBreakdownPayload struct {
	FeeBasis                int64   `json:"feeBasis"`
	AdminFeeAmount          int64   `json:"adminFeeAmount"`
	ServiceFeeAmount        int64   `json:"serviceFeeAmount"`
	CashbackFeeAmount       int64   `json:"cashbackFeeAmount"`
	PerOrderFeeAmount       int64   `json:"perOrderFeeAmount"`
	PerTransactionFeeAmount int64   `json:"perTransactionFeeAmount"`
	PercentageFeeAmount     int64   `json:"percentageFeeAmount"`
	FixedFeeAmount          int64   `json:"fixedFeeAmount"`
	TotalFeeAmount          int64   `json:"totalFeeAmount"`
	EffectiveFeePercent     float64 `json:"effectiveFeePercent"`
}

type singlePriceResponse struct {
	CalculationID         string              `json:"calculationId"`
	Item                  lineItemPayload     `json:"item"`
	EffectiveSellingPrice int64               `json:"effectiveSellingPrice"`
	VoucherAmount         int64               `json:"voucherAmount"`
	TotalCost             int64               `json:"totalCost"`
	Fees                  feeBreakdownPayload `json:"fees"`
	NetCashReceived       int64               `json:"netCashReceived"`
	NetProfit             int64               `json:"netProfit"`
	MarginPercent         float64             `json:"marginPercent"`
	MarginStatus          string              `json:"marginStatus"`
	BreakEvenROAS         float64             `json:"breakEvenRoas"`
}

type allocatedItemPayload struct {
	Item                   lineItemPayload `json:"item"`
	CostShareRatio         float64         `json:"costShareRatio"`
	AllocatedFeeAmount     int64           `json:"allocatedFeeAmount"`
	AllocatedProfitAmount  int64           `json:"allocatedProfitAmount"`
	ProfitSharePercent     float64         `json:"profitSharePercent"`
	AllocatedMarginPercent float64         `json:"allocatedMarginPercent"`
	MarginStatus           string          `json:"marginStatus"`
}

type bundleResponse struct {
	CalculationID        string                 `json:"calculationId"`
	BundlePrice          int64                  `json:"bundlePrice"`
	VoucherAmount        int64                  `json:"voucherAmount"`
	TotalCost            int64                  `json:"totalCost"`
	TotalItemCount       int                    `json:"totalItemCount"`
	Fees                 feeBreakdownPayload    `json:"fees"`
	NetCashReceived      int64                  `json:"netCashReceived"`
	NetProfit            int64                  `json:"netProfit"`
	MarginPercent        float64                `json:"marginPercent"`
	MarginStatus         string                 `json:"marginStatus"`
	BreakEvenROAS        float64                `json:"breakEvenRoas"`
	Items                []allocatedItemPayload `json:"items"`
	IndividualSaleProfit int64                  `json:"individualSaleProfit"`
	ProfitDelta          int64                  `json:"profitDelta"`
	ProfitDeltaPercent   float64                `json:"profitDeltaPercent"`
	BundleMoreProfitable bool                   `json:"bundleMoreProfitable"`
	AllocationMode       string                 `json:"allocationMode"`
	Insights             []insightPayload       `json:"insights,omitempty"`
}

type priceSuggestionPayload struct {
	Kind          string  `json:"kind"`
	Price         int64   `json:"price"`
	NetProfit     int64   `json:"netProfit"`
	MarginPercent float64 `json:"marginPercent"`
}

type priceFinderResponse struct {
	CalculationID         string                   `json:"calculationId"`
	Solvable              bool                     `json:"solvable"`
	FailureReason         string                   `json:"failureReason,omitempty"`
	MinimumViablePrice    int64                    `json:"minimumViablePrice"`
	TargetProfitAmount    int64                    `json:"targetProfitAmount"`
	ActualProfitAtMinimum int64                    `json:"actualProfitAtMinimum"`
	ActualMarginAtMinimum float64                  `json:"actualMarginAtMinimum"`
	CombinedFeePercent    float64                  `json:"combinedFeePercent"`
	AllocationMode        string                   `json:"allocationMode"`
	Suggestions           []priceSuggestionPayload `json:"suggestions"`
}

type insightPayload struct {
	Kind     string         `json:"kind"`
	Severity string         `json:"severity"`
	Data     map[string]any `json:"data,omitempty"`
}

type insightsResponse struct {
	CalculationID string           `json:"calculationId"`
	Bundle        bundleResponse   `json:"bundle"`
	Insights      []insightPayload `json:"insights"`
}

func buildLineItemPayload(item services.LineItem) lineItemPayload {
	return lineItemPayload{
		ID:              item.ID,
		DisplayName:     item.DisplayName,
		UnitCost:        item.UnitCost,
		Quantity:        item.Quantity,
		UnitListPrice:   item.UnitListPrice,
		DiscountPercent: item.DiscountPercent,
	}
}

func buildFeeBreakdownPayload(fees services.FeeBreakdown) feeBreakdownPayload {
	return feeBreakdownPayload{
		FeeBasis:                fees.FeeBasis,
		AdminFeeAmount:          fees.AdminFeeAmount,
		ServiceFeeAmount:        fees.ServiceFeeAmount,
		CashbackFeeAmount:       fees.CashbackFeeAmount,
		PerOrderFeeAmount:       fees.PerOrderFeeAmount,
		PerTransactionFeeAmount: fees.PerTransactionFeeAmount,
		PercentageFeeAmount:     fees.PercentageFeeAmount,
		FixedFeeAmount:          fees.FixedFeeAmount,
		TotalFeeAmount:          fees.TotalFeeAmount,
		EffectiveFeePercent:     fees.EffectiveFeePercent,
	}
}

func singlePricePayload(result services.ProfitResult) singlePriceResponse {
	return singlePriceResponse{
		CalculationID:         result.CalculationID,
		Item:                  buildLineItemPayload(result.Item),
		EffectiveSellingPrice: result.EffectiveSellingPrice,
		VoucherAmount:         result.VoucherAmount,
		TotalCost:             result.TotalCost,
		Fees:                  buildFeeBreakdownPayload(result.Fees),
		NetCashReceived:       result.NetCashReceived,
		NetProfit:             result.NetProfit,
		MarginPercent:         result.MarginPercent,
		MarginStatus:          string(result.MarginStatus),
		BreakEvenROAS:         result.BreakEvenROAS,
	}
}

func bundlePayload(result services.BundleResult) bundleResponse {
	items := make([]allocatedItemPayload, len(result.Items))
	for i, item := range result.Items {
		items[i] = allocatedItemPayload{
			Item:                   buildLineItemPayload(item.Item),
			CostShareRatio:         item.CostShareRatio,
			AllocatedFeeAmount:     item.AllocatedFeeAmount,
			AllocatedProfitAmount:  item.AllocatedProfitAmount,
			ProfitSharePercent:     item.ProfitSharePercent,
			AllocatedMarginPercent: item.AllocatedMarginPercent,
			MarginStatus:           string(item.MarginStatus),
		}
	}
	return bundleResponse{
		CalculationID:        result.CalculationID,
		BundlePrice:          result.BundlePrice,
		VoucherAmount:        result.VoucherAmount,
		TotalCost:            result.TotalCost,
		TotalItemCount:       result.TotalItemCount,
		Fees:                 buildFeeBreakdownPayload(result.Fees),
		NetCashReceived:      result.NetCashReceived,
		NetProfit:            result.NetProfit,
		MarginPercent:        result.MarginPercent,
		MarginStatus:         string(result.MarginStatus),
		BreakEvenROAS:        result.BreakEvenROAS,
		Items:                items,
		IndividualSaleProfit: result.IndividualSaleProfit,
		ProfitDelta:          result.ProfitDelta,
		ProfitDeltaPercent:   result.ProfitDeltaPercent,
		BundleMoreProfitable: result.BundleMoreProfitable,
		AllocationMode:       string(result.AllocationMode),
	}
}

func priceFinderPayload(result services.PriceFinderResult) priceFinderResponse {
	suggestions := make([]priceSuggestionPayload, len(result.Suggestions))
	for i, suggestion := range result.Suggestions {
		suggestions[i] = priceSuggestionPayload{
			Kind:          string(suggestion.Kind),
			Price:         suggestion.Price,
			NetProfit:     suggestion.NetProfit,
			MarginPercent: suggestion.MarginPercent,
		}
	}
	return priceFinderResponse{
		CalculationID:         result.CalculationID,
		Solvable:              result.Solvable,
		FailureReason:         string(result.FailureReason),
		MinimumViablePrice:    result.MinimumViablePrice,
		TargetProfitAmount:    result.TargetProfitAmount,
		ActualProfitAtMinimum: result.ActualProfitAtMinimum,
		ActualMarginAtMinimum: result.ActualMarginAtMinimum,
		CombinedFeePercent:    result.CombinedFeePercent,
		AllocationMode:        string(result.AllocationMode),
		Suggestions:           suggestions,
	}
}

func buildInsightPayloads(insights []services.Insight) []insightPayload {
	payloads := make([]insightPayload, len(insights))
	for i, insight := range insights {
		payloads[i] = insightPayload{
			Kind:     string(insight.Kind),
			Severity: string(insight.Severity),
			Data:     insight.Data,
		}
	}
	return payloads
}

func insightsPayload(bundle services.BundleResult, insights []services.Insight) insightsResponse {
	return insightsResponse{
		CalculationID: bundle.CalculationID,
		Bundle:        bundlePayload(bundle),
		Insights:      buildInsightPayloads(insights),
	}
}
