package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/marginlab/api/internal/services"
)

type pricingTestOptions struct {
	maxBodyBytes      int64
	maxBundleItems    int
	limiter           RateLimiter
	enableInsights    bool
	enablePriceFinder bool
}

func newPricingTestRouter(t *testing.T, opts pricingTestOptions) chi.Router {
	t.Helper()

	engine := services.NewPricingEngine(services.PricingEngineDeps{
		IDGen: func() string { return "calc_http_test" },
	})
	bundles, err := services.NewBundleService(services.BundleServiceDeps{
		Engine: engine,
		IDGen:  func() string { return "calc_http_test" },
	})
	if err != nil {
		t.Fatalf("NewBundleService error: %v", err)
	}
	finder, err := services.NewPriceFinderService(services.PriceFinderServiceDeps{
		Bundles: bundles,
		IDGen:   func() string { return "calc_http_test" },
	})
	if err != nil {
		t.Fatalf("NewPriceFinderService error: %v", err)
	}

	handlers := NewPricingHandlers(PricingHandlersConfig{
		Schedules: services.NewFeeScheduleService(),
		Pricing:   engine,
		Bundles:   bundles,
		Finder:    finder,
		Insights:  services.NewInsightService(),

		RateLimiter: opts.limiter,
		Defaults: ScheduleDefaults{
			Marketplace:   "shopee",
			SellerTier:    "standard",
			CategoryGroup: "others",
		},

		MaxBodyBytes:   opts.maxBodyBytes,
		MaxBundleItems: opts.maxBundleItems,

		EnableInsights:    opts.enableInsights,
		EnablePriceFinder: opts.enablePriceFinder,
	})

	return NewRouter(WithPricingRoutes(handlers.Routes))
}

func postJSON(t *testing.T, router chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// zeroed overrides pin every rate so assertions do not depend on the static
// marketplace tables.
const flatAdminOverrides = `{
	"adminRatePercent": 8,
	"serviceRatePercent": 0,
	"cashbackRatePercent": 0,
	"perOrderFixedFee": 0,
	"perTransactionFixedFee": 0
}`

func TestPriceSingleEndpoint(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"item": {"id": "sku-1", "displayName": "Ceramic Mug", "unitCost": 50000, "quantity": 1, "unitListPrice": 100000, "discountPercent": 10},
		"feeOverrides": ` + flatAdminOverrides + `
	}`
	rr := postJSON(t, router, "/api/v1/pricing/single", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp singlePriceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.CalculationID != "calc_http_test" {
		t.Errorf("unexpected calculation id: %s", resp.CalculationID)
	}
	if resp.EffectiveSellingPrice != 90_000 {
		t.Errorf("effective price: want 90000, got %d", resp.EffectiveSellingPrice)
	}
	if resp.Fees.TotalFeeAmount != 7_200 {
		t.Errorf("total fee: want 7200, got %d", resp.Fees.TotalFeeAmount)
	}
	if resp.NetProfit != 32_800 {
		t.Errorf("net profit: want 32800, got %d", resp.NetProfit)
	}
	if resp.MarginStatus != "healthy" {
		t.Errorf("margin status: want healthy, got %s", resp.MarginStatus)
	}
}

func TestPriceSingleEndpoint_CoercesStringNumbers(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"item": {"id": "sku-1", "unitCost": "50000", "quantity": "0", "unitListPrice": "100000", "discountPercent": "10"},
		"feeOverrides": ` + flatAdminOverrides + `
	}`
	rr := postJSON(t, router, "/api/v1/pricing/single", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp singlePriceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Item.Quantity != 1 {
		t.Errorf("zero quantity must coerce to 1, got %d", resp.Item.Quantity)
	}
	if resp.NetProfit != 32_800 {
		t.Errorf("net profit: want 32800, got %d", resp.NetProfit)
	}
}

func TestPriceSingleEndpoint_SanitizesDisplayName(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"item": {"id": "sku-1", "displayName": "<b>Mug</b>", "unitCost": 10000, "quantity": 1},
		"feeOverrides": ` + flatAdminOverrides + `
	}`
	rr := postJSON(t, router, "/api/v1/pricing/single", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp singlePriceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Item.DisplayName != "Mug" {
		t.Errorf("display name must be stripped of markup, got %q", resp.Item.DisplayName)
	}
}

func TestPriceSingleEndpoint_BadRequests(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{
		maxBodyBytes:      256,
		enableInsights:    true,
		enablePriceFinder: true,
	})

	t.Run("empty body", func(t *testing.T) {
		rr := postJSON(t, router, "/api/v1/pricing/single", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		rr := postJSON(t, router, "/api/v1/pricing/single", "{not json")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		rr := postJSON(t, router, "/api/v1/pricing/single", `{"item":{"displayName":"`+strings.Repeat("x", 512)+`"}}`)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d", rr.Code)
		}
	})
}

func TestPriceBundleEndpoint(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"items": [
			{"id": "item_a", "unitCost": 30000, "quantity": 1},
			{"id": "item_b", "unitCost": 70000, "quantity": 1}
		],
		"bundlePrice": 150000,
		"feeOverrides": {
			"adminRatePercent": 10,
			"serviceRatePercent": 0,
			"cashbackRatePercent": 0,
			"perOrderFixedFee": 0,
			"perTransactionFixedFee": 0
		}
	}`
	rr := postJSON(t, router, "/api/v1/pricing/bundle", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp bundleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Fees.TotalFeeAmount != 15_000 {
		t.Errorf("total fee: want 15000, got %d", resp.Fees.TotalFeeAmount)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(resp.Items))
	}
	if resp.Items[0].AllocatedFeeAmount != 4_500 || resp.Items[1].AllocatedFeeAmount != 10_500 {
		t.Errorf("fee allocation: want 4500/10500, got %d/%d",
			resp.Items[0].AllocatedFeeAmount, resp.Items[1].AllocatedFeeAmount)
	}
	if resp.AllocationMode != "total" {
		t.Errorf("allocation mode: want total, got %s", resp.AllocationMode)
	}
}

func TestPriceBundleEndpoint_IncludeInsights(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"items": [{"id": "sku-1", "unitCost": 80000, "quantity": 1}],
		"bundlePrice": 50000,
		"includeInsights": true,
		"feeOverrides": ` + flatAdminOverrides + `
	}`
	rr := postJSON(t, router, "/api/v1/pricing/bundle", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp bundleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Insights) == 0 {
		t.Fatalf("expected inline insights for a loss-making bundle")
	}

	// Without the flag the field is absent.
	rr = postJSON(t, router, "/api/v1/pricing/bundle", strings.Replace(body, `"includeInsights": true,`, "", 1))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), `"insights"`) {
		t.Errorf("insights must be omitted unless requested")
	}
}

func TestPriceBundleEndpoint_TooManyItems(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{
		maxBundleItems:    2,
		enableInsights:    true,
		enablePriceFinder: true,
	})

	body := `{
		"items": [
			{"id": "a", "unitCost": 1000, "quantity": 1},
			{"id": "b", "unitCost": 1000, "quantity": 1},
			{"id": "c", "unitCost": 1000, "quantity": 1}
		],
		"bundlePrice": 10000
	}`
	rr := postJSON(t, router, "/api/v1/pricing/bundle", body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "too_many_items") {
		t.Errorf("expected too_many_items error code, got %s", rr.Body.String())
	}
}

func TestPriceFinderEndpoint(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	body := `{
		"items": [{"id": "sku-1", "unitCost": 50000, "quantity": 1}],
		"target": {"kind": "amount", "value": 39000},
		"feeOverrides": {
			"adminRatePercent": 0,
			"serviceRatePercent": 0,
			"cashbackRatePercent": 0,
			"perOrderFixedFee": 0,
			"perTransactionFixedFee": 0
		}
	}`
	rr := postJSON(t, router, "/api/v1/pricing/price-finder", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp priceFinderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Solvable {
		t.Fatalf("expected solvable result, got failure %q", resp.FailureReason)
	}
	if resp.MinimumViablePrice != 89_000 {
		t.Errorf("minimum price: want 89000, got %d", resp.MinimumViablePrice)
	}
	if len(resp.Suggestions) == 0 {
		t.Errorf("expected price suggestions")
	}
	for _, suggestion := range resp.Suggestions {
		if suggestion.Price < resp.MinimumViablePrice {
			t.Errorf("suggestion %d below minimum %d", suggestion.Price, resp.MinimumViablePrice)
		}
	}
}

func TestPriceFinderEndpoint_Disabled(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true})

	rr := postJSON(t, router, "/api/v1/pricing/price-finder", `{"items":[]}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 when disabled, got %d", rr.Code)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enableInsights: true, enablePriceFinder: true})

	// Bundle priced below cost produces a loss insight.
	body := `{
		"items": [{"id": "sku-1", "unitCost": 80000, "quantity": 1}],
		"bundlePrice": 50000,
		"feeOverrides": ` + flatAdminOverrides + `
	}`
	rr := postJSON(t, router, "/api/v1/pricing/insights", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp insightsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Bundle.NetProfit >= 0 {
		t.Fatalf("expected a loss, got profit %d", resp.Bundle.NetProfit)
	}
	found := false
	for _, insight := range resp.Insights {
		if insight.Kind == "loss" && insight.Severity == "danger" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a loss insight, got %+v", resp.Insights)
	}
}

func TestInsightsEndpoint_Disabled(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{enablePriceFinder: true})

	rr := postJSON(t, router, "/api/v1/pricing/insights", `{"items":[]}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 when disabled, got %d", rr.Code)
	}
}

func TestPricingEndpoints_RateLimited(t *testing.T) {
	router := newPricingTestRouter(t, pricingTestOptions{
		limiter:           NewRequestRateLimiter(1),
		enableInsights:    true,
		enablePriceFinder: true,
	})

	body := `{"item": {"id": "sku-1", "unitCost": 10000, "quantity": 1}}`

	first := postJSON(t, router, "/api/v1/pricing/single", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected status 200, got %d", first.Code)
	}

	second := postJSON(t, router, "/api/v1/pricing/single", body)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected status 429, got %d", second.Code)
	}
}
