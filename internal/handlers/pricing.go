package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/marginlab/api/internal/domain"
	"github.com/marginlab/api/internal/platform/httpx"
	"github.com/marginlab/api/internal/platform/observability"
	"github.com/marginlab/api/internal/services"
)

const (
	defaultMaxBundleItems = 50
	maxDisplayNameLength  = 120
)

// ScheduleDefaults fills schedule keys omitted from pricing requests.
type ScheduleDefaults struct {
	Marketplace   string
	SellerTier    string
	CategoryGroup string
}

// PricingHandlersConfig collects the collaborators for the pricing endpoints.
type PricingHandlersConfig struct {
	Schedules services.FeeScheduleService
	Pricing   services.PricingService
	Bundles   services.BundleService
	Finder    services.PriceFinderService
	Insights  services.InsightService

	Metrics     *observability.Metrics
	RateLimiter RateLimiter
	Defaults    ScheduleDefaults

	MaxBodyBytes   int64
	MaxBundleItems int

	EnableInsights    bool
	EnablePriceFinder bool
}

// PricingHandlers exposes the seller-side profit calculator endpoints.
type PricingHandlers struct {
	schedules services.FeeScheduleService
	pricing   services.PricingService
	bundles   services.BundleService
	finder    services.PriceFinderService
	insights  services.InsightService

	metrics   *observability.Metrics
	limiter   RateLimiter
	sanitizer *bluemonday.Policy
	defaults  ScheduleDefaults

	maxBodyBytes   int64
	maxBundleItems int

	enableInsights    bool
	enablePriceFinder bool
}

// NewPricingHandlers constructs the pricing endpoints.
func NewPricingHandlers(cfg PricingHandlersConfig) *PricingHandlers {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	maxItems := cfg.MaxBundleItems
	if maxItems <= 0 {
		maxItems = defaultMaxBundleItems
	}
	return &PricingHandlers{
		schedules:         cfg.Schedules,
		pricing:           cfg.Pricing,
		bundles:           cfg.Bundles,
		finder:            cfg.Finder,
		insights:          cfg.Insights,
		metrics:           cfg.Metrics,
		limiter:           cfg.RateLimiter,
		sanitizer:         bluemonday.StrictPolicy(),
		defaults:          cfg.Defaults,
		maxBodyBytes:      maxBody,
		maxBundleItems:    maxItems,
		enableInsights:    cfg.EnableInsights,
		enablePriceFinder: cfg.EnablePriceFinder,
	}
}

// Routes wires the /pricing endpoints onto the provided router.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.limiter != nil {
		r.Use(h.rateLimitMiddleware)
	}
	r.Post("/single", h.priceSingle)
	r.Post("/bundle", h.priceBundle)
	r.Post("/price-finder", h.findPrice)
	r.Post("/insights", h.generateInsights)
}

func (h *PricingHandlers) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow(r.RemoteAddr) {
			httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type feeScheduleRequest struct {
	Marketplace     string `json:"marketplace"`
	SellerTier      string `json:"sellerTier"`
	CategoryGroup   string `json:"categoryGroup"`
	FreeShipProgram bool   `json:"freeShipProgram"`
	CashbackProgram bool   `json:"cashbackProgram"`
}

type feeOverridesRequest struct {
	AdminRatePercent       *flexFloat `json:"adminRatePercent"`
	ServiceRatePercent     *flexFloat `json:"serviceRatePercent"`
	ServiceCapAmount       *flexInt64 `json:"serviceCapAmount"`
	CashbackRatePercent    *flexFloat `json:"cashbackRatePercent"`
	CashbackCapAmount      *flexInt64 `json:"cashbackCapAmount"`
	PerOrderFixedFee       *flexInt64 `json:"perOrderFixedFee"`
	PerTransactionFixedFee *flexInt64 `json:"perTransactionFixedFee"`
}

type lineItemRequest struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"displayName"`
	UnitCost        flexInt64 `json:"unitCost"`
	Quantity        flexInt   `json:"quantity"`
	UnitListPrice   flexInt64 `json:"unitListPrice"`
	DiscountPercent flexFloat `json:"discountPercent"`
}

type singlePriceRequest struct {
	Item          lineItemRequest      `json:"item"`
	VoucherAmount flexInt64            `json:"voucherAmount"`
	Schedule      feeScheduleRequest   `json:"schedule"`
	FeeOverrides  *feeOverridesRequest `json:"feeOverrides"`
}

type bundlePriceRequest struct {
	Items           []lineItemRequest    `json:"items"`
	BundlePrice     flexInt64            `json:"bundlePrice"`
	VoucherAmount   flexInt64            `json:"voucherAmount"`
	AllocationMode  string               `json:"allocationMode"`
	Schedule        feeScheduleRequest   `json:"schedule"`
	FeeOverrides    *feeOverridesRequest `json:"feeOverrides"`
	IncludeInsights bool                 `json:"includeInsights"`
}

type profitTargetRequest struct {
	Kind  string    `json:"kind"`
	Value flexFloat `json:"value"`
}

type priceFinderRequest struct {
	Items          []lineItemRequest    `json:"items"`
	Target         profitTargetRequest  `json:"target"`
	AllocationMode string               `json:"allocationMode"`
	Schedule       feeScheduleRequest   `json:"schedule"`
	FeeOverrides   *feeOverridesRequest `json:"feeOverrides"`
}

func (h *PricingHandlers) priceSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req singlePriceRequest
	if !h.decodeRequest(ctx, w, r, &req, "single") {
		return
	}

	cmd := services.PriceSingleItemCommand{
		Item:          h.lineItem(req.Item),
		VoucherAmount: int64(req.VoucherAmount),
		Fees:          h.resolveFees(ctx, req.Schedule, req.FeeOverrides),
	}

	result, err := h.pricing.PriceSingleItem(ctx, cmd)
	if err != nil {
		h.metrics.RecordFailure(ctx, "single")
		h.writePricingError(ctx, w, err)
		return
	}

	h.metrics.RecordCalculation(ctx, "single", time.Since(start))
	writeJSONResponse(w, http.StatusOK, singlePricePayload(result))
}

func (h *PricingHandlers) priceBundle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req bundlePriceRequest
	if !h.decodeRequest(ctx, w, r, &req, "bundle") {
		return
	}
	if !h.checkItemCount(ctx, w, len(req.Items), "bundle") {
		return
	}

	cmd := services.PriceBundleCommand{
		Items:          h.lineItems(req.Items),
		BundlePrice:    int64(req.BundlePrice),
		VoucherAmount:  int64(req.VoucherAmount),
		Fees:           h.resolveFees(ctx, req.Schedule, req.FeeOverrides),
		AllocationMode: domain.AllocationMode(req.AllocationMode),
	}

	result, err := h.bundles.PriceBundle(ctx, cmd)
	if err != nil {
		h.metrics.RecordFailure(ctx, "bundle")
		h.writePricingError(ctx, w, err)
		return
	}

	payload := bundlePayload(result)
	if req.IncludeInsights && h.enableInsights && h.insights != nil {
		payload.Insights = buildInsightPayloads(h.insights.Generate(ctx, result))
	}

	h.metrics.RecordCalculation(ctx, "bundle", time.Since(start))
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *PricingHandlers) findPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if !h.enablePriceFinder {
		httpx.WriteError(ctx, w, httpx.NewError("feature_disabled", "price finder is disabled", http.StatusNotFound))
		return
	}

	var req priceFinderRequest
	if !h.decodeRequest(ctx, w, r, &req, "price_finder") {
		return
	}
	if !h.checkItemCount(ctx, w, len(req.Items), "price_finder") {
		return
	}

	cmd := services.FindMinimumPriceCommand{
		Items:          h.lineItems(req.Items),
		Target:         profitTarget(req.Target),
		Fees:           h.resolveFees(ctx, req.Schedule, req.FeeOverrides),
		AllocationMode: domain.AllocationMode(req.AllocationMode),
	}

	result, err := h.finder.FindMinimumPrice(ctx, cmd)
	if err != nil {
		h.metrics.RecordFailure(ctx, "price_finder")
		h.writePricingError(ctx, w, err)
		return
	}

	h.metrics.RecordCalculation(ctx, "price_finder", time.Since(start))
	writeJSONResponse(w, http.StatusOK, priceFinderPayload(result))
}

func (h *PricingHandlers) generateInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if !h.enableInsights {
		httpx.WriteError(ctx, w, httpx.NewError("feature_disabled", "insights are disabled", http.StatusNotFound))
		return
	}

	var req bundlePriceRequest
	if !h.decodeRequest(ctx, w, r, &req, "insights") {
		return
	}
	if !h.checkItemCount(ctx, w, len(req.Items), "insights") {
		return
	}

	cmd := services.PriceBundleCommand{
		Items:          h.lineItems(req.Items),
		BundlePrice:    int64(req.BundlePrice),
		VoucherAmount:  int64(req.VoucherAmount),
		Fees:           h.resolveFees(ctx, req.Schedule, req.FeeOverrides),
		AllocationMode: domain.AllocationMode(req.AllocationMode),
	}

	bundle, err := h.bundles.PriceBundle(ctx, cmd)
	if err != nil {
		h.metrics.RecordFailure(ctx, "insights")
		h.writePricingError(ctx, w, err)
		return
	}

	insights := h.insights.Generate(ctx, bundle)

	h.metrics.RecordCalculation(ctx, "insights", time.Since(start))
	writeJSONResponse(w, http.StatusOK, insightsPayload(bundle, insights))
}

// decodeRequest reads and parses the JSON body, writing the error response on
// failure. Unknown fields are ignored; malformed numeric values coerce to zero.
func (h *PricingHandlers) decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, target any, kind string) bool {
	body, err := readLimitedBody(r, h.maxBodyBytes)
	if err != nil {
		h.metrics.RecordFailure(ctx, kind)
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		h.metrics.RecordFailure(ctx, kind)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func (h *PricingHandlers) checkItemCount(ctx context.Context, w http.ResponseWriter, count int, kind string) bool {
	if count > h.maxBundleItems {
		h.metrics.RecordFailure(ctx, kind)
		httpx.WriteError(ctx, w, httpx.NewError("too_many_items", "bundle exceeds the allowed item count", http.StatusBadRequest).
			WithDetails(map[string]any{"maxItems": h.maxBundleItems}))
		return false
	}
	return true
}

// resolveFees looks up the marketplace schedule for the request, falling back
// to configured defaults for omitted keys, then applies explicit overrides.
func (h *PricingHandlers) resolveFees(ctx context.Context, schedule feeScheduleRequest, overrides *feeOverridesRequest) services.FeeConfig {
	marketplace := strings.TrimSpace(schedule.Marketplace)
	if marketplace == "" {
		marketplace = h.defaults.Marketplace
	}
	tier := strings.TrimSpace(schedule.SellerTier)
	if tier == "" {
		tier = h.defaults.SellerTier
	}
	category := strings.TrimSpace(schedule.CategoryGroup)
	if category == "" {
		category = h.defaults.CategoryGroup
	}

	cfg := h.schedules.Resolve(ctx, services.ResolveFeeScheduleCommand{
		Marketplace:           marketplace,
		SellerTier:            tier,
		CategoryGroup:         category,
		FreeShipProgramActive: schedule.FreeShipProgram,
		CashbackProgramActive: schedule.CashbackProgram,
	})

	if overrides == nil {
		return cfg
	}
	if overrides.AdminRatePercent != nil {
		cfg.AdminRatePercent = float64(*overrides.AdminRatePercent)
	}
	if overrides.ServiceRatePercent != nil {
		cfg.ServiceRatePercent = float64(*overrides.ServiceRatePercent)
	}
	if overrides.ServiceCapAmount != nil {
		cfg.ServiceCapAmount = int64(*overrides.ServiceCapAmount)
	}
	if overrides.CashbackRatePercent != nil {
		cfg.CashbackRatePercent = float64(*overrides.CashbackRatePercent)
	}
	if overrides.CashbackCapAmount != nil {
		cfg.CashbackCapAmount = int64(*overrides.CashbackCapAmount)
	}
	if overrides.PerOrderFixedFee != nil {
		cfg.PerOrderFixedFee = int64(*overrides.PerOrderFixedFee)
	}
	if overrides.PerTransactionFixedFee != nil {
		cfg.PerTransactionFixedFee = int64(*overrides.PerTransactionFixedFee)
	}
	return cfg
}

func (h *PricingHandlers) lineItem(req lineItemRequest) services.LineItem {
	return services.LineItem{
		ID:              strings.TrimSpace(req.ID),
		DisplayName:     h.sanitizeDisplayName(req.DisplayName),
		UnitCost:        int64(req.UnitCost),
		Quantity:        int(req.Quantity),
		UnitListPrice:   int64(req.UnitListPrice),
		DiscountPercent: float64(req.DiscountPercent),
	}
}

func (h *PricingHandlers) lineItems(reqs []lineItemRequest) []services.LineItem {
	items := make([]services.LineItem, len(reqs))
	for i, req := range reqs {
		items[i] = h.lineItem(req)
	}
	return items
}

func (h *PricingHandlers) sanitizeDisplayName(name string) string {
	cleaned := strings.TrimSpace(h.sanitizer.Sanitize(name))
	if len(cleaned) > maxDisplayNameLength {
		cleaned = cleaned[:maxDisplayNameLength]
	}
	return cleaned
}

func profitTarget(req profitTargetRequest) services.ProfitTarget {
	kind := domain.ProfitTargetAmount
	normalized := strings.ToLower(strings.TrimSpace(req.Kind))
	normalized = strings.ReplaceAll(normalized, "_", "")
	if normalized == "percentofcost" {
		kind = domain.ProfitTargetPercentOfCost
	}
	return services.ProfitTarget{Kind: kind, Value: float64(req.Value)}
}

func (h *PricingHandlers) writePricingError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrPricingInvalidInput) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", err.Error(), http.StatusBadRequest))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("pricing_failed", "pricing calculation failed", http.StatusInternalServerError))
}
