package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marginlab/api/internal/platform/httpx"
	"github.com/marginlab/api/internal/services"
)

// MarketplaceHandlers serves the marketplace catalog and fee schedule lookups.
type MarketplaceHandlers struct {
	schedules services.FeeScheduleService
}

// NewMarketplaceHandlers constructs the catalog endpoints.
func NewMarketplaceHandlers(schedules services.FeeScheduleService) *MarketplaceHandlers {
	return &MarketplaceHandlers{schedules: schedules}
}

// Routes wires the /marketplaces endpoints onto the provided router.
func (h *MarketplaceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/{marketplaceID}/fee-schedule", h.feeSchedule)
}

type programRatePayload struct {
	RatePercent float64 `json:"ratePercent"`
	CapAmount   int64   `json:"capAmount"`
}

type marketplacePayload struct {
	ID                      string             `json:"id"`
	DisplayName             string             `json:"displayName"`
	SellerTiers             []string           `json:"sellerTiers"`
	CategoryGroups          []string           `json:"categoryGroups"`
	DefaultAdminRatePercent float64            `json:"defaultAdminRatePercent"`
	FreeShipProgram         programRatePayload `json:"freeShipProgram"`
	CashbackProgram         programRatePayload `json:"cashbackProgram"`
	PerOrderFixedFee        int64              `json:"perOrderFixedFee"`
	PerTransactionFixedFee  int64              `json:"perTransactionFixedFee"`
}

type marketplaceListResponse struct {
	Marketplaces []marketplacePayload `json:"marketplaces"`
}

type feeSchedulePayload struct {
	Marketplace            string  `json:"marketplace"`
	SellerTier             string  `json:"sellerTier"`
	CategoryGroup          string  `json:"categoryGroup"`
	AdminRatePercent       float64 `json:"adminRatePercent"`
	ServiceRatePercent     float64 `json:"serviceRatePercent"`
	ServiceCapAmount       int64   `json:"serviceCapAmount"`
	CashbackRatePercent    float64 `json:"cashbackRatePercent"`
	CashbackCapAmount      int64   `json:"cashbackCapAmount"`
	PerOrderFixedFee       int64   `json:"perOrderFixedFee"`
	PerTransactionFixedFee int64   `json:"perTransactionFixedFee"`
}

func (h *MarketplaceHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.schedules == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketplaces_unavailable", "marketplace catalog is unavailable", http.StatusServiceUnavailable))
		return
	}

	marketplaces := h.schedules.Marketplaces(ctx)
	payloads := make([]marketplacePayload, len(marketplaces))
	for i, mp := range marketplaces {
		payloads[i] = marketplacePayload{
			ID:                      mp.ID,
			DisplayName:             mp.DisplayName,
			SellerTiers:             mp.SellerTiers,
			CategoryGroups:          mp.CategoryGroups,
			DefaultAdminRatePercent: mp.DefaultAdminRatePercent,
			FreeShipProgram:         programRatePayload{RatePercent: mp.FreeShipProgram.RatePercent, CapAmount: mp.FreeShipProgram.CapAmount},
			CashbackProgram:         programRatePayload{RatePercent: mp.CashbackProgram.RatePercent, CapAmount: mp.CashbackProgram.CapAmount},
			PerOrderFixedFee:        mp.PerOrderFixedFee,
			PerTransactionFixedFee:  mp.PerTransactionFixedFee,
		}
	}
	writeJSONResponse(w, http.StatusOK, marketplaceListResponse{Marketplaces: payloads})
}

func (h *MarketplaceHandlers) feeSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.schedules == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketplaces_unavailable", "marketplace catalog is unavailable", http.StatusServiceUnavailable))
		return
	}

	cfg := h.schedules.Resolve(ctx, services.ResolveFeeScheduleCommand{
		Marketplace:   chi.URLParam(r, "marketplaceID"),
		SellerTier:    r.URL.Query().Get("tier"),
		CategoryGroup: r.URL.Query().Get("category"),
	})

	writeJSONResponse(w, http.StatusOK, feeSchedulePayload{
		Marketplace:            cfg.Marketplace,
		SellerTier:             cfg.SellerTier,
		CategoryGroup:          cfg.CategoryGroup,
		AdminRatePercent:       cfg.AdminRatePercent,
		ServiceRatePercent:     cfg.ServiceRatePercent,
		ServiceCapAmount:       cfg.ServiceCapAmount,
		CashbackRatePercent:    cfg.CashbackRatePercent,
		CashbackCapAmount:      cfg.CashbackCapAmount,
		PerOrderFixedFee:       cfg.PerOrderFixedFee,
		PerTransactionFixedFee: cfg.PerTransactionFixedFee,
	})
}
