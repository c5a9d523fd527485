package services

import (
	"context"
	"math"
	"testing"

	domain "github.com/marginlab/api/internal/domain"
)

func testEngine() *PricingEngine {
	seq := 0
	return NewPricingEngine(PricingEngineDeps{
		IDGen: func() string { seq++; return "calc_test" },
	})
}

func TestComputeFees_Components(t *testing.T) {
	cfg := FeeConfig{
		AdminRatePercent:       8,
		ServiceRatePercent:     4,
		ServiceCapAmount:       40_000,
		CashbackRatePercent:    4.5,
		CashbackCapAmount:      60_000,
		PerOrderFixedFee:       1_250,
		PerTransactionFixedFee: 500,
		FreeShipProgramActive:  true,
		CashbackProgramActive:  true,
	}

	fees := ComputeFees(200_000, 10_000, cfg, domain.AllocationTotalBased, 3)

	if fees.FeeBasis != 190_000 {
		t.Fatalf("fee basis: want 190000, got %d", fees.FeeBasis)
	}
	if fees.AdminFeeAmount != 15_200 {
		t.Fatalf("admin fee: want 15200, got %d", fees.AdminFeeAmount)
	}
	if fees.ServiceFeeAmount != 7_600 {
		t.Fatalf("service fee: want 7600, got %d", fees.ServiceFeeAmount)
	}
	if fees.CashbackFeeAmount != 8_550 {
		t.Fatalf("cashback fee: want 8550, got %d", fees.CashbackFeeAmount)
	}
	if fees.PerOrderFeeAmount != 1_250 {
		t.Fatalf("per-order fee should not scale in total mode, got %d", fees.PerOrderFeeAmount)
	}
	sum := fees.AdminFeeAmount + fees.ServiceFeeAmount + fees.CashbackFeeAmount +
		fees.PerOrderFeeAmount + fees.PerTransactionFeeAmount
	if fees.TotalFeeAmount != sum {
		t.Fatalf("total fee %d should equal sum of parts %d", fees.TotalFeeAmount, sum)
	}
	if fees.PercentageFeeAmount != 31_350 || fees.FixedFeeAmount != 1_750 {
		t.Fatalf("unexpected split: percentage %d fixed %d", fees.PercentageFeeAmount, fees.FixedFeeAmount)
	}
}

func TestComputeFees_ProgramGating(t *testing.T) {
	cfg := FeeConfig{
		AdminRatePercent:    8,
		ServiceRatePercent:  4,
		ServiceCapAmount:    40_000,
		CashbackRatePercent: 4.5,
		CashbackCapAmount:   60_000,
	}

	fees := ComputeFees(100_000, 0, cfg, domain.AllocationTotalBased, 1)
	if fees.ServiceFeeAmount != 0 || fees.CashbackFeeAmount != 0 {
		t.Fatalf("inactive programs must not charge fees, got service %d cashback %d",
			fees.ServiceFeeAmount, fees.CashbackFeeAmount)
	}
	if fees.TotalFeeAmount != 8_000 {
		t.Fatalf("total fee: want 8000, got %d", fees.TotalFeeAmount)
	}
}

func TestComputeFees_CapEnforcement(t *testing.T) {
	cfg := FeeConfig{
		ServiceRatePercent:    4,
		ServiceCapAmount:      40_000,
		CashbackRatePercent:   4.5,
		CashbackCapAmount:     60_000,
		FreeShipProgramActive: true,
		CashbackProgramActive: true,
	}

	// 4% of 2,000,000 is 80,000, double the service cap.
	fees := ComputeFees(2_000_000, 0, cfg, domain.AllocationTotalBased, 1)
	if fees.ServiceFeeAmount != cfg.ServiceCapAmount {
		t.Fatalf("service fee must hit the cap exactly, got %d", fees.ServiceFeeAmount)
	}
	if fees.CashbackFeeAmount != cfg.CashbackCapAmount {
		t.Fatalf("cashback fee must hit the cap exactly, got %d", fees.CashbackFeeAmount)
	}

	// Below the threshold the raw percentage applies.
	fees = ComputeFees(100_000, 0, cfg, domain.AllocationTotalBased, 1)
	if fees.ServiceFeeAmount != 4_000 || fees.CashbackFeeAmount != 4_500 {
		t.Fatalf("uncapped fees wrong: service %d cashback %d", fees.ServiceFeeAmount, fees.CashbackFeeAmount)
	}
}

func TestComputeFees_NonNegative(t *testing.T) {
	cases := []struct {
		name    string
		price   int64
		voucher int64
	}{
		{name: "voucher exceeds price", price: 5_000, voucher: 10_000},
		{name: "zero price", price: 0, voucher: 0},
		{name: "negative price", price: -100, voucher: 0},
	}
	cfg := FeeConfig{
		AdminRatePercent:      8,
		ServiceRatePercent:    4,
		FreeShipProgramActive: true,
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fees := ComputeFees(tc.price, tc.voucher, cfg, domain.AllocationTotalBased, 1)
			for label, amount := range map[string]int64{
				"admin":    fees.AdminFeeAmount,
				"service":  fees.ServiceFeeAmount,
				"cashback": fees.CashbackFeeAmount,
				"perOrder": fees.PerOrderFeeAmount,
				"perTxn":   fees.PerTransactionFeeAmount,
				"total":    fees.TotalFeeAmount,
			} {
				if amount < 0 {
					t.Fatalf("%s fee must be non-negative, got %d", label, amount)
				}
			}
			if fees.FeeBasis != 0 {
				t.Fatalf("fee basis must clamp to zero, got %d", fees.FeeBasis)
			}
		})
	}
}

func TestComputeFees_ZeroBasisEffectivePercent(t *testing.T) {
	cfg := FeeConfig{AdminRatePercent: 8, ServiceRatePercent: 4}
	fees := ComputeFees(0, 0, cfg, domain.AllocationTotalBased, 1)
	if fees.EffectiveFeePercent != 12 {
		t.Fatalf("zero basis must fall back to nominal admin+service rate, got %v", fees.EffectiveFeePercent)
	}
}

func TestComputeFees_PerItemMode(t *testing.T) {
	cfg := FeeConfig{AdminRatePercent: 5, PerOrderFixedFee: 1_000}

	total := ComputeFees(100_000, 0, cfg, domain.AllocationTotalBased, 4)
	perItem := ComputeFees(100_000, 0, cfg, domain.AllocationPerItem, 4)

	if total.PerOrderFeeAmount != 1_000 {
		t.Fatalf("total mode per-order fee: want 1000, got %d", total.PerOrderFeeAmount)
	}
	if perItem.PerOrderFeeAmount != 4_000 {
		t.Fatalf("per-item mode per-order fee: want 4000, got %d", perItem.PerOrderFeeAmount)
	}
	if perItem.TotalFeeAmount-total.TotalFeeAmount != 3_000 {
		t.Fatalf("per-item mode must raise the total by the extra fixed fees")
	}
}

func TestPriceSingleItem_Scenario(t *testing.T) {
	engine := testEngine()

	result, err := engine.PriceSingleItem(context.Background(), PriceSingleItemCommand{
		Item: LineItem{
			ID:              "item_1",
			DisplayName:     "Wireless Mouse",
			UnitCost:        50_000,
			Quantity:        1,
			UnitListPrice:   100_000,
			DiscountPercent: 10,
		},
		Fees: FeeConfig{AdminRatePercent: 8},
	})
	if err != nil {
		t.Fatalf("PriceSingleItem error: %v", err)
	}

	if result.EffectiveSellingPrice != 90_000 {
		t.Fatalf("effective price: want 90000, got %d", result.EffectiveSellingPrice)
	}
	if result.Fees.AdminFeeAmount != 7_200 {
		t.Fatalf("admin fee: want 7200, got %d", result.Fees.AdminFeeAmount)
	}
	if result.NetCashReceived != 82_800 {
		t.Fatalf("net cash: want 82800, got %d", result.NetCashReceived)
	}
	if result.NetProfit != 32_800 {
		t.Fatalf("net profit: want 32800, got %d", result.NetProfit)
	}
	if math.Abs(result.MarginPercent-36.4444) > 0.001 {
		t.Fatalf("margin: want ~36.44, got %v", result.MarginPercent)
	}
	if result.MarginStatus != domain.MarginStatusHealthy {
		t.Fatalf("margin status: want healthy, got %s", result.MarginStatus)
	}
	if result.BreakEvenROAS <= 0 {
		t.Fatalf("profitable sale must report a break-even ROAS")
	}
	if result.CalculationID != "calc_test" {
		t.Fatalf("unexpected calculation id %q", result.CalculationID)
	}
}

func TestPriceSingleItem_InputCoercion(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()

	result, err := engine.PriceSingleItem(ctx, PriceSingleItemCommand{
		Item: LineItem{ID: "item_1", UnitCost: 40_000, Quantity: 0, DiscountPercent: -15},
		Fees: FeeConfig{AdminRatePercent: 8},
	})
	if err != nil {
		t.Fatalf("PriceSingleItem error: %v", err)
	}

	if result.Item.Quantity != 1 {
		t.Fatalf("quantity must clamp to 1, got %d", result.Item.Quantity)
	}
	// No list price given: default to twice the unit cost.
	if result.Item.UnitListPrice != 80_000 {
		t.Fatalf("list price default: want 80000, got %d", result.Item.UnitListPrice)
	}
	if result.EffectiveSellingPrice != 80_000 {
		t.Fatalf("effective price: want 80000, got %d", result.EffectiveSellingPrice)
	}
}

func TestPriceSingleItem_ZeroPriceMargin(t *testing.T) {
	engine := testEngine()

	result, err := engine.PriceSingleItem(context.Background(), PriceSingleItemCommand{
		Item: LineItem{ID: "item_1", UnitCost: 0, Quantity: 1},
		Fees: FeeConfig{AdminRatePercent: 8},
	})
	if err != nil {
		t.Fatalf("PriceSingleItem error: %v", err)
	}
	if result.MarginPercent != 0 {
		t.Fatalf("zero price must report zero margin, got %v", result.MarginPercent)
	}
}

func TestAllocateByWeight_Conservation(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		weights []int64
	}{
		{name: "exact split", amount: 15_000, weights: []int64{30_000, 70_000}},
		{name: "remainder spread", amount: 100, weights: []int64{1, 1, 1}},
		{name: "all zero weights", amount: 99, weights: []int64{0, 0, 0, 0}},
		{name: "single weight", amount: 12_345, weights: []int64{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allocations := allocateByWeight(tc.amount, tc.weights)
			var sum int64
			for _, a := range allocations {
				sum += a
			}
			if sum != tc.amount {
				t.Fatalf("allocations must conserve the amount: want %d, got %d", tc.amount, sum)
			}
		})
	}
}

func TestAllocateAmount_Negative(t *testing.T) {
	allocations := allocateAmount(-10, []int64{1, 1, 1})
	var sum int64
	for _, a := range allocations {
		sum += a
		if a > 0 {
			t.Fatalf("negative amount must not produce positive shares, got %v", allocations)
		}
	}
	if sum != -10 {
		t.Fatalf("negative allocation must conserve the amount: got %d", sum)
	}
}
