package domain

// ProgramRate pairs a percentage rate with its per-order cap.
type ProgramRate struct {
	RatePercent float64
	CapAmount   int64
}

// Marketplace describes one supported marketplace and its published fee
// schedule so clients can populate pickers without hardcoding the tables.
type Marketplace struct {
	ID                      string
	DisplayName             string
	SellerTiers             []string
	CategoryGroups          []string
	DefaultAdminRatePercent float64
	FreeShipProgram         ProgramRate
	CashbackProgram         ProgramRate
	PerOrderFixedFee        int64
	PerTransactionFixedFee  int64
}
