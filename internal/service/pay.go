package service

import (
	"github.com/shopspring/decimal"

	"freight/internal/domain"
)

// PayConfig is a driver's pay configuration.
type PayConfig struct {
	PayType domain.PayType
	PayRate decimal.Decimal
}

// TripMetrics are the load figures pay is computed from.
type TripMetrics struct {
	TotalMiles  decimal.Decimal
	LoadedMiles decimal.Decimal
	EmptyMiles  decimal.Decimal
	Revenue     decimal.Decimal
}

// PayCalculator computes driver pay for one load. Implementations must be pure.
type PayCalculator func(cfg PayConfig, m TripMetrics) decimal.Decimal

var (
	hundred         = decimal.NewFromInt(100)
	averageSpeedMPH = decimal.NewFromInt(50)
	defaultHours    = decimal.NewFromInt(10)
)

// ComputePay returns the pay for one load under cfg, rounded to cents and never negative.
// Weekly drivers are paid at settlement time, so a load earns them nothing.
func ComputePay(cfg PayConfig, m TripMetrics) decimal.Decimal {
	miles := m.LoadedMiles.Add(m.EmptyMiles)
	if miles.IsZero() {
		miles = m.TotalMiles
	}

	var amount decimal.Decimal
	switch cfg.PayType {
	case domain.PayTypePerMile:
		amount = miles.Mul(cfg.PayRate)
	case domain.PayTypePercentage:
		amount = m.Revenue.Mul(cfg.PayRate).Div(hundred)
	case domain.PayTypePerLoad:
		amount = cfg.PayRate
	case domain.PayTypeHourly:
		hours := defaultHours
		if miles.IsPositive() {
			hours = miles.Div(averageSpeedMPH)
		}
		amount = hours.Mul(cfg.PayRate)
	default:
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
