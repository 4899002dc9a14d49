package service

import (
	"github.com/shopspring/decimal"

	"freight/internal/domain"
)

var (
	defaultMPG      = decimal.RequireFromString("6.5")
	milesPerTripDay = decimal.NewFromInt(500)
)

// OperatingCosts are the estimated costs of running a load.
type OperatingCosts struct {
	Fuel        decimal.Decimal
	Maintenance decimal.Decimal
	Fixed       decimal.Decimal
	Total       decimal.Decimal
}

// resolveMPG prefers the truck's average, then the organization's, then a fleet default.
func resolveMPG(truck *domain.Truck, settings *domain.OrganizationSettings) decimal.Decimal {
	if truck != nil && truck.AverageMPG.Valid && truck.AverageMPG.Decimal.IsPositive() {
		return truck.AverageMPG.Decimal
	}
	if settings != nil && settings.AverageMPG.Valid && settings.AverageMPG.Decimal.IsPositive() {
		return settings.AverageMPG.Decimal
	}
	return defaultMPG
}

// EstimateOperatingCosts estimates fuel, maintenance and fixed costs for miles.
// Every started 500 miles counts as one day of fixed cost, with a minimum of one.
func EstimateOperatingCosts(miles, mpg decimal.Decimal, settings *domain.OrganizationSettings) OperatingCosts {
	if settings == nil {
		settings = &domain.OrganizationSettings{}
	}
	days := miles.Div(milesPerTripDay).Ceil()
	if days.LessThan(decimal.NewFromInt(1)) {
		days = decimal.NewFromInt(1)
	}

	c := OperatingCosts{
		Fuel:        miles.Div(mpg).Mul(settings.FuelPrice).Round(2),
		Maintenance: miles.Mul(settings.MaintenanceCPM).Round(2),
		Fixed:       settings.FixedCostPerDay.Mul(days).Round(2),
	}
	c.Total = c.Fuel.Add(c.Maintenance).Add(c.Fixed)
	return c
}
