package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DriverStatus represents the employment status of a driver.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "ACTIVE"
	DriverStatusInactive DriverStatus = "INACTIVE"
	DriverStatusOnLeave  DriverStatus = "ON_LEAVE"
)

// PayType selects how a driver is paid per load.
type PayType string

const (
	PayTypePerMile    PayType = "PER_MILE"
	PayTypePercentage PayType = "PERCENTAGE"
	PayTypePerLoad    PayType = "PER_LOAD"
	PayTypeHourly     PayType = "HOURLY"
	PayTypeWeekly     PayType = "WEEKLY"
)

// Valid reports whether t is a known pay type.
func (t PayType) Valid() bool {
	switch t {
	case PayTypePerMile, PayTypePercentage, PayTypePerLoad, PayTypeHourly, PayTypeWeekly:
		return true
	}
	return false
}

// Driver represents a driver employed by an organization.
type Driver struct {
	ID             string
	OrganizationID string
	Name           string
	Phone          string
	Status         DriverStatus
	PayType        PayType // empty when not configured
	PayRate        decimal.NullDecimal
	TelegramChatID int64
	DeletedAt      time.Time
}

// Active reports whether the driver can be referenced by new work.
func (d *Driver) Active() bool {
	return d.DeletedAt.IsZero() && d.Status != DriverStatusInactive
}

// HasPayConfig reports whether pay can be computed for this driver.
func (d *Driver) HasPayConfig() bool {
	return d.PayType != "" && d.PayRate.Valid
}
