package breakeven

import "github.com/shopspring/decimal"

// Status classifies how far revenue is from break-even
type Status string

const (
	// StatusSafe means revenue covers break-even
	StatusSafe Status = "safe"

	// StatusWarning means revenue is within 80% of break-even
	StatusWarning Status = "warning"

	// StatusDanger means revenue is below 80% of break-even
	StatusDanger Status = "danger"
)

var (
	safeThreshold    = decimal.NewFromInt(1)
	warningThreshold = decimal.RequireFromString("0.8")
)

// String returns the wire form
func (s Status) String() string {
	return string(s)
}

// ClassifyStatus maps an unrounded achievement rate to a status.
// Each band is inclusive at its lower bound.
func ClassifyStatus(achievement decimal.Decimal) Status {
	switch {
	case achievement.GreaterThanOrEqual(safeThreshold):
		return StatusSafe
	case achievement.GreaterThanOrEqual(warningThreshold):
		return StatusWarning
	default:
		return StatusDanger
	}
}

// AllStatuses lists every status in severity order
func AllStatuses() []Status {
	return []Status{StatusSafe, StatusWarning, StatusDanger}
}
