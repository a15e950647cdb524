package inventory

import "time"

type ReplenishStatus string

const (
	ReplenishNone      ReplenishStatus = "NONE"
	ReplenishRequested ReplenishStatus = "REQUESTED"
	ReplenishApproved  ReplenishStatus = "APPROVED"
)

type Medicine struct {
	ID                   string
	Name                 string
	Manufacturer         string
	ExpiryDate           time.Time
	InventoryStock       int
	LowStockLevel        int
	ReplenishmentStock   int // quantity added when a request is approved
	ReplenishStatus      ReplenishStatus
	ReplenishRequestDate time.Time
	ApprovedDate         time.Time
}

// IsLowStock reports whether stock has fallen to the alert level.
func (m Medicine) IsLowStock() bool {
	return m.InventoryStock <= m.LowStockLevel
}

func (m Medicine) IsExpired(asOf time.Time) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(asOf)
}
