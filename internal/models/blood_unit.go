package models

import "time"

// UnitStatus represents the lifecycle state of a blood unit.
type UnitStatus string

const (
	// UnitAvailable indicates the unit is in stock and reservable.
	UnitAvailable UnitStatus = "Available"
	// UnitReserved indicates the unit is held for a pending fulfillment.
	UnitReserved UnitStatus = "Reserved"
	// UnitUsed indicates the unit was consumed by a fulfillment.
	UnitUsed UnitStatus = "Used"
	// UnitExpired indicates the unit passed its expiry date unreserved.
	UnitExpired UnitStatus = "Expired"
)

// String returns the string representation of the unit status.
func (s UnitStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized unit status.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitAvailable, UnitReserved, UnitUsed, UnitExpired:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed. A Used or
// Expired unit never changes state again; Used units are retained for audit.
func (s UnitStatus) IsTerminal() bool {
	return s == UnitUsed || s == UnitExpired
}

// CanTransitionTo reports whether the status machine allows moving to next.
// Allowed: Available→Reserved, Available→Expired, Reserved→Used,
// Reserved→Available (release on cancelled fulfillment).
func (s UnitStatus) CanTransitionTo(next UnitStatus) bool {
	switch s {
	case UnitAvailable:
		return next == UnitReserved || next == UnitExpired
	case UnitReserved:
		return next == UnitUsed || next == UnitAvailable
	default:
		return false
	}
}

// ValidUnitStatuses returns all valid unit statuses.
func ValidUnitStatuses() []UnitStatus {
	return []UnitStatus{UnitAvailable, UnitReserved, UnitUsed, UnitExpired}
}

// BloodUnit represents one physical donation bag in inventory.
type BloodUnit struct {
	ID             string     `json:"id"`
	BagID          string     `json:"bag_id"`
	BloodType      BloodType  `json:"blood_type"`
	CollectionDate time.Time  `json:"collection_date"`
	ExpiryDate     time.Time  `json:"expiry_date"`
	Location       string     `json:"location"`
	Status         UnitStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ExpiryFrom derives a unit's expiry date from its collection date and the
// configured shelf life.
func ExpiryFrom(collection time.Time, shelfLife time.Duration) time.Time {
	return collection.Add(shelfLife)
}

// IsExpired reports whether the unit's expiry date has passed at now.
func (u *BloodUnit) IsExpired(now time.Time) bool {
	return now.After(u.ExpiryDate)
}

// Validate checks the unit's fields for admission into inventory.
func (u *BloodUnit) Validate() error {
	if u.BagID == "" {
		return &ValidationError{Field: "bag_id", Message: "bag ID is required"}
	}
	if !u.BloodType.IsValid() {
		return &ValidationError{Field: "blood_type", Message: "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}
	if u.CollectionDate.IsZero() {
		return &ValidationError{Field: "collection_date", Message: "collection date is required"}
	}
	return nil
}
