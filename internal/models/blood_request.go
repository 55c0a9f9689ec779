package models

import "time"

// RequestStatus represents the lifecycle state of a hospital blood request.
type RequestStatus string

const (
	// RequestPending indicates the request awaits an admin decision.
	RequestPending RequestStatus = "Pending"
	// RequestApproved indicates an admin approved the request; stock has not
	// yet been consumed.
	RequestApproved RequestStatus = "Approved"
	// RequestRejected indicates an admin rejected the request.
	RequestRejected RequestStatus = "Rejected"
	// RequestFulfilled indicates matching units were reserved and consumed.
	RequestFulfilled RequestStatus = "Fulfilled"
)

// String returns the string representation of the request status.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized request status.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestFulfilled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestRejected || s == RequestFulfilled
}

// CanTransitionTo reports whether the status machine allows moving to next.
// Allowed: Pending→Approved, Pending→Rejected, Approved→Fulfilled.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestApproved || next == RequestRejected
	case RequestApproved:
		return next == RequestFulfilled
	default:
		return false
	}
}

// ValidRequestStatuses returns all valid request statuses.
func ValidRequestStatuses() []RequestStatus {
	return []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestFulfilled}
}

// Urgency classifies how quickly a blood request needs attention.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// String returns the string representation of the urgency.
func (u Urgency) String() string {
	return string(u)
}

// IsValid returns true if the urgency is a recognized level.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyCritical:
		return true
	default:
		return false
	}
}

// ValidUrgencies returns all valid urgency levels.
func ValidUrgencies() []Urgency {
	return []Urgency{UrgencyNormal, UrgencyUrgent, UrgencyCritical}
}

// BloodRequest represents a hospital's ask for stock.
type BloodRequest struct {
	ID           string        `json:"id"`
	HospitalName string        `json:"hospital_name"`
	BloodType    BloodType     `json:"blood_type"`
	Units        int           `json:"units"`
	Urgency      Urgency       `json:"urgency"`
	Status       RequestStatus `json:"status"`
	RequestedAt  time.Time     `json:"requested_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Validate checks the request's fields for submission.
func (r *BloodRequest) Validate() error {
	if r.HospitalName == "" {
		return &ValidationError{Field: "hospital_name", Message: "hospital name is required"}
	}
	if !r.BloodType.IsValid() {
		return &ValidationError{Field: "blood_type", Message: "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}
	if r.Units <= 0 {
		return &ValidationError{Field: "units", Message: "unit count must be greater than zero"}
	}
	if !r.Urgency.IsValid() {
		return &ValidationError{Field: "urgency", Message: "urgency must be normal, urgent or critical"}
	}
	return nil
}
