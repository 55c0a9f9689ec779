package models

import "time"

// AppointmentStatus represents the lifecycle state of a donation appointment.
type AppointmentStatus string

const (
	// AppointmentPending indicates the slot is booked but not yet confirmed.
	AppointmentPending AppointmentStatus = "Pending"
	// AppointmentConfirmed indicates staff have confirmed the slot.
	AppointmentConfirmed AppointmentStatus = "Confirmed"
	// AppointmentCompleted indicates the donation took place.
	AppointmentCompleted AppointmentStatus = "Completed"
	// AppointmentCancelled indicates the slot was cancelled by donor or staff.
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// String returns the string representation of the appointment status.
func (s AppointmentStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized appointment status.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed from this status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// CanTransitionTo reports whether the status machine allows moving to next.
// Transitions only move forward; Cancelled is reachable from any
// non-terminal state.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == AppointmentCancelled {
		return true
	}
	switch s {
	case AppointmentPending:
		return next == AppointmentConfirmed || next == AppointmentCompleted
	case AppointmentConfirmed:
		return next == AppointmentCompleted
	default:
		return false
	}
}

// ValidAppointmentStatuses returns all valid appointment statuses.
func ValidAppointmentStatuses() []AppointmentStatus {
	return []AppointmentStatus{
		AppointmentPending,
		AppointmentConfirmed,
		AppointmentCompleted,
		AppointmentCancelled,
	}
}

// Appointment represents a donor's scheduled donation slot.
type Appointment struct {
	ID        string            `json:"id"`
	DonorID   string            `json:"donor_id"`
	Date      time.Time         `json:"date"`
	Location  string            `json:"location"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// Validate checks the appointment's fields for booking.
func (a *Appointment) Validate() error {
	if a.DonorID == "" {
		return &ValidationError{Field: "donor_id", Message: "donor reference is required"}
	}
	if a.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "appointment date is required"}
	}
	if a.Location == "" {
		return &ValidationError{Field: "location", Message: "location is required"}
	}
	return nil
}
