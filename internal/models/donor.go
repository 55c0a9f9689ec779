package models

import (
	"strings"
	"time"
)

// Role determines which API surface an account may use.
type Role string

const (
	// RoleDonor is the default role given at signup.
	RoleDonor Role = "donor"
	// RoleHospital may submit and view blood requests.
	RoleHospital Role = "hospital"
	// RoleAdmin manages inventory, requests and appointments.
	RoleAdmin Role = "admin"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is recognized.
func (r Role) IsValid() bool {
	switch r {
	case RoleDonor, RoleHospital, RoleAdmin:
		return true
	default:
		return false
	}
}

// Donor represents a registered account. Most accounts are blood donors;
// hospital and admin accounts share the same record with a different role.
type Donor struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	BloodType    BloodType  `json:"blood_type"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	LastDonation *time.Time `json:"last_donation,omitempty"`
	// TotalDonations only ever increases, and only via a completed donation.
	TotalDonations int       `json:"total_donations"`
	Eligible       bool      `json:"eligible"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address. Donor emails are
// stored and compared in this form so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the donor's fields for registration.
func (d *Donor) Validate() error {
	if d.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if d.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	if !d.Role.IsValid() {
		return &ValidationError{Field: "role", Message: "role must be donor, hospital or admin"}
	}
	if !d.BloodType.IsValid() {
		return &ValidationError{Field: "blood_type", Message: "blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}
	return nil
}
