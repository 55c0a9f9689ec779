// Package models provides data models for the JeevanDhara platform.
package models

// BloodType represents one of the eight ABO/Rh blood group combinations.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

// String returns the string representation of the blood type.
func (b BloodType) String() string {
	return string(b)
}

// IsValid returns true if the blood type is one of the eight recognized groups.
func (b BloodType) IsValid() bool {
	switch b {
	case BloodTypeAPos, BloodTypeANeg, BloodTypeBPos, BloodTypeBNeg,
		BloodTypeABPos, BloodTypeABNeg, BloodTypeOPos, BloodTypeONeg:
		return true
	default:
		return false
	}
}

// ValidBloodTypes returns all valid blood types.
func ValidBloodTypes() []BloodType {
	return []BloodType{
		BloodTypeAPos, BloodTypeANeg,
		BloodTypeBPos, BloodTypeBNeg,
		BloodTypeABPos, BloodTypeABNeg,
		BloodTypeOPos, BloodTypeONeg,
	}
}
