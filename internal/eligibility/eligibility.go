// Package eligibility implements the donor eligibility rules applied before
// an appointment can be booked.
package eligibility

import (
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
)

// MinDonationGap is the minimum time required between two whole-blood
// donations.
const MinDonationGap = 90 * 24 * time.Hour

// Ineligibility reasons returned to callers. These are stable strings used
// in API responses.
const (
	ReasonNotHealthy        = "not healthy today"
	ReasonDonationTooRecent = "donation too recent"
)

// Result is the outcome of an eligibility evaluation.
type Result struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Evaluate decides whether a donor may donate at time now. The health check
// is evaluated first, so an unhealthy donor always sees the health reason
// even if they are also inside the donation gap.
func Evaluate(donor *models.Donor, healthyToday bool, now time.Time) Result {
	if !healthyToday {
		return Result{Eligible: false, Reason: ReasonNotHealthy}
	}

	if donor.LastDonation != nil {
		elapsed := now.Sub(*donor.LastDonation)
		if elapsed < MinDonationGap {
			return Result{Eligible: false, Reason: ReasonDonationTooRecent}
		}
	}

	return Result{Eligible: true}
}

// NextEligibleAt returns the earliest time the donor may donate again, or the
// zero time if the donor has never donated.
func NextEligibleAt(donor *models.Donor) time.Time {
	if donor.LastDonation == nil {
		return time.Time{}
	}
	return donor.LastDonation.Add(MinDonationGap)
}
