package booking

import "commonroom/models"

// FindConflict returns the first existing reservation whose half-open
// interval overlaps the candidate, or nil if none does. Touching intervals
// are not conflicts. No ordering guarantee when several overlap.
func FindConflict(candidate models.Interval, existing []models.Reservation) *models.Reservation {
	for i := range existing {
		if candidate.Overlaps(existing[i].Interval()) {
			return &existing[i]
		}
	}
	return nil
}
