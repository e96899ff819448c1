package bot

import "github.com/mlahtinen/telegram-haggle-bot/internal/appraisal"

// locationSlot is a single-slot cache for the user's device location. It is
// filled at most once per session (first shared location wins) and read
// opportunistically when the analyze request is built; nothing ever waits on
// it. Access is serialized by the owning session's mutex.
type locationSlot struct {
	coords *appraisal.Coordinates
}

// Set stores the coordinates unless the slot is already filled. Returns
// whether the value was taken.
func (l *locationSlot) Set(latitude, longitude float64) bool {
	if l.coords != nil {
		return false
	}
	l.coords = &appraisal.Coordinates{Latitude: latitude, Longitude: longitude}
	return true
}

// Get returns the cached coordinates, or nil when the user never shared a
// location. A nil result is normal, not an error.
func (l *locationSlot) Get() *appraisal.Coordinates {
	return l.coords
}
