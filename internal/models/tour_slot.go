package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of travel dates.
const DateLayout = "2006-01-02"

// TourSlot is one bookable occurrence of a destination on a date
type TourSlot struct {
	ID            string    `json:"id" db:"id"`
	DestinationID string    `json:"destination_id" db:"destination_id"`
	Date          time.Time `json:"date" db:"slot_date"`
	Capacity      int       `json:"capacity" db:"capacity"`
	Occupied      int       `json:"occupied" db:"occupied"`
	Version       int64     `json:"version" db:"version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// SlotID derives the slot id for a destination on a date, read in UTC.
func SlotID(destinationID string, date time.Time) string {
	return fmt.Sprintf("%s_%s", destinationID, date.UTC().Format(DateLayout))
}

// Available returns the seats still sellable on the slot.
func (s *TourSlot) Available() int {
	return s.Capacity - s.Occupied
}

// CheckInvariant returns a *LedgerInvariantError when the counters are out of range.
func (s *TourSlot) CheckInvariant() error {
	if s.Occupied < 0 || s.Occupied > s.Capacity {
		return &LedgerInvariantError{SlotID: s.ID, Capacity: s.Capacity, Occupied: s.Occupied}
	}
	return nil
}

// Availability is the read model returned by availability queries
type Availability struct {
	SlotID        string `json:"slot_id"`
	CapacityTotal int    `json:"capacity_total"`
	Occupied      int    `json:"occupied"`
	Available     int    `json:"available"`
	IsAvailable   bool   `json:"is_available"`
}

// NewAvailability builds the read model for a slot. A nil slot yields the
// zero, unavailable result.
func NewAvailability(slotID string, slot *TourSlot) *Availability {
	if slot == nil {
		return &Availability{SlotID: slotID}
	}
	available := slot.Available()
	return &Availability{
		SlotID:        slot.ID,
		CapacityTotal: slot.Capacity,
		Occupied:      slot.Occupied,
		Available:     available,
		IsAvailable:   available > 0,
	}
}

// ParseTravelDate parses a YYYY-MM-DD date in UTC.
func ParseTravelDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ValidationError("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date.UTC(), nil
}
