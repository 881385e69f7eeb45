package sync

import (
	"fmt"
	"maps"
	"slices"

	"github.com/agentstation/courtsync/pkg/differ"
)

// Event names sent to the Tracker.
const (
	EventChangeDetected = "Change-Detected"
	EventNoChange       = "No-Change"
	EventChangeFailure  = "Change-Failure"
)

// UpdateType is the outcome reported for a court.
type UpdateType = differ.Class

// CourtDifferences is the reported outcome for one court.
type CourtDifferences struct {
	CourtID                 string     `json:"courtId" yaml:"courtId"`
	Differences             string     `json:"differences,omitempty" yaml:"differences,omitempty"`
	UpdateType              UpdateType `json:"updateType" yaml:"updateType"`
	NumberAddressesInserted int        `json:"numberAddressesInserted,omitempty" yaml:"numberAddressesInserted,omitempty"`
	NumberAddressesUpdated  int        `json:"numberAddressesUpdated,omitempty" yaml:"numberAddressesUpdated,omitempty"`
	NumberAddressesRemoved  int        `json:"numberAddressesRemoved,omitempty" yaml:"numberAddressesRemoved,omitempty"`
	NumberPhonesInserted    int        `json:"numberPhonesInserted,omitempty" yaml:"numberPhonesInserted,omitempty"`
	NumberPhonesUpdated     int        `json:"numberPhonesUpdated,omitempty" yaml:"numberPhonesUpdated,omitempty"`
	NumberPhonesRemoved     int        `json:"numberPhonesRemoved,omitempty" yaml:"numberPhonesRemoved,omitempty"`
}

// Changes returns the total number of address and phone operations.
func (d CourtDifferences) Changes() int {
	return d.NumberAddressesInserted + d.NumberAddressesUpdated + d.NumberAddressesRemoved +
		d.NumberPhonesInserted + d.NumberPhonesUpdated + d.NumberPhonesRemoved
}

// Summary returns a one-line description of the outcome.
func (d CourtDifferences) Summary() string {
	return fmt.Sprintf("%s: %s (addresses +%d ~%d -%d, phones +%d ~%d -%d)",
		d.CourtID, d.UpdateType,
		d.NumberAddressesInserted, d.NumberAddressesUpdated, d.NumberAddressesRemoved,
		d.NumberPhonesInserted, d.NumberPhonesUpdated, d.NumberPhonesRemoved)
}

func (d *CourtDifferences) add(s differ.Summary) {
	d.NumberAddressesInserted += s.AddressesInserted
	d.NumberAddressesUpdated += s.AddressesUpdated
	d.NumberAddressesRemoved += s.AddressesRemoved
	d.NumberPhonesInserted += s.PhonesInserted
	d.NumberPhonesUpdated += s.PhonesUpdated
	d.NumberPhonesRemoved += s.PhonesRemoved
}

// Statistics collects the outcomes of a pass keyed by court id. Courts that
// needed no change are not recorded.
type Statistics struct {
	Courts map[string]CourtDifferences `json:"courts" yaml:"courts"`
}

// NewStatistics returns empty statistics.
func NewStatistics() *Statistics {
	return &Statistics{Courts: make(map[string]CourtDifferences)}
}

// Record stores the outcome of a court, replacing any earlier one.
func (s *Statistics) Record(d CourtDifferences) {
	if s.Courts == nil {
		s.Courts = make(map[string]CourtDifferences)
	}
	s.Courts[d.CourtID] = d
}

// Len returns the number of recorded courts.
func (s *Statistics) Len() int {
	return len(s.Courts)
}

// Get returns the outcome recorded for a court.
func (s *Statistics) Get(courtID string) (CourtDifferences, bool) {
	d, ok := s.Courts[courtID]
	return d, ok
}

// Sorted returns the recorded outcomes ordered by court id.
func (s *Statistics) Sorted() []CourtDifferences {
	out := make([]CourtDifferences, 0, len(s.Courts))
	for _, id := range slices.Sorted(maps.Keys(s.Courts)) {
		out = append(out, s.Courts[id])
	}
	return out
}

// Merge copies every outcome of other into s.
func (s *Statistics) Merge(other *Statistics) *Statistics {
	if other == nil {
		return s
	}
	for _, d := range other.Courts {
		s.Record(d)
	}
	return s
}

// Count returns how many courts ended with the given update type.
func (s *Statistics) Count(updateType UpdateType) int {
	n := 0
	for _, d := range s.Courts {
		if d.UpdateType == updateType {
			n++
		}
	}
	return n
}
