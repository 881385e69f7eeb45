package sync

import (
	"context"
	"maps"
	"slices"
	"strconv"
	gosync "sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/differ"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
	"github.com/agentstation/courtsync/pkg/merge"
	"github.com/agentstation/courtsync/pkg/refdata"
	"github.com/agentstation/courtsync/pkg/transform"
)

// Register is the read side of the court register. Absent courts are
// returned as nil with a nil error.
type Register interface {
	Court(ctx context.Context, courtID string) (*courts.RegisterCourt, error)
	ActiveCourts(ctx context.Context) ([]courts.RegisterCourt, error)
}

// Legacy is the prison API as used for reconciliation. Absent records are
// returned as nil with a nil error.
type Legacy interface {
	Agency(ctx context.Context, agencyID string) (*courts.Agency, error)
	Courts(ctx context.Context) ([]courts.Agency, error)

	InsertAgency(ctx context.Context, agency courts.Agency) (*courts.Agency, error)
	UpdateAgency(ctx context.Context, agency courts.Agency) (*courts.Agency, error)
	InsertAddress(ctx context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error)
	UpdateAddress(ctx context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error)
	RemoveAddress(ctx context.Context, agencyID string, addressID int64) error
	InsertPhone(ctx context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error)
	UpdatePhone(ctx context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error)
	RemovePhone(ctx context.Context, agencyID string, addressID, phoneID int64) error
}

// Syncer drives reconciliation passes.
type Syncer struct {
	register    Register
	legacy      Legacy
	options     *Options
	transformer *transform.Transformer

	// full serializes full passes, which re-initialise the resolver.
	full gosync.Mutex
}

// New creates a Syncer. When no resolver is configured and legacy can serve
// reference data, a resolver over legacy is created.
func New(register Register, legacy Legacy, opts ...Option) *Syncer {
	options := Defaults().Apply(opts...)
	if options.Resolver == nil {
		if source, ok := legacy.(refdata.Source); ok {
			options.Resolver = refdata.New(source, 0)
		}
	}
	return &Syncer{
		register:    register,
		legacy:      legacy,
		options:     options,
		transformer: transform.New(options.Resolver, transform.WithClock(options.Now)),
	}
}

// ApplyChanges reports whether the Syncer issues legacy writes.
func (s *Syncer) ApplyChanges() bool {
	return s.options.ApplyChanges
}

// FullSync reconciles every court. Register-only courts are inserted, legacy
// courts the register no longer lists are deactivated, and courts on both
// sides are updated where they differ.
func (s *Syncer) FullSync(ctx context.Context) (*Statistics, error) {
	if err := s.options.Validate(); err != nil {
		return nil, err
	}

	s.full.Lock()
	defer s.full.Unlock()

	ctx, cancel := s.begin(ctx, "full")
	defer cancel()
	logger := logging.Ctx(ctx)
	start := time.Now()

	// Step 1: Warm the reference data cache
	if err := s.options.Resolver.Initialise(ctx, courts.Domains...); err != nil {
		return nil, errors.WrapResource("initialise", "reference codes", "", err)
	}

	// Step 2: Fetch both sides
	registerCourts, err := s.register.ActiveCourts(ctx)
	if err != nil {
		return nil, errors.WrapResource("fetch", "register courts", "", err)
	}
	agencies, err := s.legacy.Courts(ctx)
	if err != nil {
		return nil, errors.WrapResource("fetch", "legacy courts", "", err)
	}

	// Step 3: Normalize and key by court id
	incoming := make(map[string]courts.Court)
	for _, court := range registerCourts {
		records, err := s.transformer.FromRegister(ctx, court, true)
		if err != nil {
			return nil, errors.WrapResource("transform", "register court", court.CourtID, err)
		}
		for _, record := range records {
			incoming[record.CourtID] = record
		}
	}
	legacy := make(map[string]courts.Court)
	for _, agency := range agencies {
		record, err := s.transformer.FromLegacy(ctx, agency, true)
		if err != nil {
			return nil, errors.WrapResource("transform", "legacy court", agency.AgencyID, err)
		}
		legacy[record.CourtID] = record
	}

	logger.Info().
		Int("register_courts", len(incoming)).
		Int("legacy_courts", len(legacy)).
		Bool("apply_changes", s.options.ApplyChanges).
		Msg("Starting full sync")

	stats := NewStatistics()

	// Step 4: Insert courts only the register knows
	for _, id := range slices.Sorted(maps.Keys(incoming)) {
		if _, ok := legacy[id]; ok {
			continue
		}
		if err := s.locked(ctx, id, func(ctx context.Context) error {
			s.reconcile(ctx, incoming[id], nil, stats)
			return nil
		}); err != nil {
			return stats, err
		}
	}

	// Step 5: Deactivate active courts the register no longer lists
	today := civil.DateOf(s.options.Now())
	for _, id := range slices.Sorted(maps.Keys(legacy)) {
		current := legacy[id]
		if _, ok := incoming[id]; ok || !current.Active {
			continue
		}
		deactivated := current.Clone()
		deactivated.Active = false
		deactivated.DeactivationDate = &today
		if err := s.locked(ctx, id, func(ctx context.Context) error {
			s.reconcile(ctx, deactivated, &current, stats)
			return nil
		}); err != nil {
			return stats, err
		}
	}

	// Step 6: Update courts on both sides
	for _, id := range slices.Sorted(maps.Keys(incoming)) {
		current, ok := legacy[id]
		if !ok {
			continue
		}
		if err := s.locked(ctx, id, func(ctx context.Context) error {
			s.reconcile(ctx, incoming[id], &current, stats)
			return nil
		}); err != nil {
			return stats, err
		}
	}

	logger.Info().
		Int("inserted", stats.Count(differ.ClassInsert)).
		Int("updated", stats.Count(differ.ClassUpdate)).
		Int("failed", stats.Count(differ.ClassError)).
		Dur("duration", time.Since(start)).
		Msg("Full sync completed")
	return stats, nil
}

// SyncCourt reconciles one register court, or each court split from it.
// A court the register does not know yields empty statistics.
func (s *Syncer) SyncCourt(ctx context.Context, courtID string) (*Statistics, error) {
	if err := s.options.Validate(); err != nil {
		return nil, err
	}
	if courtID == "" {
		return nil, errors.NewValidationError("courtId", courtID, "cannot be empty")
	}

	ctx, cancel := s.begin(ctx, "court")
	defer cancel()
	ctx = logging.WithCourt(ctx, courtID)

	stats := NewStatistics()
	court, err := s.register.Court(ctx, courtID)
	if err != nil {
		return nil, errors.WrapResource("fetch", "register court", courtID, err)
	}
	if court == nil {
		logging.Ctx(ctx).Info().Msg("Court not found in register, nothing to sync")
		return stats, nil
	}

	records, err := s.transformer.FromRegister(ctx, *court, false)
	if err != nil {
		return nil, errors.WrapResource("transform", "register court", courtID, err)
	}

	for _, record := range records {
		err := s.locked(ctx, record.CourtID, func(ctx context.Context) error {
			agency, err := s.legacy.Agency(ctx, record.CourtID)
			if err != nil {
				return errors.WrapResource("fetch", "legacy court", record.CourtID, err)
			}
			var current *courts.Court
			if agency != nil {
				c, err := s.transformer.FromLegacy(ctx, *agency, false)
				if err != nil {
					return errors.WrapResource("transform", "legacy court", record.CourtID, err)
				}
				current = &c
			}
			s.reconcile(ctx, record, current, stats)
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// begin applies the configured logger and timeout to a pass.
func (s *Syncer) begin(ctx context.Context, pass string) (context.Context, context.CancelFunc) {
	if s.options.Logger != nil {
		ctx = logging.WithLogger(ctx, s.options.Logger)
	}
	ctx = logging.WithOperation(ctx, "sync-"+pass)
	ctx = logging.WithField(ctx, "run_id", uuid.NewString())
	if s.options.Timeout > 0 {
		return context.WithTimeout(ctx, s.options.Timeout)
	}
	return ctx, func() {}
}

// locked runs fn while holding the lock for courtID.
func (s *Syncer) locked(ctx context.Context, courtID string, fn func(context.Context) error) error {
	unlock, err := s.options.Locker.Lock(ctx, courtID)
	if err != nil {
		return errors.WrapResource("lock", "court", courtID, err)
	}
	defer unlock()
	return fn(logging.WithCourt(ctx, courtID))
}

// withBuildingState reapplies the register's building state to addresses
// that took their end date from the legacy side. An active building clears
// the end date; an inactive one keeps an existing legacy end date or takes
// the incoming one. Merge keeps address order, so merged and incoming line up
// by index.
func withBuildingState(merged, incoming courts.Court) courts.Court {
	for i := range merged.Addresses {
		if i >= len(incoming.Addresses) {
			break
		}
		switch end := incoming.Addresses[i].EndDate; {
		case end == nil:
			merged.Addresses[i].EndDate = nil
		case merged.Addresses[i].EndDate == nil:
			merged.Addresses[i].EndDate = ptr.Clone(end)
		}
	}
	return merged
}

// reconcile merges, diffs and applies one court and records the outcome.
// Apply failures are recorded as ERROR and never returned.
func (s *Syncer) reconcile(ctx context.Context, incoming courts.Court, current *courts.Court, stats *Statistics) {
	logger := logging.Ctx(ctx)
	courtID := incoming.CourtID

	merged := withBuildingState(merge.Merge(incoming, current), incoming)
	result := differ.Compare(current, merged)
	if result.Diff.Equal() {
		logger.Debug().Msg("No change")
		s.options.Tracker.Track(ctx, EventNoChange, map[string]string{"courtId": courtID})
		return
	}

	changes := result.Diff.String()
	outcome := CourtDifferences{
		CourtID:     courtID,
		Differences: changes,
		UpdateType:  result.Class,
	}

	fired, err := s.apply(ctx, differ.Plan(current, merged), &outcome)
	if err != nil {
		outcome.UpdateType = differ.ClassError
		stats.Record(outcome)
		logger.Error().Err(err).Msg("Failed to update court")
		s.options.Tracker.Track(ctx, EventChangeFailure, map[string]string{"courtId": courtID})
		return
	}

	s.options.Tracker.Track(ctx, EventChangeDetected, map[string]string{
		"courtId":         courtID,
		"changes":         changes,
		"changes-applied": strconv.FormatBool(s.options.ApplyChanges),
	})
	if !fired {
		logger.Debug().Str("changes", changes).Msg("Difference needs no legacy write")
		return
	}

	stats.Record(outcome)
	logger.Info().
		Str("update_type", string(outcome.UpdateType)).
		Bool("applied", s.options.ApplyChanges).
		Int("changes", outcome.Changes()).
		Msg("Court changed")
}
