package sync_test

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/courtsync/internal/testhelper"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/differ"
	pkgerrors "github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
	"github.com/agentstation/courtsync/pkg/sync"
)

type event struct {
	name       string
	attributes map[string]string
}

type recordingTracker struct {
	mu     gosync.Mutex
	events []event
}

func (r *recordingTracker) Track(_ context.Context, name string, attributes map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, attributes})
}

func (r *recordingTracker) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.name+" "+e.attributes["courtId"])
	}
	return out
}

type fixture struct {
	refData  *testhelper.ReferenceData
	register *testhelper.Register
	prison   *testhelper.Prison
	tracker  *recordingTracker
}

func newFixture(registerCourts []courts.RegisterCourt, agencies ...courts.Agency) *fixture {
	refData := testhelper.NewReferenceData()
	return &fixture{
		refData:  refData,
		register: testhelper.NewRegister(registerCourts...),
		prison:   testhelper.NewPrison(refData, agencies...),
		tracker:  &recordingTracker{},
	}
}

func (f *fixture) syncer(opts ...sync.Option) *sync.Syncer {
	base := []sync.Option{
		sync.WithApplyChanges(true),
		sync.WithResolver(f.refData),
		sync.WithTracker(f.tracker),
		sync.WithClock(testhelper.Clock),
		sync.WithLogger(logging.NewNopLogger()),
	}
	return sync.New(f.register, f.prison, append(base, opts...)...)
}

func TestSyncCourtChangedFax(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())

	stats, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)

	outcome, ok := stats.Get("SHFCC")
	require.True(t, ok)
	assert.Equal(t, differ.ClassUpdate, outcome.UpdateType)
	assert.Equal(t, 1, outcome.NumberPhonesInserted)
	assert.Equal(t, 1, outcome.NumberPhonesRemoved)
	assert.Zero(t, outcome.NumberAddressesUpdated, "address content is unchanged")
	assert.Zero(t, outcome.NumberPhonesUpdated, "BUS phone is untouched")
	assert.Contains(t, outcome.Differences, "not equal: value differences={addresses=")

	assert.Equal(t, []string{"RemovePhone SHFCC/56/23437", "InsertPhone SHFCC/56"}, f.prison.Writes())

	stored := f.prison.Stored("SHFCC")
	require.Len(t, stored.Addresses, 1)
	var numbers []string
	for _, p := range stored.Addresses[0].Phones {
		numbers = append(numbers, p.Number)
	}
	assert.ElementsMatch(t, []string{"0114 1232311", "0114 1232317"}, numbers)

	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, sync.EventChangeDetected, f.tracker.events[0].name)
	assert.Equal(t, "true", f.tracker.events[0].attributes["changes-applied"])
	assert.Equal(t, outcome.Differences, f.tracker.events[0].attributes["changes"])
}

func TestSyncCourtIsIdempotent(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())
	syncer := f.syncer()

	_, err := syncer.SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)
	f.prison.ResetWrites()

	stats, err := syncer.SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)
	assert.Zero(t, stats.Len())
	assert.Empty(t, f.prison.Writes())
	assert.Equal(t, []string{"Change-Detected SHFCC", "No-Change SHFCC"}, f.tracker.names())
}

func TestSyncCourtInsertsNewCourt(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()})
	syncer := f.syncer()

	stats, err := syncer.SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)

	outcome, _ := stats.Get("SHFCC")
	assert.Equal(t, differ.ClassInsert, outcome.UpdateType)
	assert.Equal(t, 1, outcome.NumberAddressesInserted)
	assert.Equal(t, 2, outcome.NumberPhonesInserted)
	assert.Equal(t, []string{
		"InsertAgency SHFCC",
		"InsertAddress SHFCC",
		"InsertPhone SHFCC/1001",
		"InsertPhone SHFCC/1001",
	}, f.prison.Writes())

	stored := f.prison.Stored("SHFCC")
	assert.Equal(t, "CC", stored.CourtType)
	assert.Equal(t, courts.AgencyTypeCourt, stored.AgencyType)
	require.Len(t, stored.Addresses, 1)
	assert.Equal(t, "Business Address", stored.Addresses[0].AddressType)
	assert.Equal(t, testhelper.Today(), *stored.Addresses[0].StartDate)

	f.prison.ResetWrites()
	stats, err = syncer.SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)
	assert.Zero(t, stats.Len())
	assert.Empty(t, f.prison.Writes())
}

func TestSyncCourtBuildingActiveState(t *testing.T) {
	today := testhelper.Today()
	yesterday := today.AddDays(-1)

	tests := []struct {
		name           string
		legacyEnd      *civil.Date
		buildingActive bool
		wantEnd        *civil.Date
		wantWrites     []string
	}{
		{
			name:           "active legacy, active building",
			buildingActive: true,
			wantWrites:     []string{"UpdateAgency SHFCC"},
		},
		{
			name:       "ended legacy, inactive building keeps end date",
			legacyEnd:  &yesterday,
			wantEnd:    &yesterday,
			wantWrites: []string{"UpdateAgency SHFCC"},
		},
		{
			name:       "active legacy, inactive building is end dated",
			wantEnd:    &today,
			wantWrites: []string{"UpdateAgency SHFCC", "UpdateAddress SHFCC/56"},
		},
		{
			name:           "ended legacy, active building clears end date",
			legacyEnd:      &yesterday,
			buildingActive: true,
			wantWrites:     []string{"UpdateAgency SHFCC", "UpdateAddress SHFCC/56"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			register := testhelper.SheffieldRegister()
			register.CourtName = "New Court Name"
			register.Buildings[0].Active = tt.buildingActive

			legacy := testhelper.SheffieldAgency()
			legacy.Addresses[0].Phones[1].Number = "0114 1232317"
			legacy.Addresses[0].EndDate = tt.legacyEnd

			f := newFixture([]courts.RegisterCourt{register}, legacy)
			_, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
			require.NoError(t, err)

			assert.Equal(t, tt.wantWrites, f.prison.Writes())
			stored := f.prison.Stored("SHFCC")
			require.Len(t, stored.Addresses, 1)
			assert.Equal(t, tt.wantEnd, stored.Addresses[0].EndDate)
			assert.Equal(t, "New Court Name", stored.Description)
		})
	}
}

func TestSyncCourtInactiveBuildingOnNewAddress(t *testing.T) {
	register := testhelper.SheffieldRegister()
	register.Buildings[0].Active = false
	f := newFixture([]courts.RegisterCourt{register})

	_, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)

	stored := f.prison.Stored("SHFCC")
	require.Len(t, stored.Addresses, 1)
	require.NotNil(t, stored.Addresses[0].EndDate)
	assert.Equal(t, testhelper.Today(), *stored.Addresses[0].EndDate)
}

func TestSyncCourtUnknownToRegister(t *testing.T) {
	f := newFixture(nil, testhelper.SheffieldAgency())

	stats, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)
	assert.Zero(t, stats.Len())
	assert.Empty(t, f.prison.Writes())
	assert.Empty(t, f.tracker.events)
}

func TestSyncCourtSplitsSubBuildings(t *testing.T) {
	court := testhelper.SheffieldRegister()
	court.Buildings = append(court.Buildings, courts.Building{
		ID: 2, CourtID: "SHFCC", SubCode: "SHFCC1", BuildingName: "Annexe", Town: "Sheffield", Active: true,
	})
	f := newFixture([]courts.RegisterCourt{court}, testhelper.SheffieldAgency())

	stats, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)

	sub, ok := stats.Get("SHFCC1")
	require.True(t, ok)
	assert.Equal(t, differ.ClassInsert, sub.UpdateType)
	require.NotNil(t, f.prison.Stored("SHFCC1"))
	assert.Equal(t, "Sheffield Crown Court - Annexe", f.prison.Stored("SHFCC1").Description)

	main, ok := stats.Get("SHFCC")
	require.True(t, ok)
	assert.Equal(t, differ.ClassUpdate, main.UpdateType)
}

func TestSyncCourtDryRun(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())

	stats, err := f.syncer(sync.WithDryRun(true)).SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err)

	outcome, ok := stats.Get("SHFCC")
	require.True(t, ok)
	assert.Equal(t, differ.ClassUpdate, outcome.UpdateType)
	assert.Equal(t, 1, outcome.NumberPhonesInserted)
	assert.Equal(t, 1, outcome.NumberPhonesRemoved)
	assert.NotEmpty(t, outcome.Differences)
	assert.Empty(t, f.prison.Writes(), "dry run issues no writes")

	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, "false", f.tracker.events[0].attributes["changes-applied"])
}

func TestSyncCourtApplyFailure(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())
	f.prison.FailOn = map[string]error{"InsertPhone": pkgerrors.NewAPIError("prison-api", 500, "down")}

	stats, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.NoError(t, err, "apply failures are recorded, not returned")

	outcome, ok := stats.Get("SHFCC")
	require.True(t, ok)
	assert.Equal(t, differ.ClassError, outcome.UpdateType)
	assert.Equal(t, 1, outcome.NumberPhonesRemoved, "counts up to the failure are kept")
	assert.Zero(t, outcome.NumberPhonesInserted)
	assert.NotEmpty(t, outcome.Differences)
	assert.Equal(t, []string{"Change-Failure SHFCC"}, f.tracker.names())
}

func TestSyncCourtReadErrorsPropagate(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())
	f.prison.FailOn = map[string]error{"Agency": pkgerrors.NewAPIError("prison-api", 503, "unavailable")}

	_, err := f.syncer().SyncCourt(context.Background(), "SHFCC")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsServiceUnavailable(err))
}

func TestFullSyncClassification(t *testing.T) {
	courtA := testhelper.SimpleRegister("AAA", "Court A", "CRN")
	courtB := testhelper.SimpleRegister("BBB", "Court B", "MAG")
	courtC := testhelper.SimpleRegister("CCC", "Court C", "ZZZ")

	f := newFixture([]courts.RegisterCourt{courtA})
	syncer := f.syncer()
	ctx := context.Background()

	// Seed the legacy side with A exactly as the register describes it.
	_, err := syncer.FullSync(ctx)
	require.NoError(t, err)

	// D is known only to the legacy system.
	_, err = f.prison.InsertAgency(ctx, courts.Agency{
		AgencyID: "DDD", Description: "Court D", AgencyType: courts.AgencyTypeCourt, Active: true, CourtType: "MC",
	})
	require.NoError(t, err)
	f.register.Put(courtB)
	f.register.Put(courtC)
	f.prison.ResetWrites()
	f.tracker.events = nil

	stats, err := syncer.FullSync(ctx)
	require.NoError(t, err)

	_, ok := stats.Get("AAA")
	assert.False(t, ok, "unchanged court is not reported")

	b, _ := stats.Get("BBB")
	assert.Equal(t, differ.ClassInsert, b.UpdateType)
	c, _ := stats.Get("CCC")
	assert.Equal(t, differ.ClassInsert, c.UpdateType)
	assert.Equal(t, "OTHER", f.prison.Stored("CCC").CourtType)

	d, _ := stats.Get("DDD")
	assert.Equal(t, differ.ClassUpdate, d.UpdateType)
	assert.Contains(t, d.Differences, "active=(true, false)")
	stored := f.prison.Stored("DDD")
	assert.False(t, stored.Active)
	require.NotNil(t, stored.DeactivationDate)
	assert.Equal(t, testhelper.Today(), *stored.DeactivationDate)

	assert.Equal(t, 3, stats.Len())
	assert.Equal(t, 2, stats.Count(differ.ClassInsert))
	assert.Equal(t, 1, stats.Count(differ.ClassUpdate))
	assert.Equal(t, []string{
		"Change-Detected BBB",
		"Change-Detected CCC",
		"Change-Detected DDD",
		"No-Change AAA",
	}, f.tracker.names(), "inserts, then deactivations, then matched courts")

	// Nothing changed since: the third pass is silent.
	f.prison.ResetWrites()
	stats, err = syncer.FullSync(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Len())
	assert.Empty(t, f.prison.Writes())
}

func TestFullSyncWarmsResolver(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()}, testhelper.SheffieldAgency())

	_, err := f.syncer().FullSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.refData.Initialised)
	assert.Zero(t, f.refData.LiveLookups, "full sync resolves from the cache")
}

func TestFullSyncFetchErrorAborts(t *testing.T) {
	f := newFixture([]courts.RegisterCourt{testhelper.SheffieldRegister()})
	f.register.Err = errors.New("connection refused")

	stats, err := f.syncer().FullSync(context.Background())
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.Empty(t, f.prison.Writes())
}

func TestSyncRequiresResolver(t *testing.T) {
	f := newFixture(nil)
	syncer := sync.New(f.register, f.prison)

	_, err := syncer.FullSync(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = f.syncer().SyncCourt(context.Background(), "")
	assert.True(t, pkgerrors.IsValidationError(err))
}
