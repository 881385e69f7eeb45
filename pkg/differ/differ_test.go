package differ_test

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/courtsync/internal/testhelper"
	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/differ"
	"github.com/agentstation/courtsync/pkg/merge"
	"github.com/agentstation/courtsync/pkg/transform"
)

func leeds() courts.Court {
	return courts.Court{
		CourtID:         "LEEDCC",
		Description:     "Leeds Crown Court",
		LongDescription: "Leeds Crown Court",
		Active:          true,
		Type:            "CC",
		Addresses: []courts.Address{{
			ID:         ptr.To(int64(12)),
			Premise:    "Oxford Row",
			PostalCode: "LS1 3BG",
			Primary:    true,
			StartDate:  &civil.Date{Year: 2021, Month: 4, Day: 1},
			Phones:     []courts.Phone{{ID: ptr.To(int64(7)), Number: "0113 306 2800", Type: "BUS"}},
		}},
	}
}

// sheffieldPair is the merged register record and the legacy record for the
// changed-fax scenario.
func sheffieldPair(t *testing.T) (courts.Court, courts.Court) {
	t.Helper()
	tr := transform.New(testhelper.NewReferenceData(), transform.WithClock(testhelper.Clock))

	incoming, err := tr.FromRegister(context.Background(), testhelper.SheffieldRegister(), true)
	require.NoError(t, err)
	legacy, err := tr.FromLegacy(context.Background(), testhelper.SheffieldAgency(), true)
	require.NoError(t, err)
	return merge.Merge(incoming[0], &legacy), legacy
}

func TestCompareClassification(t *testing.T) {
	court := leeds()

	t.Run("identical records", func(t *testing.T) {
		result := differ.Compare(&court, leeds())
		assert.Equal(t, differ.ClassNone, result.Class)
		assert.True(t, result.Diff.Equal())
		assert.Equal(t, "equal", result.Diff.String())
		assert.Equal(t, []string{"courtId", "description", "longDescription", "active", "courtType", "addresses"}, result.Diff.Common)
	})

	t.Run("unknown court is an insert", func(t *testing.T) {
		result := differ.Compare(nil, court)
		assert.Equal(t, differ.ClassInsert, result.Class)
		assert.Empty(t, result.Diff.OnlyOnLeft())
		assert.Len(t, result.Diff.OnlyOnRight(), 6)
		assert.Empty(t, result.Diff.Common)
	})

	t.Run("changed court is an update", func(t *testing.T) {
		incoming := leeds()
		incoming.Description = "Leeds Combined Court"
		result := differ.Compare(&court, incoming)
		assert.Equal(t, differ.ClassUpdate, result.Class)
		require.Len(t, result.Diff.Differing(), 1)
		assert.Equal(t, "description", result.Diff.Differing()[0].Path)
	})
}

func TestDiffString(t *testing.T) {
	old := courts.Court{CourtID: "LEEDCC", Description: "Leeds", LongDescription: "Leeds Crown Court", Active: true, Type: "CC"}
	incoming := courts.Court{
		CourtID:          "LEEDCC",
		Description:      "Leeds Crown Court",
		Active:           false,
		Type:             "CC",
		DeactivationDate: &civil.Date{Year: 2024, Month: 3, Day: 7},
	}

	result := differ.Compare(&old, incoming)
	assert.Equal(t,
		"not equal: only on left={longDescription=Leeds Crown Court}"+
			": only on right={deactivationDate=2024-03-07}"+
			": value differences={description=(Leeds, Leeds Crown Court), active=(true, false)}",
		result.Diff.String())
}

func TestDiffRendersNestedRecords(t *testing.T) {
	incoming := leeds()
	incoming.Addresses[0].Town = &courts.ReferenceCode{Domain: courts.DomainCity, Code: "25344", Description: "Leeds", ActiveFlag: "Y"}

	result := differ.Compare(nil, incoming)
	assert.Contains(t, result.Diff.String(),
		"addresses=[{addressId=12, premise=Oxford Row, town={domain=CITY, code=25344, description=Leeds}, postalCode=LS1 3BG, "+
			"primary=true, noFixedAddress=false, startDate=2021-04-01, phones=[{phoneId=7, number=0113 306 2800, type=BUS}]}]")
}

func TestDiffIgnoresAddressAndPhoneOrder(t *testing.T) {
	court := leeds()
	court.Addresses[0].Phones = append(court.Addresses[0].Phones, courts.Phone{ID: ptr.To(int64(8)), Number: "0113 306 2801", Type: "FAX"})
	court.Addresses = append(court.Addresses, courts.Address{ID: ptr.To(int64(13)), Premise: "Annexe"})

	reordered := court.Clone()
	reordered.Addresses[0], reordered.Addresses[1] = reordered.Addresses[1], reordered.Addresses[0]
	phones := reordered.Addresses[1].Phones
	phones[0], phones[1] = phones[1], phones[0]

	assert.Equal(t, differ.ClassNone, differ.Compare(&court, reordered).Class)
}

func TestDiffDetectsPhoneIdChange(t *testing.T) {
	court := leeds()
	incoming := leeds()
	incoming.Addresses[0].Phones[0].ID = nil

	assert.Equal(t, differ.ClassUpdate, differ.Compare(&court, incoming).Class)
}

func TestPlanInsert(t *testing.T) {
	incoming := leeds()
	incoming.Addresses[0].ID = nil
	incoming.Addresses[0].Phones[0].ID = nil

	cs := differ.Plan(nil, incoming)
	assert.Equal(t, differ.OpInsert, cs.Court)
	require.Len(t, cs.Addresses, 1)
	assert.Equal(t, differ.OpInsert, cs.Addresses[0].Op)
	assert.Nil(t, cs.Addresses[0].Legacy)
	assert.Equal(t, differ.Summary{AddressesInserted: 1, PhonesInserted: 1}, cs.Summary())
	assert.Equal(t, "LEEDCC: court insert, 1 addresses inserted, 1 phones inserted", cs.String())
}

func TestPlanNoChanges(t *testing.T) {
	court := leeds()
	cs := differ.Plan(&court, leeds())
	assert.Equal(t, differ.OpNone, cs.Court)
	assert.False(t, cs.HasChanges())
	assert.Equal(t, "No changes detected", cs.String())
}

func TestPlanChangedFax(t *testing.T) {
	incoming, legacy := sheffieldPair(t)

	result := differ.Compare(&legacy, incoming)
	assert.Equal(t, differ.ClassUpdate, result.Class)

	cs := differ.Plan(&legacy, incoming)
	assert.Equal(t, differ.OpNone, cs.Court, "court fields are unchanged")
	assert.Empty(t, cs.RemovedAddresses)
	require.Len(t, cs.Addresses, 1)

	address := cs.Addresses[0]
	assert.Equal(t, differ.OpNone, address.Op, "address content is unchanged")
	require.Len(t, address.RemovedPhones, 1)
	assert.Equal(t, int64(23437), *address.RemovedPhones[0].ID)
	require.Len(t, address.Phones, 1)
	assert.Equal(t, differ.OpInsert, address.Phones[0].Op)
	assert.Equal(t, "0114 1232317", address.Phones[0].Phone.Number)

	assert.Equal(t, differ.Summary{PhonesInserted: 1, PhonesRemoved: 1}, cs.Summary())
}

func TestPlanAddressUpdatesAndRemovals(t *testing.T) {
	old := leeds()
	old.Addresses = append(old.Addresses, courts.Address{ID: ptr.To(int64(13)), Premise: "Annexe"})

	incoming := leeds()
	incoming.Addresses[0].Comment = "Closed on Fridays"
	incoming.Addresses[0].Phones[0].Ext = "22"

	cs := differ.Plan(&old, incoming)
	require.Len(t, cs.RemovedAddresses, 1)
	assert.Equal(t, int64(13), *cs.RemovedAddresses[0].ID)
	assert.Equal(t, differ.OpUpdate, cs.Addresses[0].Op)
	require.Len(t, cs.Addresses[0].Phones, 1)
	assert.Equal(t, differ.OpUpdate, cs.Addresses[0].Phones[0].Op)
	assert.Equal(t, differ.Summary{AddressesUpdated: 1, AddressesRemoved: 1, PhonesUpdated: 1}, cs.Summary())
}

func TestPlanUnknownAddressIdIsUpdated(t *testing.T) {
	old := leeds()
	old.Addresses = nil

	cs := differ.Plan(&old, leeds())
	require.Len(t, cs.Addresses, 1)
	assert.Equal(t, differ.OpUpdate, cs.Addresses[0].Op)
	assert.Equal(t, differ.OpUpdate, cs.Addresses[0].Phones[0].Op)
}

func TestPlanDeactivation(t *testing.T) {
	old := leeds()
	incoming := old.Clone()
	incoming.Active = false
	incoming.DeactivationDate = ptr.To(testhelper.Today())

	cs := differ.Plan(&old, incoming)
	assert.Equal(t, differ.OpUpdate, cs.Court)
	assert.Zero(t, cs.Summary().Total())
	assert.True(t, cs.HasChanges())
}
