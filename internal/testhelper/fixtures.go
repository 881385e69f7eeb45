package testhelper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
)

// Now is the fixed instant fixtures treat as "now".
var Now = time.Date(2024, time.March, 7, 10, 30, 0, 0, time.UTC)

// Clock returns Now.
func Clock() time.Time {
	return Now
}

// Today is the calendar date of Now.
func Today() civil.Date {
	return civil.DateOf(Now)
}

// SheffieldRegister is the register's view of Sheffield Crown Court: one
// building with a telephone and a fax.
func SheffieldRegister() courts.RegisterCourt {
	return courts.RegisterCourt{
		CourtID:   "SHFCC",
		CourtName: "Sheffield Crown Court",
		Type:      courts.CourtType{CourtType: "CRN", CourtName: "Crown Court"},
		Active:    true,
		Buildings: []courts.Building{{
			ID:           1,
			CourtID:      "SHFCC",
			BuildingName: "Main Building",
			Street:       "Crown Square",
			Town:         "Sheffield",
			County:       "South Yorkshire",
			Postcode:     "S1 5TT",
			Country:      "England",
			Active:       true,
			Contacts: []courts.Contact{
				{ID: 1, CourtID: "SHFCC", BuildingID: 1, Type: "TEL", Detail: "0114 1232311"},
				{ID: 2, CourtID: "SHFCC", BuildingID: 1, Type: "FAX", Detail: "0114 1232317"},
			},
		}},
	}
}

// SheffieldAgency is the legacy view of the same court: address 56 with
// phones 23432 (BUS, unchanged) and 23437 (FAX, a different number).
func SheffieldAgency() courts.Agency {
	return courts.Agency{
		AgencyID:        "SHFCC",
		Description:     "Sheffield Crown Court",
		LongDescription: "Sheffield Crown Court",
		AgencyType:      courts.AgencyTypeCourt,
		Active:          true,
		CourtType:       "CC",
		Addresses: []courts.AgencyAddress{{
			AddressID:   ptr.To(int64(56)),
			AddressType: "Business Address",
			Premise:     "Main Building",
			Street:      "Crown Square",
			Town:        "Sheffield",
			PostalCode:  "S1 5TT",
			County:      "South Yorkshire",
			Country:     "England",
			Primary:     true,
			StartDate:   &civil.Date{Year: 2021, Month: time.April, Day: 1},
			Phones: []courts.Phone{
				{ID: ptr.To(int64(23432)), Number: "0114 1232311", Type: "BUS"},
				{ID: ptr.To(int64(23437)), Number: "0114 1232312", Type: "FAX"},
			},
		}},
	}
}

// SimpleRegister is a one-building court with no contacts.
func SimpleRegister(id, name, courtType string) courts.RegisterCourt {
	return courts.RegisterCourt{
		CourtID:   id,
		CourtName: name,
		Type:      courts.CourtType{CourtType: courtType},
		Active:    true,
		Buildings: []courts.Building{{
			ID:           1,
			CourtID:      id,
			BuildingName: name + " Building",
			Town:         "Leeds",
			Postcode:     "LS1 1AA",
			Active:       true,
		}},
	}
}

// LoadTestdata loads a file from the caller's testdata directory.
func LoadTestdata(t testing.TB, filename string) []byte {
	t.Helper()

	path := filepath.Join("testdata", filename)
	data, err := os.ReadFile(path) //nolint:gosec // test file paths are controlled
	if err != nil {
		t.Fatalf("Failed to load testdata file %s: %v", path, err)
	}
	return data
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %T: %v", v, err)
	}
	return string(data)
}
