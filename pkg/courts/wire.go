package courts

import "cloud.google.com/go/civil"

// RegisterCourt is a court as served by the court register.
type RegisterCourt struct {
	CourtID          string     `json:"courtId"`
	CourtName        string     `json:"courtName"`
	CourtDescription string     `json:"courtDescription,omitempty"`
	Type             CourtType  `json:"type"`
	Active           bool       `json:"active"`
	Buildings        []Building `json:"buildings,omitempty"`
}

// CourtType is the register's court type.
type CourtType struct {
	CourtType string `json:"courtType"`
	CourtName string `json:"courtName"`
}

// Building is a physical location of a register court. A building with a
// SubCode is synced as a court of its own.
type Building struct {
	ID           int64     `json:"id"`
	CourtID      string    `json:"courtId"`
	SubCode      string    `json:"subCode,omitempty"`
	BuildingName string    `json:"buildingName,omitempty"`
	Street       string    `json:"street,omitempty"`
	Locality     string    `json:"locality,omitempty"`
	Town         string    `json:"town,omitempty"`
	County       string    `json:"county,omitempty"`
	Postcode     string    `json:"postcode,omitempty"`
	Country      string    `json:"country,omitempty"`
	Contacts     []Contact `json:"contacts,omitempty"`
	Active       bool      `json:"active"`
}

// Contact is a phone or fax detail of a building.
type Contact struct {
	ID         int64  `json:"id"`
	CourtID    string `json:"courtId"`
	BuildingID int64  `json:"buildingId"`
	Type       string `json:"type"`
	Detail     string `json:"detail"`
}

// AgencyTypeCourt is the legacy agency type for courts.
const AgencyTypeCourt = "CRT"

// Agency is a court as held by the legacy prison system.
type Agency struct {
	AgencyID         string          `json:"agencyId"`
	Description      string          `json:"description"`
	LongDescription  string          `json:"longDescription,omitempty"`
	AgencyType       string          `json:"agencyType"`
	Active           bool            `json:"active"`
	CourtType        string          `json:"courtType,omitempty"`
	DeactivationDate *civil.Date     `json:"deactivationDate,omitempty"`
	Addresses        []AgencyAddress `json:"addresses,omitempty"`
}

// AgencyAddress is a legacy address. Reads carry descriptions in the coded
// fields (AddressType, Town, County, Country); writes carry codes.
type AgencyAddress struct {
	AddressID      *int64      `json:"addressId,omitempty"`
	AddressType    string      `json:"addressType,omitempty"`
	Flat           string      `json:"flat,omitempty"`
	Premise        string      `json:"premise,omitempty"`
	Street         string      `json:"street,omitempty"`
	Locality       string      `json:"locality,omitempty"`
	Town           string      `json:"town,omitempty"`
	PostalCode     string      `json:"postalCode,omitempty"`
	County         string      `json:"county,omitempty"`
	Country        string      `json:"country,omitempty"`
	Primary        bool        `json:"primary"`
	NoFixedAddress bool        `json:"noFixedAddress"`
	StartDate      *civil.Date `json:"startDate,omitempty"`
	EndDate        *civil.Date `json:"endDate,omitempty"`
	Comment        string      `json:"comment,omitempty"`
	Phones         []Phone     `json:"phones,omitempty"`
}
