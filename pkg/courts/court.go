// Package courts defines the normalized court model shared by both sides of
// a reconciliation, plus the wire shapes of the court register and the
// legacy prison system.
//
// A Court is built fresh for every pass from either a register court or a
// legacy agency, merged, diffed and then discarded. Optional identifiers are
// pointers: a nil ID means the record has never been persisted in the legacy
// system. Optional strings use the empty string for "absent".
package courts

import (
	"cmp"
	"slices"

	"cloud.google.com/go/civil"

	"github.com/agentstation/courtsync/internal/utils/ptr"
)

// Reference data domains used to resolve coded address fields.
const (
	DomainAddressType = "ADDR_TYPE"
	DomainCity        = "CITY"
	DomainCounty      = "COUNTY"
	DomainCountry     = "COUNTRY"
)

// Domains lists every reference domain a sync pass warms.
var Domains = []string{DomainAddressType, DomainCity, DomainCounty, DomainCountry}

// Court is the normalized representation of a court on either side.
type Court struct {
	CourtID          string      `json:"courtId"`
	Description      string      `json:"description"`
	LongDescription  string      `json:"longDescription,omitempty"`
	Active           bool        `json:"active"`
	Type             string      `json:"courtType"`
	DeactivationDate *civil.Date `json:"deactivationDate,omitempty"`
	Addresses        []Address   `json:"addresses,omitempty"`
}

// Address is a court address with its phones.
type Address struct {
	ID             *int64         `json:"addressId,omitempty"`
	Type           *ReferenceCode `json:"addressType,omitempty"`
	Premise        string         `json:"premise,omitempty"`
	Street         string         `json:"street,omitempty"`
	Locality       string         `json:"locality,omitempty"`
	Town           *ReferenceCode `json:"town,omitempty"`
	PostalCode     string         `json:"postalCode,omitempty"`
	County         *ReferenceCode `json:"county,omitempty"`
	Country        *ReferenceCode `json:"country,omitempty"`
	Primary        bool           `json:"primary"`
	NoFixedAddress bool           `json:"noFixedAddress"`
	StartDate      *civil.Date    `json:"startDate,omitempty"`
	EndDate        *civil.Date    `json:"endDate,omitempty"`
	Comment        string         `json:"comment,omitempty"`
	Phones         []Phone        `json:"phones,omitempty"`
}

// Phone is a phone number attached to an address. The same shape is used
// on the legacy wire.
type Phone struct {
	ID     *int64 `json:"phoneId,omitempty"`
	Number string `json:"number"`
	Type   string `json:"type"`
	Ext    string `json:"ext,omitempty"`
}

// ReferenceCode is a coded value from the legacy reference data.
type ReferenceCode struct {
	Domain      string      `json:"domain"`
	Code        string      `json:"code"`
	Description string      `json:"description"`
	ActiveFlag  string      `json:"activeFlag"`
	ExpiredDate *civil.Date `json:"expiredDate,omitempty"`
}

// SameReferenceCode compares domain, code and description. Two nil codes are equal.
func SameReferenceCode(a, b *ReferenceCode) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Domain == b.Domain && a.Code == b.Code && a.Description == b.Description
}

// SameCourt reports court-level equality. Addresses are not considered.
func SameCourt(a, b Court) bool {
	return a.CourtID == b.CourtID &&
		a.Description == b.Description &&
		a.LongDescription == b.LongDescription &&
		a.Active == b.Active &&
		a.Type == b.Type &&
		ptr.Equal(a.DeactivationDate, b.DeactivationDate)
}

// SameAddressContent reports whether two addresses describe the same place.
// It is the identity test used when carrying legacy ids onto incoming
// addresses and ignores ids, dates and phones.
func SameAddressContent(a, b Address) bool {
	return a.Premise == b.Premise &&
		a.Street == b.Street &&
		a.Locality == b.Locality &&
		SameReferenceCode(a.Town, b.Town) &&
		a.PostalCode == b.PostalCode &&
		SameReferenceCode(a.County, b.County) &&
		SameReferenceCode(a.Country, b.Country) &&
		a.Primary == b.Primary
}

// SameAddressRecord reports whether an address needs no write: content plus
// id and metadata. Phones are reconciled separately and are excluded.
func SameAddressRecord(a, b Address) bool {
	return SameAddressContent(a, b) &&
		ptr.Equal(a.ID, b.ID) &&
		SameReferenceCode(a.Type, b.Type) &&
		a.NoFixedAddress == b.NoFixedAddress &&
		ptr.Equal(a.StartDate, b.StartDate) &&
		ptr.Equal(a.EndDate, b.EndDate) &&
		a.Comment == b.Comment
}

// SamePhone compares number, type and extension. Ids are excluded.
func SamePhone(a, b Phone) bool {
	return a.Number == b.Number && a.Type == b.Type && a.Ext == b.Ext
}

// CompareAddresses orders addresses by premise, postal code, street,
// locality, then the town, county and country descriptions.
func CompareAddresses(a, b Address) int {
	return cmp.Or(
		cmp.Compare(a.Premise, b.Premise),
		cmp.Compare(a.PostalCode, b.PostalCode),
		cmp.Compare(a.Street, b.Street),
		cmp.Compare(a.Locality, b.Locality),
		cmp.Compare(a.Town.description(), b.Town.description()),
		cmp.Compare(a.County.description(), b.County.description()),
		cmp.Compare(a.Country.description(), b.Country.description()),
	)
}

// ComparePhones orders phones by number, type and extension.
func ComparePhones(a, b Phone) int {
	return cmp.Or(
		cmp.Compare(a.Number, b.Number),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Ext, b.Ext),
	)
}

// SortedAddresses returns a sorted copy.
func SortedAddresses(addresses []Address) []Address {
	sorted := slices.Clone(addresses)
	slices.SortStableFunc(sorted, CompareAddresses)
	return sorted
}

// SortedPhones returns a sorted copy.
func SortedPhones(phones []Phone) []Phone {
	sorted := slices.Clone(phones)
	slices.SortStableFunc(sorted, ComparePhones)
	return sorted
}

func (r *ReferenceCode) description() string {
	if r == nil {
		return ""
	}
	return r.Description
}

// CodeOrEmpty returns the code of r, or "" when r is nil.
func (r *ReferenceCode) CodeOrEmpty() string {
	if r == nil {
		return ""
	}
	return r.Code
}

// Clone returns a deep copy of c.
func (c Court) Clone() Court {
	out := c
	out.DeactivationDate = ptr.Clone(c.DeactivationDate)
	if c.Addresses != nil {
		out.Addresses = make([]Address, len(c.Addresses))
		for i, a := range c.Addresses {
			out.Addresses[i] = a.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of a.
func (a Address) Clone() Address {
	out := a
	out.ID = ptr.Clone(a.ID)
	out.Type = a.Type.Clone()
	out.Town = a.Town.Clone()
	out.County = a.County.Clone()
	out.Country = a.Country.Clone()
	out.StartDate = ptr.Clone(a.StartDate)
	out.EndDate = ptr.Clone(a.EndDate)
	if a.Phones != nil {
		out.Phones = make([]Phone, len(a.Phones))
		for i, p := range a.Phones {
			out.Phones[i] = p.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of p.
func (p Phone) Clone() Phone {
	out := p
	out.ID = ptr.Clone(p.ID)
	return out
}

// Clone returns a deep copy of r, or nil.
func (r *ReferenceCode) Clone() *ReferenceCode {
	if r == nil {
		return nil
	}
	out := *r
	out.ExpiredDate = ptr.Clone(r.ExpiredDate)
	return &out
}
