// Package transform normalizes register courts and legacy agencies into
// courts.Court records, and turns records back into legacy write payloads.
package transform

import (
	"context"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/agentstation/courtsync/pkg/courts"
)

// Field limits of the legacy agency table.
const (
	MaxDescription     = 40
	MaxLongDescription = 3000
)

// BusinessAddress is the address type description given to every register building.
const BusinessAddress = "Business Address"

// Resolver turns a description into a reference code. A nil code with a
// nil error means no match.
type Resolver interface {
	Resolve(ctx context.Context, domain, description string, useCache bool) (*courts.ReferenceCode, error)
}

// Transformer converts between wire shapes and the normalized model.
type Transformer struct {
	resolver Resolver
	now      func() time.Time
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock overrides the clock used for start and end dates.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Transformer.
func New(resolver Resolver, opts ...Option) *Transformer {
	t := &Transformer{resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today returns the current calendar date.
func (t *Transformer) Today() civil.Date {
	return civil.DateOf(t.now())
}

// FromRegister converts a register court into one or more records.
//
// A court with fewer than two buildings yields a single record. Otherwise
// every building carrying a sub-code becomes a court of its own, keyed by
// that sub-code, and the remaining buildings stay with the parent court.
// Sub-courts come first, the parent last.
func (t *Transformer) FromRegister(ctx context.Context, court courts.RegisterCourt, useCache bool) ([]courts.Court, error) {
	if len(court.Buildings) < 2 {
		record, err := t.registerCourt(ctx, court, court.Buildings, useCache)
		if err != nil {
			return nil, err
		}
		return []courts.Court{record}, nil
	}

	var out []courts.Court
	var remaining []courts.Building
	for _, building := range court.Buildings {
		if building.SubCode == "" {
			remaining = append(remaining, building)
			continue
		}
		name := court.CourtName + " - " + building.BuildingName
		sub := courts.RegisterCourt{
			CourtID:          building.SubCode,
			CourtName:        Truncate(name, MaxDescription),
			CourtDescription: Truncate(name, MaxLongDescription),
			Type:             court.Type,
			Active:           court.Active,
		}
		record, err := t.registerCourt(ctx, sub, []courts.Building{building}, useCache)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	main, err := t.registerCourt(ctx, court, remaining, useCache)
	if err != nil {
		return nil, err
	}
	return append(out, main), nil
}

func (t *Transformer) registerCourt(ctx context.Context, court courts.RegisterCourt, buildings []courts.Building, useCache bool) (courts.Court, error) {
	longDescription := court.CourtDescription
	if longDescription == "" {
		longDescription = court.CourtName
	}
	record := courts.Court{
		CourtID:         court.CourtID,
		Description:     court.CourtName,
		LongDescription: longDescription,
		Active:          court.Active,
		Type:            CourtType(court.Type.CourtType),
	}

	today := t.Today()
	for i, building := range buildings {
		address, err := t.buildingAddress(ctx, court.CourtName, building, useCache)
		if err != nil {
			return courts.Court{}, err
		}
		address.Primary = i == 0
		start := today
		address.StartDate = &start
		if !building.Active {
			end := today
			address.EndDate = &end
		}
		record.Addresses = append(record.Addresses, address)
	}
	return record, nil
}

func (t *Transformer) buildingAddress(ctx context.Context, courtName string, building courts.Building, useCache bool) (courts.Address, error) {
	premise := building.BuildingName
	if premise == "" {
		premise = courtName
	}
	address := courts.Address{
		Premise:    premise,
		Street:     building.Street,
		Locality:   building.Locality,
		PostalCode: building.Postcode,
	}

	var err error
	if address.Type, err = t.resolver.Resolve(ctx, courts.DomainAddressType, BusinessAddress, useCache); err != nil {
		return address, err
	}
	if address.Town, err = t.resolver.Resolve(ctx, courts.DomainCity, building.Town, useCache); err != nil {
		return address, err
	}
	if address.County, err = t.resolver.Resolve(ctx, courts.DomainCounty, building.County, useCache); err != nil {
		return address, err
	}
	if address.Country, err = t.resolver.Resolve(ctx, courts.DomainCountry, building.Country, useCache); err != nil {
		return address, err
	}

	for _, contact := range building.Contacts {
		address.Phones = append(address.Phones, courts.Phone{
			Number: contact.Detail,
			Type:   phoneType(contact.Type),
		})
	}
	return address, nil
}

// phoneType maps register contact types onto legacy phone types.
func phoneType(contactType string) string {
	if contactType == "TEL" {
		return "BUS"
	}
	return contactType
}

// FromLegacy converts a legacy agency. Coded address fields arrive as
// descriptions and are resolved back to reference codes. The deactivation
// date is not carried: the register has no notion of it, so carrying it
// would make every deactivated court differ forever.
func (t *Transformer) FromLegacy(ctx context.Context, agency courts.Agency, useCache bool) (courts.Court, error) {
	courtType := agency.CourtType
	if courtType == "" {
		courtType = OtherCourtType
	}
	record := courts.Court{
		CourtID:         agency.AgencyID,
		Description:     agency.Description,
		LongDescription: agency.LongDescription,
		Active:          agency.Active,
		Type:            courtType,
	}

	for _, a := range agency.Addresses {
		address := courts.Address{
			ID:             a.AddressID,
			Premise:        a.Premise,
			Street:         a.Street,
			Locality:       a.Locality,
			PostalCode:     a.PostalCode,
			Primary:        a.Primary,
			NoFixedAddress: a.NoFixedAddress,
			StartDate:      a.StartDate,
			EndDate:        a.EndDate,
			Comment:        a.Comment,
		}

		var err error
		if address.Type, err = t.resolver.Resolve(ctx, courts.DomainAddressType, a.AddressType, useCache); err != nil {
			return courts.Court{}, err
		}
		if address.Town, err = t.resolver.Resolve(ctx, courts.DomainCity, a.Town, useCache); err != nil {
			return courts.Court{}, err
		}
		if address.County, err = t.resolver.Resolve(ctx, courts.DomainCounty, a.County, useCache); err != nil {
			return courts.Court{}, err
		}
		if address.Country, err = t.resolver.Resolve(ctx, courts.DomainCountry, a.Country, useCache); err != nil {
			return courts.Court{}, err
		}

		for _, p := range a.Phones {
			address.Phones = append(address.Phones, p.Clone())
		}
		record.Addresses = append(record.Addresses, address.Clone())
	}
	return record, nil
}

// ToAgency builds the court-level legacy payload. Addresses are written
// separately and are left out.
func ToAgency(court courts.Court) courts.Agency {
	agency := courts.Agency{
		AgencyID:        court.CourtID,
		Description:     court.Description,
		LongDescription: court.LongDescription,
		AgencyType:      courts.AgencyTypeCourt,
		Active:          court.Active,
		CourtType:       court.Type,
	}
	if court.DeactivationDate != nil {
		d := *court.DeactivationDate
		agency.DeactivationDate = &d
	}
	return agency
}

// ToAgencyAddress builds the legacy address payload, sending codes rather
// than descriptions for the coded fields.
func ToAgencyAddress(address courts.Address) courts.AgencyAddress {
	a := address.Clone()
	return courts.AgencyAddress{
		AddressID:      a.ID,
		AddressType:    a.Type.CodeOrEmpty(),
		Premise:        a.Premise,
		Street:         a.Street,
		Locality:       a.Locality,
		Town:           a.Town.CodeOrEmpty(),
		PostalCode:     a.PostalCode,
		County:         a.County.CodeOrEmpty(),
		Country:        a.Country.CodeOrEmpty(),
		Primary:        a.Primary,
		NoFixedAddress: a.NoFixedAddress,
		StartDate:      a.StartDate,
		EndDate:        a.EndDate,
		Comment:        a.Comment,
		Phones:         a.Phones,
	}
}

// Truncate keeps the first n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
