package testhelper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
)

// Prison is an in-memory prison API. Agencies are held the way the real API
// serves them, with descriptions in the coded address fields; writes carry
// codes and are translated back through RefData. Every write is recorded.
type Prison struct {
	RefData *ReferenceData
	// FailOn makes the named operation (e.g. "InsertPhone") return the error.
	FailOn map[string]error

	mu       sync.Mutex
	agencies map[string]*courts.Agency
	writes   []string
	nextID   int64
}

// NewPrison creates a prison API holding the given agencies.
func NewPrison(refData *ReferenceData, agencies ...courts.Agency) *Prison {
	p := &Prison{RefData: refData, agencies: map[string]*courts.Agency{}, nextID: 1000}
	for _, a := range agencies {
		a := cloneAgency(a)
		p.agencies[a.AgencyID] = &a
	}
	return p
}

// Writes returns the recorded write operations in order.
func (p *Prison) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

// ResetWrites clears the write log.
func (p *Prison) ResetWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = nil
}

// Stored returns a copy of the agency as the API would serve it.
func (p *Prison) Stored(id string) *courts.Agency {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agencies[id]
	if !ok {
		return nil
	}
	out := cloneAgency(*a)
	return &out
}

// Agency implements the legacy read API.
func (p *Prison) Agency(_ context.Context, id string) (*courts.Agency, error) {
	if err := p.fail("Agency"); err != nil {
		return nil, err
	}
	return p.Stored(id), nil
}

// Courts implements the legacy read API.
func (p *Prison) Courts(context.Context) ([]courts.Agency, error) {
	if err := p.fail("Courts"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]courts.Agency, 0, len(p.agencies))
	for _, a := range p.agencies {
		out = append(out, cloneAgency(*a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgencyID < out[j].AgencyID })
	return out, nil
}

// InsertAgency implements the legacy write API. An existing agency conflicts and yields nil.
func (p *Prison) InsertAgency(_ context.Context, agency courts.Agency) (*courts.Agency, error) {
	if err := p.record("InsertAgency", agency.AgencyID); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.agencies[agency.AgencyID]; ok {
		return nil, nil
	}
	stored := cloneAgency(agency)
	stored.Addresses = nil
	p.agencies[agency.AgencyID] = &stored
	out := cloneAgency(stored)
	return &out, nil
}

// UpdateAgency implements the legacy write API.
func (p *Prison) UpdateAgency(_ context.Context, agency courts.Agency) (*courts.Agency, error) {
	if err := p.record("UpdateAgency", agency.AgencyID); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.agencies[agency.AgencyID]
	if !ok {
		return nil, nil
	}
	addresses := existing.Addresses
	*existing = cloneAgency(agency)
	existing.Addresses = addresses
	out := cloneAgency(*existing)
	return &out, nil
}

// InsertAddress implements the legacy write API.
func (p *Prison) InsertAddress(_ context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error) {
	if err := p.record("InsertAddress", agencyID); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	agency, ok := p.agencies[agencyID]
	if !ok {
		return nil, nil
	}
	p.nextID++
	stored := p.describe(address)
	stored.AddressID = ptr.To(p.nextID)
	stored.Phones = nil
	agency.Addresses = append(agency.Addresses, stored)
	out := cloneAddress(stored)
	return &out, nil
}

// UpdateAddress implements the legacy write API. Phones are left untouched.
func (p *Prison) UpdateAddress(_ context.Context, agencyID string, address courts.AgencyAddress) (*courts.AgencyAddress, error) {
	if err := p.record("UpdateAddress", fmt.Sprintf("%s/%d", agencyID, ptr.Value(address.AddressID))); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	existing := p.address(agencyID, ptr.Value(address.AddressID))
	if existing == nil {
		return nil, nil
	}
	phones := existing.Phones
	*existing = p.describe(address)
	existing.Phones = phones
	out := cloneAddress(*existing)
	return &out, nil
}

// RemoveAddress implements the legacy write API.
func (p *Prison) RemoveAddress(_ context.Context, agencyID string, addressID int64) error {
	if err := p.record("RemoveAddress", fmt.Sprintf("%s/%d", agencyID, addressID)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	agency, ok := p.agencies[agencyID]
	if !ok {
		return nil
	}
	kept := agency.Addresses[:0]
	for _, a := range agency.Addresses {
		if ptr.Value(a.AddressID) != addressID {
			kept = append(kept, a)
		}
	}
	agency.Addresses = kept
	return nil
}

// InsertPhone implements the legacy write API.
func (p *Prison) InsertPhone(_ context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error) {
	if err := p.record("InsertPhone", fmt.Sprintf("%s/%d", agencyID, addressID)); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	address := p.address(agencyID, addressID)
	if address == nil {
		return nil, nil
	}
	p.nextID++
	stored := phone.Clone()
	stored.ID = ptr.To(p.nextID)
	address.Phones = append(address.Phones, stored)
	out := stored.Clone()
	return &out, nil
}

// UpdatePhone implements the legacy write API.
func (p *Prison) UpdatePhone(_ context.Context, agencyID string, addressID int64, phone courts.Phone) (*courts.Phone, error) {
	if err := p.record("UpdatePhone", fmt.Sprintf("%s/%d/%d", agencyID, addressID, ptr.Value(phone.ID))); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	address := p.address(agencyID, addressID)
	if address == nil {
		return nil, nil
	}
	for i := range address.Phones {
		if ptr.Equal(address.Phones[i].ID, phone.ID) {
			address.Phones[i] = phone.Clone()
			out := phone.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

// RemovePhone implements the legacy write API.
func (p *Prison) RemovePhone(_ context.Context, agencyID string, addressID, phoneID int64) error {
	if err := p.record("RemovePhone", fmt.Sprintf("%s/%d/%d", agencyID, addressID, phoneID)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	address := p.address(agencyID, addressID)
	if address == nil {
		return nil
	}
	kept := address.Phones[:0]
	for _, ph := range address.Phones {
		if ptr.Value(ph.ID) != phoneID {
			kept = append(kept, ph)
		}
	}
	address.Phones = kept
	return nil
}

func (p *Prison) record(op, target string) error {
	if err := p.fail(op); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, op+" "+target)
	return nil
}

func (p *Prison) fail(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.FailOn[op]
}

// address must be called with p.mu held.
func (p *Prison) address(agencyID string, addressID int64) *courts.AgencyAddress {
	agency, ok := p.agencies[agencyID]
	if !ok {
		return nil
	}
	for i := range agency.Addresses {
		if ptr.Value(agency.Addresses[i].AddressID) == addressID {
			return &agency.Addresses[i]
		}
	}
	return nil
}

// describe swaps codes for descriptions in a written address.
func (p *Prison) describe(a courts.AgencyAddress) courts.AgencyAddress {
	out := cloneAddress(a)
	if p.RefData != nil {
		out.AddressType = p.RefData.Describe(courts.DomainAddressType, a.AddressType)
		out.Town = p.RefData.Describe(courts.DomainCity, a.Town)
		out.County = p.RefData.Describe(courts.DomainCounty, a.County)
		out.Country = p.RefData.Describe(courts.DomainCountry, a.Country)
	}
	return out
}

func cloneAgency(a courts.Agency) courts.Agency {
	out := a
	out.DeactivationDate = ptr.Clone(a.DeactivationDate)
	out.Addresses = nil
	for _, addr := range a.Addresses {
		out.Addresses = append(out.Addresses, cloneAddress(addr))
	}
	return out
}

func cloneAddress(a courts.AgencyAddress) courts.AgencyAddress {
	out := a
	out.AddressID = ptr.Clone(a.AddressID)
	out.StartDate = ptr.Clone(a.StartDate)
	out.EndDate = ptr.Clone(a.EndDate)
	out.Phones = nil
	for _, ph := range a.Phones {
		out.Phones = append(out.Phones, ph.Clone())
	}
	return out
}
