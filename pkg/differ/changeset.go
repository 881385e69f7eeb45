package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
)

// Operation is a single legacy write.
type Operation string

const (
	// OpNone means no write is needed.
	OpNone Operation = "none"
	// OpInsert creates the record.
	OpInsert Operation = "insert"
	// OpUpdate overwrites the record.
	OpUpdate Operation = "update"
)

// Changeset is the ordered set of legacy writes for one court.
type Changeset struct {
	CourtID string
	Court   Operation
	// Incoming is the merged incoming record the writes are built from.
	Incoming courts.Court
	// RemovedAddresses are legacy addresses no incoming address claims.
	RemovedAddresses []courts.Address
	// Addresses has one entry per incoming address, in incoming order.
	Addresses []AddressChange
}

// AddressChange describes the writes for one incoming address.
type AddressChange struct {
	Op      Operation
	Address courts.Address
	// Legacy is the legacy address with the same id, if any.
	Legacy *courts.Address
	// RemovedPhones are phones of Legacy that no incoming phone claims.
	RemovedPhones []courts.Phone
	// Phones holds the phone inserts and updates. Unchanged phones are left out.
	Phones []PhoneChange
}

// PhoneChange is an insert or update of one phone.
type PhoneChange struct {
	Op    Operation
	Phone courts.Phone
}

// Summary counts the planned writes below court level.
type Summary struct {
	AddressesInserted int
	AddressesUpdated  int
	AddressesRemoved  int
	PhonesInserted    int
	PhonesUpdated     int
	PhonesRemoved     int
}

// Total returns the number of planned address and phone writes.
func (s Summary) Total() int {
	return s.AddressesInserted + s.AddressesUpdated + s.AddressesRemoved +
		s.PhonesInserted + s.PhonesUpdated + s.PhonesRemoved
}

// Plan works out the writes that turn old into incoming. Records are matched
// by id, so incoming should already have been merged with old.
//
// Legacy addresses and phones without an id can never be addressed by a
// write and are not scheduled for removal.
func Plan(old *courts.Court, incoming courts.Court) *Changeset {
	cs := &Changeset{
		CourtID:  incoming.CourtID,
		Court:    OpNone,
		Incoming: incoming.Clone(),
	}
	switch {
	case old == nil:
		cs.Court = OpInsert
	case !courts.SameCourt(*old, incoming):
		cs.Court = OpUpdate
	}

	var legacyAddresses []courts.Address
	if old != nil {
		legacyAddresses = old.Addresses
	}

	for _, legacy := range legacyAddresses {
		if legacy.ID != nil && findAddress(incoming.Addresses, legacy.ID) == nil {
			cs.RemovedAddresses = append(cs.RemovedAddresses, legacy.Clone())
		}
	}

	for _, address := range cs.Incoming.Addresses {
		change := AddressChange{Op: OpNone, Address: address}
		var legacy *courts.Address
		if address.ID != nil {
			legacy = findAddress(legacyAddresses, address.ID)
		}

		switch {
		case address.ID == nil:
			change.Op = OpInsert
		case legacy == nil || !courts.SameAddressRecord(*legacy, address):
			change.Op = OpUpdate
		}

		if legacy != nil {
			l := legacy.Clone()
			change.Legacy = &l
			for _, phone := range legacy.Phones {
				if phone.ID != nil && findPhone(address.Phones, phone.ID) == nil {
					change.RemovedPhones = append(change.RemovedPhones, phone.Clone())
				}
			}
		}

		for _, phone := range address.Phones {
			if phone.ID == nil {
				change.Phones = append(change.Phones, PhoneChange{Op: OpInsert, Phone: phone})
				continue
			}
			var current *courts.Phone
			if legacy != nil {
				current = findPhone(legacy.Phones, phone.ID)
			}
			if current == nil || !courts.SamePhone(*current, phone) {
				change.Phones = append(change.Phones, PhoneChange{Op: OpUpdate, Phone: phone})
			}
		}
		cs.Addresses = append(cs.Addresses, change)
	}
	return cs
}

// Summary counts the planned address and phone writes.
func (c *Changeset) Summary() Summary {
	s := Summary{AddressesRemoved: len(c.RemovedAddresses)}
	for _, a := range c.Addresses {
		switch a.Op {
		case OpInsert:
			s.AddressesInserted++
		case OpUpdate:
			s.AddressesUpdated++
		}
		s.PhonesRemoved += len(a.RemovedPhones)
		for _, p := range a.Phones {
			switch p.Op {
			case OpInsert:
				s.PhonesInserted++
			case OpUpdate:
				s.PhonesUpdated++
			}
		}
	}
	return s
}

// HasChanges reports whether any write is planned.
func (c *Changeset) HasChanges() bool {
	return c.Court != OpNone || c.Summary().Total() > 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "No changes detected"
	}

	var parts []string
	if c.Court != OpNone {
		parts = append(parts, fmt.Sprintf("court %s", c.Court))
	}
	s := c.Summary()
	counts := []struct {
		n    int
		what string
	}{
		{s.AddressesInserted, "addresses inserted"},
		{s.AddressesUpdated, "addresses updated"},
		{s.AddressesRemoved, "addresses removed"},
		{s.PhonesInserted, "phones inserted"},
		{s.PhonesUpdated, "phones updated"},
		{s.PhonesRemoved, "phones removed"},
	}
	for _, count := range counts {
		if count.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", count.n, count.what))
		}
	}
	return fmt.Sprintf("%s: %s", c.CourtID, strings.Join(parts, ", "))
}

func findAddress(addresses []courts.Address, id *int64) *courts.Address {
	for i := range addresses {
		if ptr.Equal(addresses[i].ID, id) {
			return &addresses[i]
		}
	}
	return nil
}

func findPhone(phones []courts.Phone, id *int64) *courts.Phone {
	for i := range phones {
		if ptr.Equal(phones[i].ID, id) {
			return &phones[i]
		}
	}
	return nil
}
