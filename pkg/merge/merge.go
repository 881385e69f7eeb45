// Package merge carries legacy identity onto incoming court records before
// they are diffed.
//
// Addresses and phones are matched by content, never by id: the register has
// no notion of legacy keys, so an incoming record only learns its addressId
// or phoneId by being recognised as the same thing the legacy side already
// holds.
package merge

import (
	"github.com/agentstation/courtsync/internal/utils/ptr"
	"github.com/agentstation/courtsync/pkg/courts"
)

// Merge returns a copy of incoming with identity carried over from legacy.
//
// Every incoming address that is content-equal to a legacy address takes the
// legacy addressId, primary flag, start and end dates and comment, and each
// of its phones that is content-equal to a legacy phone on that address takes
// the legacy phoneId. A legacy address or phone is matched at most once.
//
// When both sides hold exactly one address and the incoming one is still
// unmatched, the lone legacy address is merged onto it anyway. This keeps a
// changed single address as an update rather than a remove and insert, at
// the cost of also treating a genuine move to a different address as an
// update.
//
// Neither input is modified and the result shares no memory with them.
func Merge(incoming courts.Court, legacy *courts.Court) courts.Court {
	out := incoming.Clone()
	if legacy == nil {
		return out
	}

	used := make([]bool, len(legacy.Addresses))
	for i := range out.Addresses {
		for j, candidate := range legacy.Addresses {
			if used[j] || !courts.SameAddressContent(candidate, out.Addresses[i]) {
				continue
			}
			used[j] = true
			out.Addresses[i] = carry(out.Addresses[i], candidate)
			break
		}
	}

	if len(legacy.Addresses) == 1 && len(out.Addresses) == 1 && out.Addresses[0].ID == nil {
		out.Addresses[0] = carry(out.Addresses[0], legacy.Addresses[0])
	}
	return out
}

// carry copies identity and legacy-owned metadata from a legacy address.
func carry(address, legacy courts.Address) courts.Address {
	address.ID = ptr.Clone(legacy.ID)
	address.Primary = legacy.Primary
	address.StartDate = ptr.Clone(legacy.StartDate)
	address.EndDate = ptr.Clone(legacy.EndDate)
	address.Comment = legacy.Comment

	used := make([]bool, len(legacy.Phones))
	for i := range address.Phones {
		for j, candidate := range legacy.Phones {
			if used[j] || !courts.SamePhone(candidate, address.Phones[i]) {
				continue
			}
			used[j] = true
			address.Phones[i].ID = ptr.Clone(candidate.ID)
			break
		}
	}
	return address
}
