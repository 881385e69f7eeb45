package sync

import (
	"context"

	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/differ"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/transform"
)

// apply carries out cs against the legacy system and counts the operations
// into outcome. It reports whether any operation fired.
//
// In dry-run mode nothing is written: planned operations are counted and
// reported as fired. Counts accumulated before a failed write are kept.
func (s *Syncer) apply(ctx context.Context, cs *differ.Changeset, outcome *CourtDifferences) (bool, error) {
	if !s.options.ApplyChanges {
		outcome.add(cs.Summary())
		return cs.HasChanges(), nil
	}

	courtID := cs.CourtID
	fired := false

	switch cs.Court {
	case differ.OpInsert:
		if _, err := s.legacy.InsertAgency(ctx, transform.ToAgency(cs.Incoming)); err != nil {
			return fired, errors.WrapApply(courtID, "insert court", err)
		}
		fired = true
	case differ.OpUpdate:
		if _, err := s.legacy.UpdateAgency(ctx, transform.ToAgency(cs.Incoming)); err != nil {
			return fired, errors.WrapApply(courtID, "update court", err)
		}
		fired = true
	}

	for _, address := range cs.RemovedAddresses {
		if err := s.legacy.RemoveAddress(ctx, courtID, *address.ID); err != nil {
			return fired, errors.WrapApply(courtID, "remove address", err)
		}
		outcome.NumberAddressesRemoved++
		fired = true
	}

	for _, change := range cs.Addresses {
		if change.Legacy != nil {
			for _, phone := range change.RemovedPhones {
				if err := s.legacy.RemovePhone(ctx, courtID, *change.Legacy.ID, *phone.ID); err != nil {
					return fired, errors.WrapApply(courtID, "remove phone", err)
				}
				outcome.NumberPhonesRemoved++
				fired = true
			}
		}

		addressID, wrote, err := s.upsertAddress(ctx, courtID, change, outcome)
		fired = fired || wrote
		if err != nil {
			return fired, err
		}
		if addressID == nil {
			continue
		}

		for _, pc := range change.Phones {
			switch pc.Op {
			case differ.OpInsert:
				if _, err := s.legacy.InsertPhone(ctx, courtID, *addressID, pc.Phone); err != nil {
					return fired, errors.WrapApply(courtID, "insert phone", err)
				}
				outcome.NumberPhonesInserted++
			case differ.OpUpdate:
				if _, err := s.legacy.UpdatePhone(ctx, courtID, *addressID, pc.Phone); err != nil {
					return fired, errors.WrapApply(courtID, "update phone", err)
				}
				outcome.NumberPhonesUpdated++
			default:
				continue
			}
			fired = true
		}
	}
	return fired, nil
}

// upsertAddress writes one address if needed and returns the id its phones
// should be written under. Phones are written separately and are left out of
// the address payload.
func (s *Syncer) upsertAddress(ctx context.Context, courtID string, change differ.AddressChange, outcome *CourtDifferences) (*int64, bool, error) {
	payload := transform.ToAgencyAddress(change.Address)
	payload.Phones = nil

	switch change.Op {
	case differ.OpInsert:
		saved, err := s.legacy.InsertAddress(ctx, courtID, payload)
		if err != nil {
			return nil, false, errors.WrapApply(courtID, "insert address", err)
		}
		outcome.NumberAddressesInserted++
		return savedAddressID(saved, nil), true, nil
	case differ.OpUpdate:
		saved, err := s.legacy.UpdateAddress(ctx, courtID, payload)
		if err != nil {
			return nil, false, errors.WrapApply(courtID, "update address", err)
		}
		outcome.NumberAddressesUpdated++
		return savedAddressID(saved, change.Address.ID), true, nil
	default:
		return change.Address.ID, false, nil
	}
}

func savedAddressID(saved *courts.AgencyAddress, fallback *int64) *int64 {
	if saved != nil && saved.AddressID != nil {
		return saved.AddressID
	}
	return fallback
}
