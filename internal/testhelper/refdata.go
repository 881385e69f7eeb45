// Package testhelper provides in-memory upstreams and fixtures for tests:
// a reference data table, a fake court register and a fake prison API that
// records every write.
package testhelper

import (
	"context"
	"strings"
	"sync"

	"github.com/agentstation/courtsync/pkg/courts"
)

// ReferenceData is an in-memory reference code table. It satisfies both the
// resolver used by the transformer and the source used by refdata.Resolver.
type ReferenceData struct {
	mu          sync.Mutex
	codes       []courts.ReferenceCode
	Initialised int
	LiveLookups int
}

// NewReferenceData returns the codes used across the test fixtures.
func NewReferenceData() *ReferenceData {
	return &ReferenceData{codes: []courts.ReferenceCode{
		{Domain: courts.DomainAddressType, Code: "BUS", Description: "Business Address", ActiveFlag: "Y"},
		{Domain: courts.DomainCity, Code: "25343", Description: "Sheffield", ActiveFlag: "Y"},
		{Domain: courts.DomainCity, Code: "25344", Description: "Leeds", ActiveFlag: "Y"},
		{Domain: courts.DomainCounty, Code: "S.YORKSHIRE", Description: "South Yorkshire", ActiveFlag: "Y"},
		{Domain: courts.DomainCounty, Code: "W.YORKSHIRE", Description: "West Yorkshire", ActiveFlag: "Y"},
		{Domain: courts.DomainCountry, Code: "ENG", Description: "England", ActiveFlag: "Y"},
	}}
}

// Code returns a copy of the code with the given description, or nil.
func (r *ReferenceData) Code(domain, description string) *courts.ReferenceCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Domain == domain && strings.EqualFold(c.Description, description) {
			return c.Clone()
		}
	}
	return nil
}

// Describe maps a code back to its description, as the prison API does on reads.
func (r *ReferenceData) Describe(domain, code string) string {
	if code == "" {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Domain == domain && c.Code == code {
			return c.Description
		}
	}
	return code
}

// Resolve implements transform.Resolver.
func (r *ReferenceData) Resolve(_ context.Context, domain, description string, useCache bool) (*courts.ReferenceCode, error) {
	if description == "" {
		return nil, nil
	}
	if !useCache {
		r.mu.Lock()
		r.LiveLookups++
		r.mu.Unlock()
	}
	return r.Code(domain, description), nil
}

// Initialise implements the warm-up half of the sync resolver.
func (r *ReferenceData) Initialise(context.Context, ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Initialised++
	return nil
}

// ReferenceCodes implements refdata.Source.
func (r *ReferenceData) ReferenceCodes(_ context.Context, domain string) ([]courts.ReferenceCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []courts.ReferenceCode
	for _, c := range r.codes {
		if c.Domain == domain {
			out = append(out, c)
		}
	}
	return out, nil
}

// LookupReferenceCodes implements refdata.Source.
func (r *ReferenceData) LookupReferenceCodes(ctx context.Context, domain, description string, _ bool) ([]courts.ReferenceCode, error) {
	code, _ := r.Resolve(ctx, domain, description, false)
	if code == nil {
		return nil, nil
	}
	return []courts.ReferenceCode{*code}, nil
}
