// Package refdata resolves free-text descriptions (town names, address types)
// into legacy reference codes.
//
// A Resolver is an explicit object handed to each sync pass. Cached lookups
// read from a per-domain table filled by Initialise; live lookups call the
// legacy reverse-lookup endpoint. Initialise and Refresh replace the tables
// wholesale and must not run concurrently with cached lookups of the same
// pass; the sync orchestrator serializes full passes to guarantee this.
package refdata

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/courtsync/internal/cache"
	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/errors"
)

// Source is the legacy reference data API.
type Source interface {
	ReferenceCodes(ctx context.Context, domain string) ([]courts.ReferenceCode, error)
	LookupReferenceCodes(ctx context.Context, domain, description string, wildcard bool) ([]courts.ReferenceCode, error)
}

// Resolver maps (domain, description) to a reference code.
type Resolver struct {
	source Source
	tables *cache.Cache[map[string]courts.ReferenceCode]

	mu     sync.Mutex
	warmed []string
}

// New creates a Resolver. A ttl of zero keeps warmed tables until the next
// Initialise or Refresh.
func New(source Source, ttl time.Duration) *Resolver {
	return &Resolver{
		source: source,
		tables: cache.New[map[string]courts.ReferenceCode](ttl, ttl),
	}
}

// Initialise fetches the complete code list of each domain, one domain at a
// time, and replaces the cached table for it. Tables are only replaced once
// every fetch has succeeded.
func (r *Resolver) Initialise(ctx context.Context, domains ...string) error {
	results := make([][]courts.ReferenceCode, len(domains))
	for i, domain := range domains {
		codes, err := r.source.ReferenceCodes(ctx, domain)
		if err != nil {
			return errors.WrapResource("fetch", "reference codes", domain, err)
		}
		results[i] = codes
	}

	for i, domain := range domains {
		table := make(map[string]courts.ReferenceCode, len(results[i]))
		for _, code := range results[i] {
			table[fold(code.Description)] = code
		}
		r.tables.Set(domain, table)
	}

	r.mu.Lock()
	for _, domain := range domains {
		if !slices.Contains(r.warmed, domain) {
			r.warmed = append(r.warmed, domain)
		}
	}
	r.mu.Unlock()
	return nil
}

// Refresh re-initialises every domain warmed so far.
func (r *Resolver) Refresh(ctx context.Context) error {
	r.mu.Lock()
	domains := slices.Clone(r.warmed)
	r.mu.Unlock()
	return r.Initialise(ctx, domains...)
}

// Resolve returns the reference code whose description matches, or nil when
// description is empty or nothing matches. With useCache the lookup is
// case-insensitive against the warmed table and never calls upstream; a
// missing or expired table resolves to nil. Without it the legacy
// reverse-lookup endpoint is called with wildcard matching off and the first
// hit wins.
func (r *Resolver) Resolve(ctx context.Context, domain, description string, useCache bool) (*courts.ReferenceCode, error) {
	if description == "" {
		return nil, nil
	}

	if useCache {
		table, ok := r.tables.Get(domain)
		if !ok {
			return nil, nil
		}
		code, ok := table[fold(description)]
		if !ok {
			return nil, nil
		}
		return code.Clone(), nil
	}

	codes, err := r.source.LookupReferenceCodes(ctx, domain, description, false)
	if err != nil {
		return nil, errors.WrapResource("lookup", "reference code", domain+"/"+description, err)
	}
	if len(codes) == 0 {
		return nil, nil
	}
	return codes[0].Clone(), nil
}

// Warmed returns the domains loaded so far.
func (r *Resolver) Warmed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.warmed)
}

// fold upper-cases s. Casers are stateful, so one is built per call.
func fold(s string) string {
	return cases.Upper(language.Und).String(s)
}
