package refdata_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/courtsync/pkg/courts"
	"github.com/agentstation/courtsync/pkg/refdata"
)

type fakeSource struct {
	mu      sync.Mutex
	domains map[string][]courts.ReferenceCode
	fail    map[string]error
	listed  []string
	lookups []string
}

func (f *fakeSource) ReferenceCodes(_ context.Context, domain string) ([]courts.ReferenceCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, domain)
	if err := f.fail[domain]; err != nil {
		return nil, err
	}
	return f.domains[domain], nil
}

func (f *fakeSource) LookupReferenceCodes(_ context.Context, domain, description string, wildcard bool) ([]courts.ReferenceCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, domain+"/"+description)
	if wildcard {
		return nil, errors.New("wildcard lookups are not expected")
	}
	var hits []courts.ReferenceCode
	for _, c := range f.domains[domain] {
		if c.Description == description {
			hits = append(hits, c)
		}
	}
	return hits, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		domains: map[string][]courts.ReferenceCode{
			courts.DomainCity: {
				{Domain: courts.DomainCity, Code: "25343", Description: "Sheffield", ActiveFlag: "Y"},
				{Domain: courts.DomainCity, Code: "25344", Description: "Leeds", ActiveFlag: "Y"},
			},
			courts.DomainAddressType: {
				{Domain: courts.DomainAddressType, Code: "BUS", Description: "Business Address", ActiveFlag: "Y"},
			},
		},
	}
}

func TestResolveEmptyDescription(t *testing.T) {
	src := newSource()
	r := refdata.New(src, 0)

	code, err := r.Resolve(context.Background(), courts.DomainCity, "", false)
	require.NoError(t, err)
	assert.Nil(t, code)
	assert.Empty(t, src.lookups, "no upstream call for an empty description")
}

func TestResolveCached(t *testing.T) {
	src := newSource()
	r := refdata.New(src, 0)
	ctx := context.Background()

	t.Run("cold cache resolves to nil", func(t *testing.T) {
		code, err := r.Resolve(ctx, courts.DomainCity, "Sheffield", true)
		require.NoError(t, err)
		assert.Nil(t, code)
	})

	require.NoError(t, r.Initialise(ctx, courts.DomainCity, courts.DomainAddressType))
	assert.ElementsMatch(t, []string{courts.DomainCity, courts.DomainAddressType}, r.Warmed())

	t.Run("match is case-insensitive", func(t *testing.T) {
		code, err := r.Resolve(ctx, courts.DomainCity, "SHEFFIELD", true)
		require.NoError(t, err)
		require.NotNil(t, code)
		assert.Equal(t, "25343", code.Code)
		assert.Equal(t, "Sheffield", code.Description)
	})

	t.Run("miss resolves to nil", func(t *testing.T) {
		code, err := r.Resolve(ctx, courts.DomainCity, "Sheffeld", true)
		require.NoError(t, err)
		assert.Nil(t, code)
	})

	t.Run("returned codes do not alias the table", func(t *testing.T) {
		code, _ := r.Resolve(ctx, courts.DomainCity, "Leeds", true)
		code.Description = "mutated"
		again, _ := r.Resolve(ctx, courts.DomainCity, "Leeds", true)
		assert.Equal(t, "Leeds", again.Description)
	})

	assert.Empty(t, src.lookups, "cached lookups never call upstream")
}

func TestResolveLive(t *testing.T) {
	src := newSource()
	r := refdata.New(src, 0)

	code, err := r.Resolve(context.Background(), courts.DomainAddressType, "Business Address", false)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, "BUS", code.Code)

	code, err = r.Resolve(context.Background(), courts.DomainCity, "Atlantis", false)
	require.NoError(t, err)
	assert.Nil(t, code)

	assert.Equal(t, []string{"ADDR_TYPE/Business Address", "CITY/Atlantis"}, src.lookups)
}

func TestInitialiseOverwritesAndFailsAtomically(t *testing.T) {
	src := newSource()
	r := refdata.New(src, 0)
	ctx := context.Background()
	require.NoError(t, r.Initialise(ctx, courts.DomainCity))

	src.domains[courts.DomainCity] = []courts.ReferenceCode{{Domain: courts.DomainCity, Code: "1", Description: "York"}}
	src.fail = map[string]error{courts.DomainCounty: errors.New("boom")}

	err := r.Initialise(ctx, courts.DomainCity, courts.DomainCounty)
	require.Error(t, err)
	code, _ := r.Resolve(ctx, courts.DomainCity, "Sheffield", true)
	assert.NotNil(t, code, "a failed warm-up leaves earlier tables in place")

	src.fail = nil
	require.NoError(t, r.Refresh(ctx))
	code, _ = r.Resolve(ctx, courts.DomainCity, "Sheffield", true)
	assert.Nil(t, code, "refresh replaces the table")
	code, _ = r.Resolve(ctx, courts.DomainCity, "york", true)
	assert.NotNil(t, code)
}

func TestCachedTableExpires(t *testing.T) {
	src := newSource()
	r := refdata.New(src, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, r.Initialise(ctx, courts.DomainCity))

	time.Sleep(50 * time.Millisecond)

	code, err := r.Resolve(ctx, courts.DomainCity, "Sheffield", true)
	require.NoError(t, err)
	assert.Nil(t, code)
	assert.Empty(t, src.lookups)
}

func TestInitialiseFetchesDomainsInOrder(t *testing.T) {
	src := newSource()
	src.fail = map[string]error{courts.DomainCounty: errors.New("boom")}
	r := refdata.New(src, 0)

	err := r.Initialise(context.Background(), courts.DomainAddressType, courts.DomainCounty, courts.DomainCity)
	require.Error(t, err)
	assert.Equal(t, []string{courts.DomainAddressType, courts.DomainCounty}, src.listed, "stops at the first failed domain")

	code, err := r.Resolve(context.Background(), courts.DomainAddressType, "Business Address", true)
	require.NoError(t, err)
	assert.Nil(t, code, "no table is replaced when any fetch fails")
}
