package testhelper

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/courtsync/pkg/courts"
)

// Register is an in-memory court register.
type Register struct {
	mu     sync.Mutex
	courts map[string]courts.RegisterCourt
	Err    error
}

// NewRegister creates a register holding the given courts.
func NewRegister(list ...courts.RegisterCourt) *Register {
	r := &Register{courts: map[string]courts.RegisterCourt{}}
	for _, c := range list {
		r.Put(c)
	}
	return r
}

// Put adds or replaces a court.
func (r *Register) Put(c courts.RegisterCourt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courts[c.CourtID] = c
}

// Court implements the register read API.
func (r *Register) Court(_ context.Context, courtID string) (*courts.RegisterCourt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	c, ok := r.courts[courtID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ActiveCourts implements the register read API.
func (r *Register) ActiveCourts(context.Context) ([]courts.RegisterCourt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []courts.RegisterCourt
	for _, c := range r.courts {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourtID < out[j].CourtID })
	return out, nil
}
