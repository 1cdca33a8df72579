// Package structure supplies document snapshots to the structural scan
package structure

import (
	"context"
	"sync"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/sampler"
)

// Document holds the latest pushed snapshot for one page
type Document struct {
	mu   sync.RWMutex
	snap sampler.Snapshot
	set  bool
}

// Set replaces the snapshot
func (d *Document) Set(s sampler.Snapshot) {
	d.mu.Lock()
	d.snap = s
	d.set = true
	d.mu.Unlock()
}

// Snapshot implements sampler.StructureSource; NotFound until the first Set
func (d *Document) Snapshot(context.Context) (sampler.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.set {
		return sampler.Snapshot{}, perr.NotFoundf("no document pushed yet")
	}
	out := d.snap
	out.Candidates = append([]sampler.Candidate(nil), d.snap.Candidates...)
	return out, nil
}
