package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tmpdrop/tmpdrop/internal/manifest"
	"github.com/tmpdrop/tmpdrop/internal/metrics"
	"github.com/tmpdrop/tmpdrop/internal/naming"
	"github.com/tmpdrop/tmpdrop/internal/retention"
	"github.com/tmpdrop/tmpdrop/internal/store"
)

const DefaultInterval = time.Hour

// Sweeper periodically enumerates the managed namespace and deletes
// every entry past the retention window. Failures are terminal per
// entry: one bad delete never aborts the rest of the pass, and a failed
// pass simply waits for the next tick.
type Sweeper struct {
	store     store.Store
	manifest  *manifest.Manifest
	metrics   metrics.Metrics
	namespace string
	interval  time.Duration
	now       func() time.Time
}

// Stats summarizes one sweep pass.
type Stats struct {
	Scanned   int
	Deleted   int
	Unmanaged int
	Failed    int
}

func New(st store.Store, m *manifest.Manifest, mt metrics.Metrics, namespace string, interval time.Duration) *Sweeper {
	if mt == nil {
		mt = metrics.Noop{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:     st,
		manifest:  m,
		metrics:   mt,
		namespace: namespace,
		interval:  interval,
		now:       time.Now,
	}
}

// Run sweeps once immediately, so files uploaded before a restart are
// not orphaned until the first tick, then on a fixed schedule until the
// context is canceled. An in-flight pass always runs to completion.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	stats := s.SweepOnce(ctx)
	if stats.Deleted > 0 || stats.Failed > 0 {
		log.Printf("sweep: scanned=%d deleted=%d unmanaged=%d failed=%d",
			stats.Scanned, stats.Deleted, stats.Unmanaged, stats.Failed)
	}
}

// SweepOnce runs a single pass over the namespace. Every entry in one
// pass is judged against the same clock reading.
func (s *Sweeper) SweepOnce(ctx context.Context) Stats {
	s.metrics.IncSweeps()

	var stats Stats
	now := s.now().UnixMilli()

	entries, err := s.store.List(ctx, s.namespace)
	if errors.Is(err, store.ErrNotFound) {
		// Nothing uploaded yet; the namespace does not exist until the
		// first write creates it.
		return stats
	}
	if err != nil {
		log.Printf("sweep: listing %s failed: %v", s.namespace, err)
		s.metrics.IncSweepErrors()
		return stats
	}

	for _, entry := range entries {
		stats.Scanned++

		uploadedAt, ok := s.uploadedAt(entry)
		if !ok {
			stats.Unmanaged++
			s.metrics.IncUnmanaged()
			continue
		}
		if !retention.Expired(uploadedAt, now) {
			continue
		}

		if err := s.remove(ctx, entry.Path); err != nil {
			log.Printf("sweep: deleting %s failed: %v", entry.Path, err)
			stats.Failed++
			s.metrics.IncSweepErrors()
			continue
		}
		stats.Deleted++
		s.metrics.IncDeleted()
	}
	return stats
}

// uploadedAt resolves the upload instant for an entry: the manifest
// first, the encoded leaf name as the legacy fallback. An entry with
// neither is not managed by the retention scheme and is left alone.
func (s *Sweeper) uploadedAt(entry store.Entry) (int64, bool) {
	if s.manifest != nil {
		rec, err := s.manifest.Get(entry.Path)
		if err != nil {
			log.Printf("sweep: manifest lookup for %s failed: %v", entry.Path, err)
		} else if rec != nil {
			return rec.UploadedAt, true
		}
	}

	decoded, ok := naming.Decode(entry.Name)
	if !ok {
		return 0, false
	}
	return decoded.UploadedAt, true
}

// remove re-fetches the current version token and issues the delete.
// The store refuses a delete against a stale token, so a conflict (or a
// vanished entry) means another pass already removed it; both count as
// success here.
func (s *Sweeper) remove(ctx context.Context, path string) error {
	sha, err := s.store.Stat(ctx, path)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		s.forget(path)
		return nil
	}
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, path, sha)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		s.forget(path)
		return nil
	}
	if err != nil {
		return err
	}

	s.forget(path)
	return nil
}

func (s *Sweeper) forget(path string) {
	if s.manifest == nil {
		return
	}
	if err := s.manifest.Delete(path); err != nil {
		log.Printf("sweep: dropping manifest row for %s failed: %v", path, err)
	}
}
