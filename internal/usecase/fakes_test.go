package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

// scriptedSession returns pages in order; the last page repeats.
type scriptedSession struct {
	mu      sync.Mutex
	pages   []string
	errs    []error
	calls   int
	settles []time.Duration
	closed  bool
}

func (s *scriptedSession) Render(_ context.Context, _ string, settle time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.pages)-1)
	s.calls++
	s.settles = append(s.settles, settle)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.pages[i], nil
}

func (s *scriptedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeFailures struct {
	mu     sync.Mutex
	failed []entity.FailedListing
}

func (f *fakeFailures) SaveOrUpdate(_ context.Context, fl *entity.FailedListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, *fl)
	return nil
}

func (f *fakeFailures) CountByRun(_ context.Context, runID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, fl := range f.failed {
		if fl.CrawlRunID == runID {
			out[fl.Kind]++
		}
	}
	return out, nil
}

type memRaw struct {
	mu      sync.Mutex
	records map[string]entity.ListingRecord
	failAll bool
}

func newMemRaw() *memRaw { return &memRaw{records: map[string]entity.ListingRecord{}} }

func (m *memRaw) Upsert(_ context.Context, rec *entity.ListingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("raw store unavailable")
	}
	if prev, ok := m.records[rec.Key()]; ok {
		r := *rec
		r.FirstSeen = prev.FirstSeen
		m.records[rec.Key()] = r
		return nil
	}
	m.records[rec.Key()] = *rec
	return nil
}

func (m *memRaw) ForEachInRun(_ context.Context, runID string, fn func(*entity.ListingRecord) error) error {
	m.mu.Lock()
	recs := make([]entity.ListingRecord, 0, len(m.records))
	for _, r := range m.records {
		if r.CrawlRunID == runID {
			recs = append(recs, r)
		}
	}
	m.mu.Unlock()
	for i := range recs {
		if err := fn(&recs[i]); err != nil {
			return err
		}
	}
	return nil
}

type memStore struct {
	mu       sync.Mutex
	listings map[string]entity.ProcessedListing
	upserts  int
}

func newMemStore() *memStore { return &memStore{listings: map[string]entity.ProcessedListing{}} }

func (m *memStore) Upsert(_ context.Context, l *entity.ProcessedListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.listings[l.Key()] = *l
	return nil
}

func (m *memStore) ForEachInRun(_ context.Context, runID string, fn func(*entity.ProcessedListing) error) error {
	m.mu.Lock()
	ls := make([]entity.ProcessedListing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.RunID == runID {
			ls = append(ls, l)
		}
	}
	m.mu.Unlock()
	for i := range ls {
		if err := fn(&ls[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) get(key string) (entity.ProcessedListing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[key]
	return l, ok
}

type memSeen struct {
	mu       sync.Mutex
	seen     map[string]bool
	resetErr error
}

func (m *memSeen) MarkSeen(_ context.Context, runID, website, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	k := fmt.Sprintf("%s/%s/%s", runID, website, key)
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	return true, nil
}

func (m *memSeen) Reset(_ context.Context, runID, website string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	prefix := fmt.Sprintf("%s/%s/", runID, website)
	for k := range m.seen {
		if strings.HasPrefix(k, prefix) {
			delete(m.seen, k)
		}
	}
	return nil
}

var (
	_ repository.RenderSession           = (*scriptedSession)(nil)
	_ repository.FailedListingRepository = (*fakeFailures)(nil)
	_ repository.RawListingRepository    = (*memRaw)(nil)
	_ repository.ListingStore            = (*memStore)(nil)
	_ repository.SeenRepository          = (*memSeen)(nil)
)
