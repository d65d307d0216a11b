package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/store"
	"github.com/ninnin76-design/sm-manager/internal/summary"
)

type fakeStore struct {
	mu          sync.Mutex
	members     []model.Person
	entries     map[string]model.ScheduleEntry
	failDelete  map[string]bool
	failMembers bool
	failWrites  bool
	saves       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: model.DefaultRoster(), entries: map[string]model.ScheduleEntry{}}
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) GetMembers(context.Context) ([]model.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMembers {
		return model.DefaultRoster(), fmt.Errorf("get_members: %w", store.ErrUnavailable)
	}
	return slices.Clone(f.members), nil
}

func (f *fakeStore) SaveMembers(_ context.Context, members []model.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return fmt.Errorf("save_members: %w", store.ErrUnavailable)
	}
	f.members = slices.Clone(members)
	f.saves++
	return nil
}

func (f *fakeStore) SaveScheduleEntry(_ context.Context, e model.ScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return fmt.Errorf("save_schedule: %w", store.ErrUnavailable)
	}
	if old, ok := f.entries[e.ID]; ok {
		e.CreatedAt = old.CreatedAt
	}
	f.entries[e.ID] = e
	f.saves++
	return nil
}

func (f *fakeStore) LoadScheduleEntry(_ context.Context, id string) (*model.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	e.Records = maps.Clone(e.Records)
	return &e, nil
}

func (f *fakeStore) DeleteScheduleByKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[key] {
		return fmt.Errorf("delete_schedule %s: %w", key, store.ErrUnavailable)
	}
	delete(f.entries, key)
	return nil
}

func (f *fakeStore) ListScheduleSummaries(ctx context.Context) ([]model.ScheduleSummary, error) {
	members, _ := f.GetMembers(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ScheduleSummary{}
	for key, e := range f.entries {
		out = append(out, summary.ForEntry(key, e, members))
	}
	summary.Sort(out)
	return out, nil
}

func (f *fakeStore) DeleteAllSchedules(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = map[string]model.ScheduleEntry{}
	return nil
}

func (f *fakeStore) ResetApplication(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = map[string]model.ScheduleEntry{}
	f.members = model.DefaultRoster()
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.entries {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

type stubReporter struct {
	title   string
	members []model.Person
	records map[string]model.TaskRecord
}

func (r *stubReporter) GenerateDailyReport(_ context.Context, title string, members []model.Person, records map[string]model.TaskRecord) string {
	r.title, r.members, r.records = title, members, records
	return "briefing"
}
