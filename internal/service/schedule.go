package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/store"
	"github.com/ninnin76-design/sm-manager/internal/summary"
)

const (
	dateLayout      = "2006-01-02"
	bulkDeleteLimit = 8
)

type LoadMode string

const (
	LoadView LoadMode = "view"
	LoadEdit LoadMode = "edit"
)

// ParseLoadMode defaults to view.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(s) {
	case "", LoadView:
		return LoadView, nil
	case LoadEdit:
		return LoadEdit, nil
	}
	return "", invalid("unknown mode %q", s)
}

// Draft is the admin-supplied content of an entry before reconciliation.
type Draft struct {
	Date        string
	Title       string
	Records     map[string]model.TaskRecord
	PrivacyMode model.PrivacyMode
}

func DraftFrom(req model.ScheduleRequest) Draft {
	return Draft{Date: req.Date, Title: req.Title, Records: req.Records, PrivacyMode: req.PrivacyMode}
}

// EntryView is an entry as one session is allowed to see it.
type EntryView struct {
	Entry    model.ScheduleEntry     `json:"entry"`
	Mode     LoadMode                `json:"mode"`
	Members  []model.Person          `json:"members"`
	Editable []string                `json:"editable"`
	Groups   []summary.GroupProgress `json:"groups"`
	Progress int                     `json:"progress"`
}

type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Reporter writes the AI briefing for a set of records.
type Reporter interface {
	GenerateDailyReport(ctx context.Context, title string, members []model.Person, records map[string]model.TaskRecord) string
}

type ScheduleService struct {
	store    store.Store
	reporter Reporter
	catalog  *CatalogSync
	now      func() time.Time
	locks    sync.Map // entry id -> *sync.Mutex
}

func NewScheduleService(st store.Store, reporter Reporter, catalog *CatalogSync) *ScheduleService {
	return &ScheduleService{store: st, reporter: reporter, catalog: catalog, now: time.Now}
}

func (s *ScheduleService) SetClock(now func() time.Time) { s.now = now }

func (s *ScheduleService) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Create stores a new entry with id <date>_<now millis>. The millisecond is bumped
// while the id is taken, so ids stay unique even for creates within the same tick.
func (s *ScheduleService) Create(ctx context.Context, sess model.Session, d Draft) (*model.ScheduleEntry, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	now := s.now()
	date, err := entryDate(d.Date, now)
	if err != nil {
		return nil, err
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return nil, err
	}
	id, unlock, err := s.reserveID(ctx, date, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer unlock()

	e := model.ScheduleEntry{
		ID:          id,
		Date:        date,
		Title:       d.Title,
		Records:     Reconcile(d.Records, members),
		CreatedAt:   now.UnixMilli(),
		PrivacyMode: d.PrivacyMode.Normalize(),
	}
	if err := s.store.SaveScheduleEntry(ctx, e); err != nil {
		return nil, err
	}
	logger.Info("schedule created", "id", e.ID, "records", len(e.Records))
	s.sync(e, members)
	return &e, nil
}

// reserveID returns the first unused <date>_<ms> id at or after ms, with its entry
// lock held.
func (s *ScheduleService) reserveID(ctx context.Context, date string, ms int64) (string, func(), error) {
	for {
		id := model.EntryID(date, ms)
		unlock := s.lock(id)
		existing, err := s.store.LoadScheduleEntry(ctx, id)
		if err != nil {
			unlock()
			return "", nil, err
		}
		if existing == nil {
			return id, unlock, nil
		}
		unlock()
		ms++
	}
}

// Update rewrites an existing entry under the same id. An empty date or privacy
// mode keeps the stored value.
func (s *ScheduleService) Update(ctx context.Context, sess model.Session, id string, d Draft) (*model.ScheduleEntry, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	defer s.lock(id)()

	existing, err := s.store.LoadScheduleEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	date := existing.Date
	if d.Date != "" {
		if date, err = entryDate(d.Date, s.now()); err != nil {
			return nil, err
		}
	}
	privacy := existing.PrivacyMode
	if d.PrivacyMode != "" {
		privacy = d.PrivacyMode
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return nil, err
	}
	e := model.ScheduleEntry{
		ID:          id,
		Date:        date,
		Title:       d.Title,
		Records:     Reconcile(d.Records, members),
		CreatedAt:   existing.CreatedAt,
		PrivacyMode: privacy.Normalize(),
	}
	if err := s.store.SaveScheduleEntry(ctx, e); err != nil {
		return nil, err
	}
	s.sync(e, members)
	return &e, nil
}

// UpdateRecord applies field edits to one person's row. Admins edit any row,
// members only their own.
func (s *ScheduleService) UpdateRecord(ctx context.Context, sess model.Session, id, personID string, updates ...model.RecordUpdate) (*model.ScheduleEntry, error) {
	if !sess.CanEditRow(personID) {
		return nil, ErrForbidden
	}
	if len(updates) == 0 {
		return nil, invalid("no fields to update")
	}
	defer s.lock(id)()

	e, err := s.store.LoadScheduleEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := model.RosterIndex(members)[personID]; !ok {
		return nil, fmt.Errorf("member %s: %w", personID, ErrNotFound)
	}

	records := Reconcile(e.Records, members)
	records[personID] = records[personID].With(updates...)
	e.Records = records
	if err := s.store.SaveScheduleEntry(ctx, *e); err != nil {
		return nil, err
	}
	s.sync(*e, members)
	return e, nil
}

func (s *ScheduleService) Delete(ctx context.Context, sess model.Session, key string) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteScheduleByKey(ctx, key); err != nil {
		return err
	}
	s.locks.Delete(key)
	return nil
}

// DeleteMany deletes every key concurrently. A failed key does not stop the others;
// the refreshed list is returned once all deletions have finished.
func (s *ScheduleService) DeleteMany(ctx context.Context, sess model.Session, keys []string) (BulkDeleteResult, []model.ScheduleSummary, error) {
	res := BulkDeleteResult{Deleted: []string{}}
	if !sess.IsAdmin() {
		return res, nil, ErrForbidden
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(bulkDeleteLimit)
	for _, key := range slices.Compact(slices.Sorted(slices.Values(keys))) {
		g.Go(func() error {
			err := s.store.DeleteScheduleByKey(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if res.Failed == nil {
					res.Failed = map[string]string{}
				}
				res.Failed[key] = err.Error()
				return nil
			}
			res.Deleted = append(res.Deleted, key)
			s.locks.Delete(key)
			return nil
		})
	}
	_ = g.Wait()
	slices.Sort(res.Deleted)

	list, err := s.List(ctx, sess)
	if err != nil {
		return res, nil, err
	}
	if len(res.Failed) > 0 {
		logger.Warn("bulk delete partially failed", "deleted", len(res.Deleted), "failed", len(res.Failed))
	}
	return res, list, nil
}

// Load returns nil when the entry does not exist.
func (s *ScheduleService) Load(ctx context.Context, sess model.Session, id string, mode LoadMode) (*EntryView, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	e, err := s.store.LoadScheduleEntry(ctx, id)
	if err != nil {
		logger.Warn("load schedule degraded", "id", id, "err", err)
	}
	if e == nil {
		return nil, nil
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		logger.Warn("load schedule: roster degraded", "err", err)
	}

	visible := sess.VisibleRecords(*e)
	var shown []model.Person
	for _, m := range members {
		if sess.CanViewRow(*e, m.ID) {
			shown = append(shown, PublicPerson(sess, m))
		}
	}
	view := &EntryView{
		Mode:     mode,
		Members:  shown,
		Editable: []string{},
		Groups:   summary.Groups(shown, visible),
		Progress: summary.Progress(shown, visible),
	}
	view.Entry = *e
	view.Entry.Records = visible

	if mode == LoadEdit {
		for _, m := range shown {
			if sess.CanEditRow(m.ID) {
				view.Editable = append(view.Editable, m.ID)
			}
		}
		if len(view.Editable) == 0 {
			return nil, ErrForbidden
		}
	}
	return view, nil
}

// List returns every summary. On private entries a non-admin session only sees its
// own pending row, matched by person id and named from the current roster.
func (s *ScheduleService) List(ctx context.Context, sess model.Session) ([]model.ScheduleSummary, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	list, err := s.store.ListScheduleSummaries(ctx)
	if err != nil {
		logger.Warn("list schedules degraded", "err", err)
	}
	if sess.IsAdmin() {
		return list, nil
	}

	var members []model.Person
	for i := range list {
		if list[i].PrivacyMode != model.PrivacyPrivate {
			continue
		}
		if members == nil {
			if members, err = s.store.GetMembers(ctx); err != nil {
				logger.Warn("list schedules: roster degraded", "err", err)
			}
		}
		list[i].UncompletedNames = s.ownPending(ctx, sess, list[i], members)
	}
	return list, nil
}

func (s *ScheduleService) ownPending(ctx context.Context, sess model.Session, sum model.ScheduleSummary, members []model.Person) []string {
	e, err := s.store.LoadScheduleEntry(ctx, sum.StorageKey)
	if err != nil {
		logger.Warn("list schedules: entry degraded", "key", sum.StorageKey, "err", err)
	}
	if e == nil {
		return []string{}
	}
	return summary.Derive(sum.StorageKey, e.ID, e.Date, e.Title, sess.VisibleRecords(*e), members).UncompletedNames
}

func (s *ScheduleService) ClearSchedules(ctx context.Context, sess model.Session) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteAllSchedules(ctx); err != nil {
		return err
	}
	s.locks.Clear()
	logger.Warn("all schedules cleared")
	return nil
}

// Reset wipes every entry and restores the default roster.
func (s *ScheduleService) Reset(ctx context.Context, sess model.Session) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.ResetApplication(ctx); err != nil {
		return err
	}
	s.locks.Clear()
	logger.Warn("application reset")
	return nil
}

// Briefing runs the AI report over a stored entry, limited to the rows the session can see.
func (s *ScheduleService) Briefing(ctx context.Context, sess model.Session, id string) (model.ReportResponse, error) {
	view, err := s.Load(ctx, sess, id, LoadView)
	if err != nil {
		return model.ReportResponse{}, err
	}
	if view == nil {
		return model.ReportResponse{}, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	title := model.ReportTitle(view.Entry.Date, view.Entry.Title)
	content := s.reporter.GenerateDailyReport(ctx, title, view.Members, view.Entry.Records)
	return model.ReportResponse{Title: title, Content: content}, nil
}

// DraftBriefing runs the AI report over unsaved edits. Admin only, since the draft
// may hold any row.
func (s *ScheduleService) DraftBriefing(ctx context.Context, sess model.Session, req model.ReportRequest) (model.ReportResponse, error) {
	if !sess.IsAdmin() {
		return model.ReportResponse{}, ErrForbidden
	}
	date, err := entryDate(req.Date, s.now())
	if err != nil {
		return model.ReportResponse{}, err
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		logger.Warn("briefing: roster degraded", "err", err)
	}
	title := model.ReportTitle(date, req.Title)
	content := s.reporter.GenerateDailyReport(ctx, title, members, Reconcile(req.Records, members))
	return model.ReportResponse{Title: title, Content: content}, nil
}

func (s *ScheduleService) sync(e model.ScheduleEntry, members []model.Person) {
	if s.catalog == nil {
		return
	}
	s.catalog.Go(func(ctx context.Context) {
		s.catalog.SyncScheduleEntry(ctx, e, members)
	})
}

// Reconcile keeps one record per current member: the given one or an empty default.
// Records of people no longer on the roster are dropped.
func Reconcile(records map[string]model.TaskRecord, members []model.Person) map[string]model.TaskRecord {
	out := make(map[string]model.TaskRecord, len(members))
	for _, m := range members {
		out[m.ID] = records[m.ID]
	}
	return out
}

// PublicPerson hides the zone number, which doubles as a login credential, from non-admins.
func PublicPerson(sess model.Session, p model.Person) model.Person {
	if !sess.IsAdmin() {
		p.ZoneNumber = ""
	}
	return p
}

func entryDate(date string, now time.Time) (string, error) {
	if date == "" {
		return now.Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", invalid("date %q is not YYYY-MM-DD", date)
	}
	return date, nil
}
