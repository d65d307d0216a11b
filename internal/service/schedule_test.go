package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/store"
)

var (
	admin = model.AdminSession()
	kim   = model.Session{Role: model.RoleMember, PersonID: "h_1", Name: "김하나"}
	park  = model.Session{Role: model.RoleMember, PersonID: "o_1", Name: "박하나"}
)

func newSchedules(t *testing.T) (*ScheduleService, *fakeStore, *stubReporter) {
	t.Helper()
	st := newFakeStore()
	rep := &stubReporter{}
	svc := NewScheduleService(st, rep, nil)
	svc.SetClock(func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local) })
	return svc, st, rep
}

func TestCreateReconcilesAgainstRoster(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, admin, Draft{
		Title: "점검",
		Records: map[string]model.TaskRecord{
			"h_1":   {Completed: true, Remarks: "ok"},
			"ghost": {Completed: true},
		},
	})
	require.NoError(t, err)

	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local)
	assert.Equal(t, model.EntryID("2024-05-20", now.UnixMilli()), e.ID)
	assert.Equal(t, "2024-05-20", e.Date)
	assert.Equal(t, now.UnixMilli(), e.CreatedAt)
	assert.Equal(t, model.PrivacyPublic, e.PrivacyMode)
	assert.Len(t, e.Records, 6)
	assert.NotContains(t, e.Records, "ghost")
	assert.Equal(t, model.TaskRecord{Completed: true, Remarks: "ok"}, e.Records["h_1"])
	assert.Equal(t, model.TaskRecord{}, e.Records["o_3"])
	assert.Equal(t, []string{e.ID}, st.keys())
}

func TestCreateRejects(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, kim, Draft{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, admin, Draft{Date: "20/05/2024"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	st.failMembers = true
	_, err = svc.Create(ctx, admin, Draft{})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Empty(t, st.keys())
}

func TestUpdateKeepsIdentity(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", PrivacyMode: model.PrivacyPrivate})
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local) })
	got, err := svc.Update(ctx, admin, e.ID, Draft{Title: "수정", Records: map[string]model.TaskRecord{"o_1": {Completed: true}}})
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.CreatedAt, got.CreatedAt)
	assert.Equal(t, "2024-05-20", got.Date)
	assert.Equal(t, model.PrivacyPrivate, got.PrivacyMode)
	assert.True(t, got.Records["o_1"].Completed)
	assert.Len(t, st.keys(), 1)

	_, err = svc.Update(ctx, admin, "missing", Draft{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, park, e.ID, Draft{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateRecordOwnRowOnly(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, admin, Draft{Records: map[string]model.TaskRecord{"h_1": {Remarks: "keep"}}})
	require.NoError(t, err)

	got, err := svc.UpdateRecord(ctx, kim, e.ID, "h_1", model.SetCompleted(true))
	require.NoError(t, err)
	assert.Equal(t, model.TaskRecord{Completed: true, Remarks: "keep"}, got.Records["h_1"])

	_, err = svc.UpdateRecord(ctx, kim, e.ID, "o_1", model.SetCompleted(true))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateRecord(ctx, admin, e.ID, "o_1", model.SetRemarks("late"))
	require.NoError(t, err)

	_, err = svc.UpdateRecord(ctx, admin, e.ID, "ghost", model.SetCompleted(true))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateRecord(ctx, admin, "missing", "h_1", model.SetCompleted(true))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateRecord(ctx, kim, e.ID, "h_1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	stored, _ := st.LoadScheduleEntry(ctx, e.ID)
	assert.True(t, stored.Records["h_1"].Completed)
	assert.Equal(t, "late", stored.Records["o_1"].Remarks)
	assert.Equal(t, e.CreatedAt, stored.CreatedAt)
}

func TestLoadPrivateEntry(t *testing.T) {
	svc, _, _ := newSchedules(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, admin, Draft{
		PrivacyMode: model.PrivacyPrivate,
		Records:     map[string]model.TaskRecord{"h_1": {Completed: true}, "o_1": {Remarks: "secret"}},
	})
	require.NoError(t, err)

	view, err := svc.Load(ctx, kim, e.ID, LoadEdit)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.TaskRecord{"h_1": {Completed: true}}, view.Entry.Records)
	assert.Equal(t, []string{"h_1"}, view.Editable)
	require.Len(t, view.Members, 1)
	assert.Empty(t, view.Members[0].ZoneNumber)
	assert.Equal(t, 100, view.Progress)

	view, err = svc.Load(ctx, admin, e.ID, LoadEdit)
	require.NoError(t, err)
	assert.Len(t, view.Entry.Records, 6)
	assert.Len(t, view.Editable, 6)
	assert.Equal(t, 17, view.Progress)
	assert.Equal(t, "1001", view.Members[0].ZoneNumber)

	view, err = svc.Load(ctx, admin, e.ID, LoadView)
	require.NoError(t, err)
	assert.Empty(t, view.Editable)

	view, err = svc.Load(ctx, kim, "missing", LoadView)
	assert.NoError(t, err)
	assert.Nil(t, view)

	_, err = svc.Load(ctx, model.Session{}, e.ID, LoadView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLoadEditWithoutRowIsForbidden(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, admin, Draft{})
	require.NoError(t, err)

	gone := model.Session{Role: model.RoleMember, PersonID: "user_1", Name: "퇴사자"}
	_, err = svc.Load(ctx, gone, e.ID, LoadEdit)
	assert.ErrorIs(t, err, ErrForbidden)

	view, err := svc.Load(ctx, gone, e.ID, LoadView)
	require.NoError(t, err)
	assert.Len(t, view.Entry.Records, 6)
	assert.Len(t, st.keys(), 1)
}

func TestListRedactsPrivateEntries(t *testing.T) {
	svc, _, _ := newSchedules(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, admin, Draft{Date: "2024-05-19"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, Draft{Date: "2024-05-20", PrivacyMode: model.PrivacyPrivate})
	require.NoError(t, err)

	list, err := svc.List(ctx, kim)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-05-20", list[0].Date)
	assert.Equal(t, []string{"김하나"}, list[0].UncompletedNames)
	assert.Equal(t, 6, list[0].Total)
	assert.Len(t, list[1].UncompletedNames, 6)

	list, err = svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list[0].UncompletedNames, 6)
}

func TestDeleteManyContinuesPastFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	for _, id := range []string{"k1", "k2", "k3"} {
		require.NoError(t, st.SaveScheduleEntry(ctx, model.ScheduleEntry{ID: id, Date: "2024-05-20"}))
	}
	st.failDelete = map[string]bool{"k2": true}

	res, list, err := svc.DeleteMany(ctx, admin, []string{"k1", "k2", "k3", "k1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k3"}, res.Deleted)
	assert.Contains(t, res.Failed, "k2")
	require.Len(t, list, 1)
	assert.Equal(t, "k2", list[0].StorageKey)
	assert.Equal(t, []string{"k2"}, st.keys())

	_, _, err = svc.DeleteMany(ctx, kim, []string{"k2"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClearAndReset(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, admin, Draft{})
	require.NoError(t, err)
	st.members = st.members[:2]

	assert.ErrorIs(t, svc.ClearSchedules(ctx, kim), ErrForbidden)
	assert.ErrorIs(t, svc.Reset(ctx, kim), ErrForbidden)

	require.NoError(t, svc.ClearSchedules(ctx, admin))
	assert.Empty(t, st.keys())
	assert.Len(t, st.members, 2)

	require.NoError(t, svc.Reset(ctx, admin))
	assert.Equal(t, model.DefaultRoster(), st.members)
}

func TestBriefing(t *testing.T) {
	svc, _, rep := newSchedules(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", Title: "주간", PrivacyMode: model.PrivacyPrivate})
	require.NoError(t, err)

	got, err := svc.Briefing(ctx, park, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportResponse{Title: "2024-05-20 (주간)", Content: "briefing"}, got)
	assert.Len(t, rep.members, 1)
	assert.Len(t, rep.records, 1)

	_, err = svc.Briefing(ctx, park, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = svc.DraftBriefing(ctx, admin, model.ReportRequest{Records: map[string]model.TaskRecord{"h_2": {Completed: true}}})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", got.Title)
	assert.Len(t, rep.records, 6)
	assert.True(t, rep.records["h_2"].Completed)

	_, err = svc.DraftBriefing(ctx, kim, model.ReportRequest{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestParseLoadMode(t *testing.T) {
	m, err := ParseLoadMode("")
	require.NoError(t, err)
	assert.Equal(t, LoadView, m)
	m, err = ParseLoadMode("edit")
	require.NoError(t, err)
	assert.Equal(t, LoadEdit, m)
	_, err = ParseLoadMode("write")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateSameMillisecondGetsDistinctIDs(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	svc.SetClock(func() time.Time { return time.UnixMilli(1716182922123) })

	morning, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", Title: "morning"})
	require.NoError(t, err)
	evening, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", Title: "evening"})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-20_1716182922123", morning.ID)
	assert.Equal(t, "2024-05-20_1716182922124", evening.ID)
	assert.Equal(t, []string{morning.ID, evening.ID}, st.keys())

	stored, err := st.LoadScheduleEntry(ctx, morning.ID)
	require.NoError(t, err)
	assert.Equal(t, "morning", stored.Title)
}

func TestCreateOnLegacyDayKeepsLegacyRecord(t *testing.T) {
	st, err := store.NewLocalStore(filepath.Join(t.TempDir(), "sm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.DB().Exec(`INSERT INTO schedules(id, payload) VALUES(?, ?)`,
		"2024-05-20", []byte(`{"h_1":{"completed":true,"remarks":"legacy work"}}`))
	require.NoError(t, err)

	svc := NewScheduleService(st, &stubReporter{}, nil)
	svc.SetClock(func() time.Time { return time.UnixMilli(1716182922123) })
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", Title: "new session"})
	require.NoError(t, err)
	assert.False(t, created.Records["h_1"].Completed)

	legacy, err := st.LoadScheduleEntry(ctx, "2024-05-20")
	require.NoError(t, err)
	require.NotNil(t, legacy)
	assert.Equal(t, model.TaskRecord{Completed: true, Remarks: "legacy work"}, legacy.Records["h_1"])

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	upgraded, err := svc.Update(ctx, admin, "2024-05-20", Draft{Title: "이전 기록", Records: legacy.Records})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", upgraded.ID)
	assert.True(t, upgraded.Records["h_1"].Completed)

	list, err = svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListRedactionFollowsPersonID(t *testing.T) {
	svc, st, _ := newSchedules(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20", PrivacyMode: model.PrivacyPrivate})
	require.NoError(t, err)

	// renamed after kim logged in; o_1 now carries kim's old display name
	st.members[0].Name = "김하나(개명)"
	st.members[3].Name = "김하나"

	list, err := svc.List(ctx, kim)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"김하나(개명)"}, list[0].UncompletedNames)

	_, err = svc.UpdateRecord(ctx, kim, list[0].ID, "h_1", model.SetCompleted(true))
	require.NoError(t, err)
	list, err = svc.List(ctx, kim)
	require.NoError(t, err)
	assert.Empty(t, list[0].UncompletedNames)
	assert.Equal(t, 1, list[0].Completed)
}

func lockCount(svc *ScheduleService) int {
	n := 0
	svc.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestDeleteDropsEntryLocks(t *testing.T) {
	svc, _, _ := newSchedules(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, admin, Draft{Date: "2024-05-19"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, admin, Draft{Date: "2024-05-20"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, admin, Draft{Date: "2024-05-21"})
	require.NoError(t, err)
	_, err = svc.UpdateRecord(ctx, admin, a.ID, "h_1", model.SetCompleted(true))
	require.NoError(t, err)
	assert.Equal(t, 3, lockCount(svc))

	require.NoError(t, svc.Delete(ctx, admin, a.ID))
	assert.Equal(t, 2, lockCount(svc))

	_, _, err = svc.DeleteMany(ctx, admin, []string{b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, lockCount(svc))

	_, err = svc.Update(ctx, admin, c.ID, Draft{})
	require.NoError(t, err)
	require.NoError(t, svc.ClearSchedules(ctx, admin))
	assert.Zero(t, lockCount(svc))
}
