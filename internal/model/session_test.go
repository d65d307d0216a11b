package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionVisibility(t *testing.T) {
	entry := ScheduleEntry{
		ID: "2024-05-20_1", Date: "2024-05-20",
		Records: map[string]TaskRecord{
			"h_1": {Completed: true},
			"h_2": {Remarks: "late"},
		},
	}
	alice := MemberSession(Person{ID: "h_1", Name: "김하나"})

	assert.True(t, alice.CanViewRow(entry, "h_2"), "public entry shows every row")
	assert.Len(t, alice.VisibleRecords(entry), 2)

	entry.PrivacyMode = PrivacyPrivate
	assert.False(t, alice.CanViewRow(entry, "h_2"))
	assert.Equal(t, map[string]TaskRecord{"h_1": {Completed: true}}, alice.VisibleRecords(entry))

	admin := AdminSession()
	assert.Len(t, admin.VisibleRecords(entry), 2)
}

func TestSessionEditRights(t *testing.T) {
	alice := MemberSession(Person{ID: "h_1"})
	assert.True(t, alice.CanEditRow("h_1"))
	assert.False(t, alice.CanEditRow("h_2"))
	assert.True(t, AdminSession().CanEditRow("h_2"))

	var anon Session
	assert.False(t, anon.Valid())
	assert.False(t, anon.CanEditRow(""))
	assert.False(t, anon.CanViewRow(ScheduleEntry{}, "h_1"))
}

func TestRecordUpdates(t *testing.T) {
	r := TaskRecord{}.With(SetCompleted(true), SetRemarks("done early"))
	assert.Equal(t, TaskRecord{Completed: true, Remarks: "done early"}, r)

	done := true
	note := "x"
	assert.Len(t, RecordPatch{Completed: &done, Remarks: &note}.Updates(), 2)
	assert.Empty(t, RecordPatch{}.Updates())
}

func TestSortGroups(t *testing.T) {
	members := []Person{
		{ID: "1", Group: "다른팀"},
		{ID: "2", Group: TeamOsan},
		{ID: "3", Group: "가팀"},
		{ID: "4", Group: TeamHwaseong},
		{ID: "5", Group: TeamOsan},
	}
	assert.Equal(t, []string{TeamHwaseong, TeamOsan, "가팀", "다른팀"}, SortGroups(members))
}

func TestDefaultRosterIsCopy(t *testing.T) {
	r := DefaultRoster()
	r[0].Name = "changed"
	assert.NotEqual(t, "changed", DefaultRoster()[0].Name)
	assert.Len(t, r, 6)
}

func TestEntryIDAndTitle(t *testing.T) {
	assert.Equal(t, "2024-05-20_1716182922123", EntryID("2024-05-20", 1716182922123))
	assert.Equal(t, "2024-05-20", ReportTitle("2024-05-20", " "))
	assert.Equal(t, "2024-05-20 (점검)", ReportTitle("2024-05-20", "점검"))
}
