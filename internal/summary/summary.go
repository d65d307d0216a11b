// Package summary derives display summaries from schedule entries and the live roster.
// Nothing here is cached: the roster can change independently of any entry.
package summary

import (
	"cmp"
	"slices"

	"github.com/ninnin76-design/sm-manager/internal/model"
)

type pending struct {
	id   string
	name string
	pos  int
}

// Derive aggregates records into a summary. Uncompleted names follow roster order;
// ids that no longer resolve show the raw id and sort last, ordered by id.
func Derive(storageKey, entryID, date, title string, records map[string]model.TaskRecord, members []model.Person) model.ScheduleSummary {
	idx := model.RosterIndex(members)

	s := model.ScheduleSummary{
		StorageKey:       storageKey,
		ID:               entryID,
		Date:             date,
		Title:            title,
		Total:            len(records),
		UncompletedNames: []string{},
	}

	var open []pending
	for id, r := range records {
		if r.Completed {
			s.Completed++
			continue
		}
		p := pending{id: id, name: id, pos: -1}
		if i, ok := idx[id]; ok {
			p.name = members[i].Name
			p.pos = i
		}
		open = append(open, p)
	}

	slices.SortFunc(open, func(a, b pending) int {
		switch {
		case a.pos == -1 && b.pos != -1:
			return 1
		case a.pos != -1 && b.pos == -1:
			return -1
		case a.pos != b.pos:
			return cmp.Compare(a.pos, b.pos)
		}
		return cmp.Compare(a.id, b.id)
	})
	for _, p := range open {
		s.UncompletedNames = append(s.UncompletedNames, p.name)
	}

	s.IsAllCompleted = s.Total > 0 && s.Completed == s.Total
	return s
}

// ForEntry is Derive applied to a stored entry.
func ForEntry(storageKey string, e model.ScheduleEntry, members []model.Person) model.ScheduleSummary {
	s := Derive(storageKey, e.ID, e.Date, e.Title, e.Records, members)
	s.PrivacyMode = e.PrivacyMode.Normalize()
	return s
}

// Sort orders summaries by date descending, then id descending. Ids embed the
// creation timestamp, so within a date the newest entry comes first.
func Sort(summaries []model.ScheduleSummary) {
	slices.SortStableFunc(summaries, func(a, b model.ScheduleSummary) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

type GroupProgress struct {
	Group        string `json:"group"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	AllCompleted bool   `json:"allCompleted"`
}

// Groups reports completion per roster group, in display order.
func Groups(members []model.Person, records map[string]model.TaskRecord) []GroupProgress {
	var out []GroupProgress
	for _, g := range model.SortGroups(members) {
		gp := GroupProgress{Group: g}
		for _, m := range members {
			if m.Group != g {
				continue
			}
			gp.Total++
			if records[m.ID].Completed {
				gp.Completed++
			}
		}
		gp.AllCompleted = gp.Total > 0 && gp.Completed == gp.Total
		out = append(out, gp)
	}
	return out
}

// Progress is the rounded completion percentage over the roster.
func Progress(members []model.Person, records map[string]model.TaskRecord) int {
	if len(members) == 0 {
		return 0
	}
	done := 0
	for _, m := range members {
		if records[m.ID].Completed {
			done++
		}
	}
	return (done*200 + len(members)) / (2 * len(members))
}
