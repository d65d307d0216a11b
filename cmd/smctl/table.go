package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ninnin76-design/sm-manager/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	doneStyle   = cellStyle.Foreground(lipgloss.Color("34"))
	openStyle   = cellStyle.Foreground(lipgloss.Color("208"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func formatMembers(members []model.Person) string {
	t := newTable("ID", "NAME", "GROUP", "ZONE")
	for _, g := range model.SortGroups(members) {
		for _, m := range members {
			if m.Group == g {
				t.Row(m.ID, m.Name, m.Group, m.ZoneNumber)
			}
		}
	}
	return t.Render()
}

func formatSummaries(list []model.ScheduleSummary) string {
	if len(list) == 0 {
		return "no schedules"
	}
	t := newTable("DATE", "TITLE", "PRIVACY", "DONE", "UNCOMPLETED", "KEY")
	for _, s := range list {
		t.Row(s.Date, s.Title, string(s.PrivacyMode), fmt.Sprintf("%d/%d", s.Completed, s.Total),
			strings.Join(s.UncompletedNames, ", "), s.StorageKey)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 3 && list[row].IsAllCompleted:
			return doneStyle
		case col == 3:
			return openStyle
		}
		return cellStyle
	})
	return t.Render()
}
