package model

import (
	"slices"
	"strings"
)

const (
	TeamHwaseong = "화성병점"
	TeamOsan     = "오산중앙"
)

var defaultRoster = []Person{
	{ID: "h_1", Name: "김하나", Group: TeamHwaseong, ZoneNumber: "1001"},
	{ID: "h_2", Name: "김둘", Group: TeamHwaseong, ZoneNumber: "1002"},
	{ID: "h_3", Name: "김셋", Group: TeamHwaseong, ZoneNumber: "1003"},
	{ID: "o_1", Name: "박하나", Group: TeamOsan, ZoneNumber: "2001"},
	{ID: "o_2", Name: "박둘", Group: TeamOsan, ZoneNumber: "2002"},
	{ID: "o_3", Name: "박셋", Group: TeamOsan, ZoneNumber: "2003"},
}

// DefaultRoster returns a fresh copy of the built-in roster.
func DefaultRoster() []Person {
	return slices.Clone(defaultRoster)
}

// SortGroups returns the distinct groups of members, the two home teams first and the rest by name.
func SortGroups(members []Person) []string {
	var groups []string
	seen := map[string]bool{}
	for _, m := range members {
		if !seen[m.Group] {
			seen[m.Group] = true
			groups = append(groups, m.Group)
		}
	}
	slices.SortFunc(groups, func(a, b string) int {
		ra, rb := groupRank(a), groupRank(b)
		if ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return groups
}

func groupRank(g string) int {
	switch g {
	case TeamHwaseong:
		return 0
	case TeamOsan:
		return 1
	default:
		return 2
	}
}

func FindByZone(members []Person, zone string) (Person, bool) {
	for _, m := range members {
		if m.ZoneNumber == zone {
			return m, true
		}
	}
	return Person{}, false
}

// RosterIndex maps person id to roster position.
func RosterIndex(members []Person) map[string]int {
	idx := make(map[string]int, len(members))
	for i, m := range members {
		if _, ok := idx[m.ID]; !ok {
			idx[m.ID] = i
		}
	}
	return idx
}
