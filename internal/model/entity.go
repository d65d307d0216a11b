package model

import (
	"strconv"
	"strings"
)

type PrivacyMode string

const (
	PrivacyPublic  PrivacyMode = "public"
	PrivacyPrivate PrivacyMode = "private"
)

// Normalize maps anything other than "private" to public.
func (p PrivacyMode) Normalize() PrivacyMode {
	if p == PrivacyPrivate {
		return PrivacyPrivate
	}
	return PrivacyPublic
}

type Person struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	ZoneNumber string `json:"zoneNumber"`
}

type TaskRecord struct {
	Completed bool   `json:"completed"`
	Remarks   string `json:"remarks"`
}

type ScheduleEntry struct {
	ID          string                `json:"id"`
	Date        string                `json:"date"`
	Title       string                `json:"title"`
	Records     map[string]TaskRecord `json:"records"`
	CreatedAt   int64                 `json:"createdAt"`
	PrivacyMode PrivacyMode           `json:"privacyMode"`
}

// ScheduleSummary is derived on every list fetch and never persisted.
type ScheduleSummary struct {
	StorageKey       string      `json:"storageKey"`
	ID               string      `json:"id"`
	Date             string      `json:"date"`
	Title            string      `json:"title"`
	Total            int         `json:"total"`
	Completed        int         `json:"completed"`
	IsAllCompleted   bool        `json:"isAllCompleted"`
	UncompletedNames []string    `json:"uncompletedNames"`
	PrivacyMode      PrivacyMode `json:"privacyMode"`
}

// EntryID builds the identifier of a new entry: <date>_<epoch millis>.
func EntryID(date string, createdAtMillis int64) string {
	return date + "_" + strconv.FormatInt(createdAtMillis, 10)
}

// ReportTitle is the heading passed to the AI briefing: "date (title)" or just the date.
func ReportTitle(date, title string) string {
	if strings.TrimSpace(title) == "" {
		return date
	}
	return date + " (" + title + ")"
}
