package store

import (
	"encoding/json"
	"fmt"

	"github.com/ninnin76-design/sm-manager/internal/model"
)

type schemaVersion int

const (
	schemaLegacy schemaVersion = iota + 1
	schemaCurrent
)

// currentDoc mirrors model.ScheduleEntry with pointer fields so a missing wrapper is detectable.
type currentDoc struct {
	ID          *string                      `json:"id"`
	Date        string                       `json:"date"`
	Title       string                       `json:"title"`
	Records     *map[string]model.TaskRecord `json:"records"`
	CreatedAt   int64                        `json:"createdAt"`
	PrivacyMode model.PrivacyMode            `json:"privacyMode"`
}

// decodeSchedule tries the current wrapped schema first, then the legacy flat schema
// (key = bare date, value = records map), upgrading the latter to an entry with an
// empty title and zero CreatedAt.
func decodeSchedule(key string, payload []byte) (model.ScheduleEntry, schemaVersion, error) {
	var doc currentDoc
	if err := json.Unmarshal(payload, &doc); err == nil && doc.ID != nil && doc.Records != nil {
		return normalize(model.ScheduleEntry{
			ID:          *doc.ID,
			Date:        doc.Date,
			Title:       doc.Title,
			Records:     *doc.Records,
			CreatedAt:   doc.CreatedAt,
			PrivacyMode: doc.PrivacyMode,
		}), schemaCurrent, nil
	}

	var records map[string]model.TaskRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return model.ScheduleEntry{}, 0, fmt.Errorf("decode %s: neither current nor legacy schema: %w", key, err)
	}
	return normalize(model.ScheduleEntry{
		ID:      key,
		Date:    key,
		Records: records,
	}), schemaLegacy, nil
}
