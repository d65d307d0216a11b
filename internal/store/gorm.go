package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/summary"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingRow struct {
	Key   string         `gorm:"column:setting_key;primaryKey;size:64"`
	Value datatypes.JSON `gorm:"column:value"`
}

// scheduleRow avoids the CreatedAt field name so gorm does not auto-stamp it.
type scheduleRow struct {
	ID          string         `gorm:"primaryKey;size:64"`
	Date        string         `gorm:"size:10;index"`
	Title       string         `gorm:"size:255"`
	Records     datatypes.JSON `gorm:"column:records"`
	CreatedAtMs int64          `gorm:"column:created_at"`
	PrivacyMode string         `gorm:"size:16"`
}

func (settingRow) TableName() string  { return "settings" }
func (scheduleRow) TableName() string { return "schedules" }

// GormStore keeps the roster as a JSON document in settings and one row per entry in schedules.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&settingRow{}, &scheduleRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetMembers(ctx context.Context) ([]model.Person, error) {
	var row settingRow
	err := s.db.WithContext(ctx).First(&row, "setting_key = ?", membersKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := model.DefaultRoster()
		if err := s.upsertMembers(s.db.WithContext(ctx), defaults); err != nil {
			return defaults, degraded("init_members", err)
		}
		metrics.Store("get_members", nil)
		return defaults, nil
	}
	if err != nil {
		return model.DefaultRoster(), degraded("get_members", err)
	}
	var doc membersDoc
	if err := json.Unmarshal(row.Value, &doc); err != nil {
		return model.DefaultRoster(), degraded("get_members", err)
	}
	metrics.Store("get_members", nil)
	return doc.Members, nil
}

func (s *GormStore) SaveMembers(ctx context.Context, members []model.Person) error {
	return writeResult("save_members", "", s.upsertMembers(s.db.WithContext(ctx), members))
}

func (s *GormStore) upsertMembers(tx *gorm.DB, members []model.Person) error {
	data, err := json.Marshal(newMembersDoc(members))
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&settingRow{Key: membersKey, Value: datatypes.JSON(data)}).Error
}

func (s *GormStore) SaveScheduleEntry(ctx context.Context, entry model.ScheduleEntry) error {
	entry = normalize(entry)
	records, err := json.Marshal(entry.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	row := scheduleRow{
		ID:          entry.ID,
		Date:        entry.Date,
		Title:       entry.Title,
		Records:     datatypes.JSON(records),
		CreatedAtMs: entry.CreatedAt,
		PrivacyMode: string(entry.PrivacyMode),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "title", "records", "privacy_mode"}),
	}).Create(&row).Error
	return writeResult("save_schedule", entry.ID, err)
}

func (s *GormStore) LoadScheduleEntry(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var row scheduleRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.Store("load_schedule", nil)
		return nil, nil
	}
	if err != nil {
		return nil, degraded("load_schedule", err)
	}
	e, err := row.entry()
	if err != nil {
		// an undecodable payload reads as absent
		degraded("load_schedule", fmt.Errorf("decode %s: %w", id, err))
		return nil, nil
	}
	metrics.Store("load_schedule", nil)
	return &e, nil
}

func (s *GormStore) DeleteScheduleByKey(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&scheduleRow{}, "id = ?", key).Error
	return writeResult("delete_schedule", key, err)
}

func (s *GormStore) ListScheduleSummaries(ctx context.Context) ([]model.ScheduleSummary, error) {
	members, rosterErr := s.GetMembers(ctx)

	var rows []scheduleRow
	if err := s.db.WithContext(ctx).Order("date desc, id desc").Find(&rows).Error; err != nil {
		return []model.ScheduleSummary{}, degraded("list_summaries", err)
	}
	out := make([]model.ScheduleSummary, 0, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			degraded("list_summaries", fmt.Errorf("decode %s: %w", row.ID, err))
			continue
		}
		out = append(out, summary.ForEntry(row.ID, e, members))
	}
	summary.Sort(out)
	metrics.Store("list_summaries", nil)
	return out, rosterErr
}

func (s *GormStore) DeleteAllSchedules(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&scheduleRow{}).Error
	return writeResult("delete_all_schedules", "", err)
}

func (s *GormStore) ResetApplication(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&scheduleRow{}).Error; err != nil {
			return fmt.Errorf("clear schedules: %w", err)
		}
		if err := s.upsertMembers(tx, model.DefaultRoster()); err != nil {
			return fmt.Errorf("reset members: %w", err)
		}
		return nil
	})
	return writeResult("reset_application", "", err)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r scheduleRow) entry() (model.ScheduleEntry, error) {
	e := model.ScheduleEntry{
		ID:          r.ID,
		Date:        r.Date,
		Title:       r.Title,
		CreatedAt:   r.CreatedAtMs,
		PrivacyMode: model.PrivacyMode(r.PrivacyMode),
	}
	if len(r.Records) > 0 {
		if err := json.Unmarshal(r.Records, &e.Records); err != nil {
			return e, fmt.Errorf("decode records: %w", err)
		}
	}
	return normalize(e), nil
}
