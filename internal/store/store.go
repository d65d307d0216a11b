// Package store persists the roster and schedule entries.
//
// Nothing is retried. Failed writes return an error wrapping ErrUnavailable. Failed
// reads are logged and degrade: the roster falls back to the built-in default, a lookup
// to absent, a listing to empty. The degraded value comes back together with an error
// wrapping ErrUnavailable so display paths can use it while mutations abort.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

var ErrUnavailable = errors.New("store unavailable")

const membersKey = "team_members"

type Store interface {
	// GetMembers returns the roster, initializing it with the default roster when absent.
	GetMembers(ctx context.Context) ([]model.Person, error)
	// SaveMembers replaces the whole roster.
	SaveMembers(ctx context.Context, members []model.Person) error
	// SaveScheduleEntry upserts by entry.ID. An existing entry keeps its first CreatedAt.
	SaveScheduleEntry(ctx context.Context, entry model.ScheduleEntry) error
	// LoadScheduleEntry returns nil when the id is absent.
	LoadScheduleEntry(ctx context.Context, id string) (*model.ScheduleEntry, error)
	// DeleteScheduleByKey removes one entry; a missing key is a no-op.
	DeleteScheduleByKey(ctx context.Context, key string) error
	// ListScheduleSummaries derives summaries against the live roster, newest first.
	ListScheduleSummaries(ctx context.Context) ([]model.ScheduleSummary, error)
	DeleteAllSchedules(ctx context.Context) error
	// ResetApplication clears every entry and restores the default roster in one transaction.
	ResetApplication(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Database.Driver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case "", "local":
		return NewLocalStore(cfg.Database.Path)
	default:
		db, err := cfg.OpenGormDB()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Database.Driver, err)
		}
		return NewGormStore(db)
	}
}

type membersDoc struct {
	Members []model.Person `json:"members"`
}

func newMembersDoc(members []model.Person) membersDoc {
	if members == nil {
		members = []model.Person{}
	}
	return membersDoc{Members: members}
}

func writeResult(op, target string, err error) error {
	metrics.Store(op, err)
	if err == nil {
		return nil
	}
	logger.Error("store.write_failed", "op", op, "target", target, "err", err)
	if target != "" {
		return fmt.Errorf("%s %s: %w: %w", op, target, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func degraded(op string, err error) error {
	metrics.StoreDegraded(op)
	logger.Warn("store.read_degraded", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func normalize(e model.ScheduleEntry) model.ScheduleEntry {
	e.PrivacyMode = e.PrivacyMode.Normalize()
	if e.Records == nil {
		e.Records = map[string]model.TaskRecord{}
	}
	return e
}
