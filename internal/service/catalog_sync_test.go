package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

func TestRecordsCSV(t *testing.T) {
	members := model.DefaultRoster()[:2]
	e := model.ScheduleEntry{
		ID: "2024-05-20_1", Date: "2024-05-20", Title: "점검, 1차",
		Records: map[string]model.TaskRecord{
			"h_1":   {Completed: true, Remarks: `say "hi"`},
			"h_2":   {},
			"ghost": {Completed: true},
		},
	}
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	got := RecordsCSV(e, members, now)
	assert.Equal(t,
		"2024-05-20_1/h_1,2024-05-20_1,2024-05-20,\"점검, 1차\",h_1,김하나,화성병점,1,\"say \"\"hi\"\"\",2024-05-20 10:00:00\n"+
			"2024-05-20_1/h_2,2024-05-20_1,2024-05-20,\"점검, 1차\",h_2,김둘,화성병점,0,,2024-05-20 10:00:00\n",
		got)
}

func TestMembersCSVOmitsZones(t *testing.T) {
	got := MembersCSV(model.DefaultRoster()[:1])
	assert.Equal(t, "h_1,김하나,화성병점\n", got)
	assert.NotContains(t, got, "1001")
}

func TestCatalogSyncDisabled(t *testing.T) {
	cfg := config.Default()
	sync, err := NewCatalogSync(cfg)
	require.NoError(t, err)
	assert.Nil(t, sync)
}

func TestGoBoundsSyncWithDeadline(t *testing.T) {
	deadlines := make(chan time.Duration, 1)
	start := time.Now()
	(&CatalogSync{timeout: 2 * time.Second}).Go(func(ctx context.Context) {
		dl, _ := ctx.Deadline()
		deadlines <- dl.Sub(start)
	})
	select {
	case d := <-deadlines:
		assert.LessOrEqual(t, d, 2*time.Second+time.Second)
		assert.Greater(t, d, time.Duration(0))
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not run")
	}

	done := make(chan error, 1)
	(&CatalogSync{timeout: 10 * time.Millisecond}).Go(func(ctx context.Context) {
		<-ctx.Done()
		done <- ctx.Err()
	})
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("sync was not cancelled")
	}
}
