package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/matrixorigin/moi-go-sdk"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

const catalogSyncTimeout = 60 * time.Second

// CatalogSync mirrors saved entries and the roster into MatrixOne tables so they can be
// queried with NL2SQL. It is best effort: failures are logged and never reach the caller.
type CatalogSync struct {
	raw        *sdk.RawClient
	sdk        *sdk.SDKClient
	databaseID sdk.DatabaseID
	recordsID  sdk.TableID
	membersID  sdk.TableID
	timeout    time.Duration
	now        func() time.Time
}

// NewCatalogSync returns nil unless sync is enabled and the tables are known.
func NewCatalogSync(cfg *config.Config) (*CatalogSync, error) {
	m := cfg.MOI
	if !m.Sync || m.APIKey == "" || m.DatabaseID == 0 || m.RecordsTableID == 0 || m.MembersTableID == 0 {
		return nil, nil
	}
	raw, err := cfg.NewRawClient()
	if err != nil {
		return nil, fmt.Errorf("moi client: %w", err)
	}
	return &CatalogSync{
		raw:        raw,
		sdk:        sdk.NewSDKClient(raw),
		databaseID: sdk.DatabaseID(m.DatabaseID),
		recordsID:  sdk.TableID(m.RecordsTableID),
		membersID:  sdk.TableID(m.MembersTableID),
		timeout:    catalogSyncTimeout,
		now:        time.Now,
	}, nil
}

// Go runs fn in the background, detached from the request but bounded by the sync timeout.
func (s *CatalogSync) Go(fn func(ctx context.Context)) {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = catalogSyncTimeout
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

// SyncScheduleEntry uploads one row per record of e.
func (s *CatalogSync) SyncScheduleEntry(ctx context.Context, e model.ScheduleEntry, members []model.Person) {
	csv := RecordsCSV(e, members, s.now())
	if csv == "" {
		return
	}
	// schedule_records: id, schedule_id, schedule_date, title, person_id, person_name, team, completed, remarks, synced_at
	s.importCSV(ctx, s.recordsID, csv, fmt.Sprintf("schedule_%s.csv", e.ID),
		[]sdk.FileAndTableColumnMapping{
			{TableColumn: "id", Column: "id", ColNumInFile: 1},
			{TableColumn: "schedule_id", Column: "schedule_id", ColNumInFile: 2},
			{TableColumn: "schedule_date", Column: "schedule_date", ColNumInFile: 3},
			{TableColumn: "title", Column: "title", ColNumInFile: 4},
			{TableColumn: "person_id", Column: "person_id", ColNumInFile: 5},
			{TableColumn: "person_name", Column: "person_name", ColNumInFile: 6},
			{TableColumn: "team", Column: "team", ColNumInFile: 7},
			{TableColumn: "completed", Column: "completed", ColNumInFile: 8},
			{TableColumn: "remarks", Column: "remarks", ColNumInFile: 9},
			{TableColumn: "synced_at", Column: "synced_at", ColNumInFile: 10},
		})
}

// SyncMembers uploads the roster without zone numbers.
func (s *CatalogSync) SyncMembers(ctx context.Context, members []model.Person) {
	csv := MembersCSV(members)
	if csv == "" {
		return
	}
	s.importCSV(ctx, s.membersID, csv, "members.csv",
		[]sdk.FileAndTableColumnMapping{
			{TableColumn: "id", Column: "id", ColNumInFile: 1},
			{TableColumn: "name", Column: "name", ColNumInFile: 2},
			{TableColumn: "team", Column: "team", ColNumInFile: 3},
		})
}

// RecordsCSV renders e's records in roster order; rows for ids off the roster are skipped.
func RecordsCSV(e model.ScheduleEntry, members []model.Person, now time.Time) string {
	var buf bytes.Buffer
	stamp := now.Format("2006-01-02 15:04:05")
	for _, m := range members {
		r, ok := e.Records[m.ID]
		if !ok {
			continue
		}
		completed := 0
		if r.Completed {
			completed = 1
		}
		fmt.Fprintf(&buf, "%s,%s,%s,%s,%s,%s,%s,%d,%s,%s\n",
			esc(e.ID+"/"+m.ID), esc(e.ID), e.Date, esc(e.Title), esc(m.ID), esc(m.Name), esc(m.Group),
			completed, esc(r.Remarks), stamp)
	}
	return buf.String()
}

func MembersCSV(members []model.Person) string {
	var buf bytes.Buffer
	for _, m := range members {
		fmt.Fprintf(&buf, "%s,%s,%s\n", esc(m.ID), esc(m.Name), esc(m.Group))
	}
	return buf.String()
}

func (s *CatalogSync) importCSV(ctx context.Context, tableID sdk.TableID, csv, fileName string, mapping []sdk.FileAndTableColumnMapping) {
	resp, err := s.raw.UploadLocalFile(ctx, bytes.NewReader([]byte(csv)), fileName, []sdk.FileMeta{{Filename: fileName, Path: "/"}})
	if err != nil {
		logger.Warn("catalog sync: upload failed", "table", tableID, "err", err)
		return
	}
	if len(resp.ConnFileIds) == 0 {
		logger.Warn("catalog sync: no conn_file_ids", "table", tableID)
		return
	}

	_, err = s.sdk.ImportLocalFileToTable(ctx, &sdk.TableConfig{
		ConnFileIDs:      resp.ConnFileIds,
		NewTable:         false,
		DatabaseID:       s.databaseID,
		TableID:          tableID,
		IsColumnName:     false,
		RowStart:         1,
		Conflict:         1,
		ExistedTable:     mapping,
		ExistedTableOpts: sdk.ExistedTableOptions{Method: sdk.ExistedTableOptionAppend},
	})
	if err != nil {
		logger.Warn("catalog sync: import failed", "table", tableID, "err", err)
		return
	}
	logger.Info("catalog sync: ok", "table", tableID, "file", fileName)
}

func esc(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
