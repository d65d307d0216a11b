package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ninnin76-design/sm-manager/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

const (
	recordsTable = "schedule_records"
	membersTable = "members"
)

type catalogIDs struct {
	database sdk.DatabaseID
	tables   map[string]sdk.TableID
}

// tableSpecs mirror the CSV layout written by service.CatalogSync.
var tableSpecs = []struct {
	name    string
	comment string
	columns []sdk.Column
}{
	{membersTable, "팀원 명단", []sdk.Column{
		{Name: "id", Type: "VARCHAR(64)", IsPk: true, Comment: "팀원 ID"},
		{Name: "name", Type: "VARCHAR(50)", Comment: "팀원 이름"},
		{Name: "team", Type: "VARCHAR(50)", Comment: "소속 구역 그룹, 예: 화성병점, 오산중앙"},
	}},
	{recordsTable, "일정별 팀원 업무 기록", []sdk.Column{
		{Name: "id", Type: "VARCHAR(128)", IsPk: true, Comment: "일정ID/팀원ID"},
		{Name: "schedule_id", Type: "VARCHAR(64)", Comment: "일정 ID, 날짜_생성시각"},
		{Name: "schedule_date", Type: "DATE", Comment: "일정 날짜"},
		{Name: "title", Type: "VARCHAR(255)", Comment: "일정 제목"},
		{Name: "person_id", Type: "VARCHAR(64)", Comment: "관련 members.id"},
		{Name: "person_name", Type: "VARCHAR(50)", Comment: "기록 시점의 팀원 이름"},
		{Name: "team", Type: "VARCHAR(50)", Comment: "기록 시점의 소속 그룹"},
		{Name: "completed", Type: "TINYINT", Comment: "완료 여부, 1 완료 0 미완료"},
		{Name: "remarks", Type: "TEXT", Comment: "비고"},
		{Name: "synced_at", Type: "DATETIME", Comment: "동기화 시각"},
	}},
}

func initCatalog(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (catalogIDs, error) {
	ids := catalogIDs{tables: map[string]sdk.TableID{}}

	// 1. Create database
	dbResp, err := client.CreateDatabase(ctx, &sdk.DatabaseCreateRequest{
		CatalogID:    catalogID,
		DatabaseName: dbName,
		Comment:      "SM 업무 현황",
	})
	if err != nil {
		if !isDuplicate(err) {
			return ids, fmt.Errorf("create database: %w", err)
		}
		logger.Info("catalog: database already exists, discovering ID", "name", dbName)
		if ids.database, err = discoverDatabaseID(ctx, client, catalogID, dbName); err != nil {
			return ids, err
		}
	} else {
		ids.database = dbResp.DatabaseID
		logger.Info("catalog: database created", "id", dbResp.DatabaseID)
	}

	// 2. Create tables
	for _, t := range tableSpecs {
		resp, err := client.CreateTable(ctx, &sdk.TableCreateRequest{
			DatabaseID: ids.database,
			Name:       t.name,
			Columns:    t.columns,
			Comment:    t.comment,
		})
		if err != nil {
			if isDuplicate(err) {
				logger.Info("catalog: table already exists, skipping", "name", t.name)
				continue
			}
			return ids, fmt.Errorf("create table %s: %w", t.name, err)
		}
		ids.tables[t.name] = resp.TableID
		logger.Info("catalog: table created", "name", t.name, "id", resp.TableID)
	}
	return ids, nil
}

func discoverDatabaseID(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	resp, err := client.ListDatabases(ctx, &sdk.DatabaseListRequest{CatalogID: catalogID})
	if err != nil {
		return 0, fmt.Errorf("list databases: %w", err)
	}
	for _, db := range resp.List {
		if db.DatabaseName == dbName {
			logger.Info("catalog: database discovered", "id", db.DatabaseID)
			return db.DatabaseID, nil
		}
	}
	return 0, fmt.Errorf("database %s not found in catalog %d", dbName, catalogID)
}

func isDuplicate(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "already exist") || strings.Contains(s, "exists") || strings.Contains(s, "conflict")
}
