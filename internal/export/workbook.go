// Package export renders schedule summaries as spreadsheets and hands them to an archive.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ninnin76-design/sm-manager/internal/model"
)

const (
	sheetName   = "일정"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []any{"날짜", "제목", "공개 범위", "완료", "전체", "상태", "미완료 인원"}

// Workbook writes one row per summary, in the order given.
func Workbook(summaries []model.ScheduleSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, s := range summaries {
		row := []any{
			s.Date,
			s.Title,
			privacyLabel(s.PrivacyMode),
			s.Completed,
			s.Total,
			statusLabel(s),
			strings.Join(s.UncompletedNames, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 12); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "G", "G", 40); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the archive name of an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("sm-schedules_%s.xlsx", now.Format("20060102_150405"))
}

func privacyLabel(p model.PrivacyMode) string {
	if p == model.PrivacyPrivate {
		return "비공개"
	}
	return "공개"
}

func statusLabel(s model.ScheduleSummary) string {
	switch {
	case s.IsAllCompleted:
		return "완료"
	case s.Total == 0:
		return "-"
	default:
		return "진행중"
	}
}
