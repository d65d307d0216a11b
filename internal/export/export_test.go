package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

func TestWorkbook(t *testing.T) {
	data, err := Workbook([]model.ScheduleSummary{
		{Date: "2024-05-20", Title: "점검", Total: 2, Completed: 1, UncompletedNames: []string{"김둘"}, PrivacyMode: model.PrivacyPrivate},
		{Date: "2024-05-19", Total: 1, Completed: 1, IsAllCompleted: true, UncompletedNames: []string{}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"날짜", "제목", "공개 범위", "완료", "전체", "상태", "미완료 인원"}, rows[0])
	assert.Equal(t, []string{"2024-05-20", "점검", "비공개", "1", "2", "진행중", "김둘"}, rows[1])
	assert.Equal(t, "완료", rows[2][5])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sm-schedules_20240520_093000.xlsx", FileName(time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)))
}

func TestLocalArchiver(t *testing.T) {
	a := NewLocalArchiver(t.TempDir())
	url, err := a.Put(context.Background(), "a.xlsx", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/api/files/a.xlsx", url)

	p, err := a.Open("a.xlsx")
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	for _, bad := range []string{"", "..", "../a.xlsx", "sub/a.xlsx", `a\b`} {
		_, err := a.Open(bad)
		assert.ErrorIs(t, err, ErrNoFile, bad)
	}
	_, err = a.Put(context.Background(), "../escape", nil)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(a.Dir), "escape"))
}

func TestLocalArchiverExpires(t *testing.T) {
	a := &LocalArchiver{Dir: t.TempDir(), TTL: 10 * time.Millisecond}
	_, err := a.Put(context.Background(), "b.xlsx", []byte("x"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := a.Open("b.xlsx")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestNewPicksArchiver(t *testing.T) {
	a, err := New(context.Background(), config.ExportConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalArchiver{}, a)

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	a, err = New(context.Background(), config.ExportConfig{S3Bucket: "exports", S3Prefix: "/sm/", S3Endpoint: "http://127.0.0.1:9000", PathStyle: true})
	require.NoError(t, err)
	s3a, ok := a.(*S3Archiver)
	require.True(t, ok)
	assert.Equal(t, "sm/a.xlsx", s3a.Key("a.xlsx"))
}
