package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

func proxyService(t *testing.T, handler http.HandlerFunc) *AIService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.AI.Provider = ProviderProxy
	cfg.MOI.BaseURL = srv.URL
	cfg.MOI.APIKey = "moi-test"
	return NewAIService(cfg)
}

func TestReportPrompt(t *testing.T) {
	members := model.DefaultRoster()[:2]
	prompt := ReportPrompt("2024-05-20 (점검)", members, map[string]model.TaskRecord{
		"h_1": {Completed: true, Remarks: "조기 완료"},
	})
	assert.Contains(t, prompt, "다음은 2024-05-20 (점검)의 팀 업무 현황 리스트입니다.")
	assert.Contains(t, prompt, "- [화성병점] 김하나: 완료 (비고: 조기 완료)\n- [화성병점] 김둘: 미완료\n")
}

func TestReportMissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.AI.APIKey = ""
	svc := NewAIService(cfg)
	got := svc.GenerateDailyReport(context.Background(), "t", model.DefaultRoster(), nil)
	assert.Equal(t, ReportMissingKey, got)
}

func TestReportViaProxy(t *testing.T) {
	svc := proxyService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/llm-proxy/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "moi-test", r.Header.Get("moi-key"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen-plus", body.Model)
		if assert.Len(t, body.Messages, 1) {
			assert.True(t, strings.Contains(body.Messages[0].Content, "김하나"))
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"전원 완료했어요."}}]}`))
	})
	got := svc.GenerateDailyReport(context.Background(), "2024-05-20", model.DefaultRoster(), nil)
	assert.Equal(t, "전원 완료했어요.", got)
}

func TestReportFallbacks(t *testing.T) {
	failing := proxyService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	assert.Equal(t, ReportFailed, failing.GenerateDailyReport(context.Background(), "t", nil, nil))

	empty := proxyService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})
	assert.Equal(t, ReportEmpty, empty.GenerateDailyReport(context.Background(), "t", nil, nil))
}
