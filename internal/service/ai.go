package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/model"
)

const (
	ReportMissingKey = "API Key is missing. Cannot generate report."
	ReportEmpty      = "리포트를 생성할 수 없습니다."
	ReportFailed     = "AI 분석 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."

	ProviderGemini = "gemini"
	ProviderProxy  = "proxy"

	aiTimeout = 60 * time.Second
)

type AIService struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *http.Client
	genai    *genai.Client
}

// NewAIService builds the report writer for cfg.AI.Provider. Without a key every
// report is the missing-key message.
func NewAIService(cfg *config.Config) *AIService {
	s := &AIService{
		provider: cfg.AI.Provider,
		model:    cfg.AI.Model,
		apiKey:   cfg.AIKey(),
		baseURL:  strings.TrimRight(cfg.MOI.BaseURL, "/"),
		client:   &http.Client{Timeout: aiTimeout},
	}
	if s.provider == ProviderProxy && (s.model == "" || strings.HasPrefix(s.model, "gemini")) {
		s.model = "qwen-plus"
	}
	if s.provider != ProviderProxy && s.apiKey != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  s.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			logger.Error("genai client init failed", "err", err)
		} else {
			s.genai = client
		}
	}
	return s
}

// GenerateDailyReport never fails: transport problems come back as a fixed message.
func (s *AIService) GenerateDailyReport(ctx context.Context, title string, members []model.Person, records map[string]model.TaskRecord) string {
	if s.apiKey == "" {
		metrics.AIReport(s.provider, "missing_key")
		return ReportMissingKey
	}
	ctx, cancel := context.WithTimeout(ctx, aiTimeout)
	defer cancel()

	var (
		text string
		err  error
	)
	prompt := ReportPrompt(title, members, records)
	if s.provider == ProviderProxy {
		text, err = s.chat(ctx, prompt)
	} else {
		text, err = s.generate(ctx, prompt)
	}
	if err != nil {
		logger.Error("ai report failed", "provider", s.provider, "err", err)
		metrics.AIReport(s.provider, "error")
		return ReportFailed
	}
	if strings.TrimSpace(text) == "" {
		metrics.AIReport(s.provider, "empty")
		return ReportEmpty
	}
	metrics.AIReport(s.provider, "ok")
	return text
}

// ReportPrompt lists every member with their status and asks for a plain-text briefing.
func ReportPrompt(title string, members []model.Person, records map[string]model.TaskRecord) string {
	var lines []string
	for _, p := range members {
		r := records[p.ID]
		status := "미완료"
		if r.Completed {
			status = "완료"
		}
		line := fmt.Sprintf("- [%s] %s: %s", p.Group, p.Name, status)
		if r.Remarks != "" {
			line += fmt.Sprintf(" (비고: %s)", r.Remarks)
		}
		lines = append(lines, line)
	}
	return fmt.Sprintf(`다음은 %s의 팀 업무 현황 리스트입니다.
이 데이터를 바탕으로 간단하고 명확한 일일 브리핑 보고서를 작성해주세요.

데이터:
%s

요구사항:
1. 전체 완료율을 언급하세요.
2. 미완료된 인원이 있다면 그룹별로 정리해서 알려주세요.
3. 특이사항(비고)이 있는 인원에 대해 요약해주세요.
4. 한국어로 정중한 어조(해요체)를 사용해주세요.
5. Markdown 포맷을 사용하지 말고 일반 텍스트로 주세요.`, title, strings.Join(lines, "\n"))
}

func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	if s.genai == nil {
		return "", fmt.Errorf("genai client not initialized")
	}
	resp, err := s.genai.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// chat calls the OpenAI-compatible llm-proxy.
func (s *AIService) chat(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  s.model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/llm-proxy/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("moi-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}
