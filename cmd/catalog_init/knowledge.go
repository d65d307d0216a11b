package main

import (
	"context"

	"github.com/ninnin76-design/sm-manager/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

func initKnowledge(ctx context.Context, client *sdk.RawClient) error {
	knowledges := []sdk.NL2SQLKnowledgeCreateRequest{
		{Type: "glossary", Key: "일정", Value: []string{"schedule_records 의 schedule_id 하나가 일정 하나이며, 그날 팀원 전원의 업무 기록을 묶는다"}},
		{Type: "glossary", Key: "미완료", Value: []string{"schedule_records.completed = 0 인 기록"}},
		{Type: "glossary", Key: "그룹", Value: []string{"members.team, 화성병점 또는 오산중앙 같은 구역 그룹"}},

		{Type: "synonyms", Key: "이름/누구/팀원/인원", Value: []string{"팀원 이름"}, AssociateTables: []string{"schedule_records,person_name"}},
		{Type: "synonyms", Key: "날짜/언제/며칠", Value: []string{"일정 날짜"}, AssociateTables: []string{"schedule_records,schedule_date"}},
		{Type: "synonyms", Key: "비고/메모/특이사항", Value: []string{"업무 비고"}, AssociateTables: []string{"schedule_records,remarks"}},

		{Type: "logic", Key: "완료율은 completed 합계 / 기록 수 * 100 을 반올림한다", Value: []string{"ROUND(SUM(completed) * 100 / COUNT(*))"}},
		{Type: "logic", Key: "같은 schedule_id 의 최신 기록만 유효하다. synced_at 이 가장 큰 행을 사용한다", Value: []string{"동기화는 추가 방식"}},

		{Type: "case_library", Key: "오늘 미완료 인원은 누구야", Value: []string{"SELECT DISTINCT person_name, team FROM schedule_records WHERE schedule_date = CURDATE() AND completed = 0"}},
		{Type: "case_library", Key: "이번 주 그룹별 완료율", Value: []string{"SELECT team, ROUND(SUM(completed) * 100 / COUNT(*)) AS rate FROM schedule_records WHERE schedule_date >= DATE_SUB(CURDATE(), INTERVAL WEEKDAY(CURDATE()) DAY) GROUP BY team"}},
	}

	for _, k := range knowledges {
		resp, err := client.CreateKnowledge(ctx, &k)
		if err != nil {
			if isDuplicate(err) {
				logger.Info("knowledge: already exists, skipping", "type", k.Type, "key", k.Key)
				continue
			}
			return err
		}
		logger.Info("knowledge: created", "type", k.Type, "key", k.Key, "id", resp.ID)
	}
	return nil
}
