package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"proc-mapper/internal/gemini"
)

const fencedResponse = "```json\n" + `{
  "description": "방문 이력을 조회한다.",
  "parameters": [{"name": "@AGENCY_CD", "type": "VARCHAR(8)"}],
  "input_columns": [{"table": "VISIT", "column": "AGENCY_CD", "parameter": "@AGENCY_CD", "is_derived": false}],
  "output_columns": [{"table": "VISIT", "column": "JUMIN_NO", "is_derived": false}],
  "tables": [{"name": "VISIT", "alias": "A", "is_derived": false}]
}` + "\n```"

func candidateJSON(text string) string {
	// generateContent 응답 골격
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return `{"candidates":[{"content":{"parts":[{"text":"` + escaped + `"}]}}]}`
}

func newClient(t *testing.T, baseURL string) *gemini.Client {
	t.Helper()
	c, err := gemini.NewClient(gemini.Config{
		Model:      "gemini-2.0-flash",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		BaseURL:    baseURL,
	})
	if err != nil {
		t.Fatalf("클라이언트 생성 실패: %v", err)
	}
	return c
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY_1", "key-one")
	t.Setenv("GEMINI_API_KEY_2", "")
	t.Setenv("GEMINI_API_KEY", "")

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(candidateJSON(fencedResponse)))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	a, err := c.Analyze(context.Background(), "CREATE PROC ...", "## 요약")
	if err != nil {
		t.Fatalf("분석 실패: %v", err)
	}

	if gotKey != "key-one" {
		t.Errorf("API 키 헤더 불일치: got %q", gotKey)
	}
	if a.Description != "방문 이력을 조회한다." {
		t.Errorf("설명 불일치: %q", a.Description)
	}
	if len(a.InputColumns) != 1 || a.InputColumns[0].Parameter != "@AGENCY_CD" {
		t.Errorf("입력 컬럼 해석 실패: %+v", a.InputColumns)
	}
	if len(a.Tables) != 1 || a.Tables[0].Alias != "A" {
		t.Errorf("테이블 해석 실패: %+v", a.Tables)
	}
	if a.RawResponse == "" {
		t.Error("원문 응답이 보존되지 않음")
	}
}

func TestAnalyzeRotatesKeyOnQuota(t *testing.T) {
	t.Setenv("GEMINI_API_KEY_1", "key-one")
	t.Setenv("GEMINI_API_KEY_2", "key-two")

	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-goog-api-key")
		keys = append(keys, key)
		if key == "key-one" {
			// 첫 키는 쿼터 초과
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		w.Write([]byte(candidateJSON(fencedResponse)))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	a, err := c.Analyze(context.Background(), "CREATE PROC ...", "")
	if err != nil {
		t.Fatalf("키 전환 후에도 실패: %v", err)
	}
	if a.Description == "" {
		t.Error("전환된 키의 응답이 비어 있음")
	}
	if len(keys) < 2 || keys[len(keys)-1] != "key-two" {
		t.Errorf("키 전환 순서 이상: %v", keys)
	}
}

func TestAnalyzeAllKeysExhausted(t *testing.T) {
	t.Setenv("GEMINI_API_KEY_1", "key-one")
	t.Setenv("GEMINI_API_KEY_2", "key-two")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded"}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Analyze(context.Background(), "CREATE PROC ...", "")
	if err == nil {
		t.Fatal("모든 키 소진 시 에러가 나야 함")
	}
	if !strings.Contains(err.Error(), "Gemini 분석 실패") {
		t.Errorf("에러 메시지 불일치: %v", err)
	}
}

func TestAnalyzeRetriesServerError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY_1", "key-one")
	t.Setenv("GEMINI_API_KEY_2", "")

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"internal"}}`))
			return
		}
		w.Write([]byte(candidateJSON(fencedResponse)))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	if _, err := c.Analyze(context.Background(), "CREATE PROC ...", ""); err != nil {
		t.Fatalf("5xx 재시도 후에도 실패: %v", err)
	}
	if calls != 2 {
		t.Errorf("재시도 횟수 이상: %d", calls)
	}
}

func TestNewClientWithoutKeys(t *testing.T) {
	for i := 1; i <= 9; i++ {
		t.Setenv("GEMINI_API_KEY_"+string(rune('0'+i)), "")
	}
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := gemini.NewClient(gemini.Config{}); err == nil {
		t.Fatal("키가 없으면 에러가 나야 함")
	}
}
