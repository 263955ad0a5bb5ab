package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-2.0-flash"
	defaultMaxRetries = 3
	maxOutputTokens   = 8192
)

// Config는 Gemini 클라이언트 설정
type Config struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
	BaseURL    string // 개발/테스트용 엔드포인트 오버라이드
}

// Client는 Gemini REST API 클라이언트.
// GEMINI_API_KEY_1, GEMINI_API_KEY_2, ... 를 순서대로 들고 있다가
// 쿼터 초과(429) 시 다음 키로 넘어간다.
type Client struct {
	httpClient *http.Client
	model      string
	baseURL    string
	keys       []string
	maxRetries int
}

// Analysis는 LLM 분석 결과
type Analysis struct {
	Description   string
	Parameters    []ParamInfo
	InputColumns  []ColumnUse
	OutputColumns []ColumnUse
	Tables        []TableUse
	RawResponse   string
}

// ParamInfo는 프로시저 파라미터 요약
type ParamInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ColumnUse는 입력/출력 컬럼 사용 정보
type ColumnUse struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Parameter string `json:"parameter"`
	IsDerived bool   `json:"is_derived"`
}

// TableUse는 테이블 사용 정보
type TableUse struct {
	Name      string `json:"name"`
	Alias     string `json:"alias"`
	IsDerived bool   `json:"is_derived"`
}

type analysisPayload struct {
	Description   string      `json:"description"`
	Parameters    []ParamInfo `json:"parameters"`
	InputColumns  []ColumnUse `json:"input_columns"`
	OutputColumns []ColumnUse `json:"output_columns"`
	Tables        []TableUse  `json:"tables"`
}

// Gemini REST 요청/응답 형태
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient는 환경 변수에서 API 키를 모아 클라이언트를 만든다.
// GEMINI_API_KEY_1..9를 순서대로 수집하고, 하나도 없으면 GEMINI_API_KEY를 본다.
func NewClient(cfg Config) (*Client, error) {
	var keys []string
	for i := 1; i <= 9; i++ {
		if k := strings.TrimSpace(os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i))); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("Gemini API 키가 없습니다: GEMINI_API_KEY_1 또는 GEMINI_API_KEY 환경 변수를 설정하세요")
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		keys:       keys,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Analyze는 프로시저 원문과 파서 요약을 합쳐 LLM에 보내고 구조화된 분석을 돌려준다.
// 모든 키가 소진되거나 응답을 해석할 수 없으면 에러를 반환한다.
// 호출부는 에러 시 파서 결과만으로 진행한다.
func (c *Client) Analyze(ctx context.Context, sqlText, digest string) (*Analysis, error) {
	prompt := analysisPrompt + "\n" + digest + "\n### 저장 프로시저 원문\n```sql\n" + sqlText + "\n```"

	var lastErr error
	for ki, key := range c.keys {
		text, err := c.generate(ctx, key, prompt)
		if err == nil {
			return parseAnalysis(text)
		}
		lastErr = err
		if isQuotaError(err) && ki < len(c.keys)-1 {
			log.Printf("⚠️  API 키 %d번 쿼터 초과, 다음 키로 전환", ki+1)
			continue
		}
		break
	}
	return nil, fmt.Errorf("Gemini 분석 실패: %w", lastErr)
}

// generate는 한 키로 generateContent를 호출한다.
// 5xx/타임아웃은 지수 백오프로 재시도하고, 429는 즉시 쿼터 에러로 올린다.
func (c *Client) generate(ctx context.Context, apiKey, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     0.1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("요청 직렬화 실패: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			log.Printf("⚠️  Gemini 호출 재시도 %d/%d (%v 대기)", attempt, c.maxRetries, delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return extractText(respBody)
		}

		apiErr := decodeAPIError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || isQuotaError(apiErr) {
			return "", apiErr
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}
		return "", apiErr
	}
	return "", fmt.Errorf("재시도 %d회 모두 실패: %w", c.maxRetries, lastErr)
}

func extractText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("응답 해석 실패: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("응답에 후보가 없습니다")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func decodeAPIError(status int, body []byte) error {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		return fmt.Errorf("API 오류 (HTTP %d): %s", status, resp.Error.Message)
	}
	return fmt.Errorf("API 오류 (HTTP %d)", status)
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}

// calculateBackoff는 1s * 2^(attempt-1)에 ±25% 지터, 상한 30초
func calculateBackoff(attempt int) time.Duration {
	base := time.Second * time.Duration(math.Pow(2, float64(attempt-1)))
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base*3/4 + jitter
}

// parseAnalysis는 모델 응답에서 코드 펜스를 벗기고 JSON을 해석한다.
func parseAnalysis(text string) (*Analysis, error) {
	cleaned := stripFences(text)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("JSON 해석 실패: %w (응답: %s)", err, truncate(cleaned, 200))
	}

	return &Analysis{
		Description:   payload.Description,
		Parameters:    payload.Parameters,
		InputColumns:  payload.InputColumns,
		OutputColumns: payload.OutputColumns,
		Tables:        payload.Tables,
		RawResponse:   text,
	}, nil
}

// stripFences는 ```json ... ``` 감싸기를 제거한다
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
