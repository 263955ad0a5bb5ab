// Package scan은 C# 소스 트리에서 저장 프로시저 호출부를 찾아
// 인벤토리 CSV를 만든다. 마이그레이션 영향도 조사용.
package scan

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Call은 프로시저 호출 발견 한 건
type Call struct {
	Form      string // 호출한 폼/클래스 구분
	Procedure string
	File      string // 루트 기준 상대 경로
	Line      int
	Pattern   string // DataTable, DataSet, DataReader, ExecuteNonQuery, ExecuteScalar, Unknown
}

// Scanner는 접두사가 붙은 프로시저명 문자열 리터럴을 찾는다.
type Scanner struct {
	prefix string
	procRe *regexp.Regexp
}

// 호출 패턴 판별: 프로시저명이 보인 줄에서 호출 메서드를 찾는다
var callPatterns = []struct {
	marker  string
	pattern string
}{
	{".DataTable(", "DataTable"},
	{".DataSet(", "DataSet"},
	{".DataReader(", "DataReader"},
	{".ExecuteNonQuery(", "ExecuteNonQuery"},
	{".ExecuteScalar(", "ExecuteScalar"},
}

func NewScanner(prefix string) *Scanner {
	// "UP_NBOGUN_..." 처럼 따옴표 안의 프로시저명만 잡는다
	re := regexp.MustCompile(`["']` + regexp.QuoteMeta(prefix) + `(\w+)["']`)
	return &Scanner{prefix: prefix, procRe: re}
}

// ScanDir은 루트 아래 모든 .cs 파일을 훑어 호출부를 모은다.
// 결과는 (폼, 프로시저명) 순으로 정렬된다.
func (s *Scanner) ScanDir(root string) ([]Call, error) {
	var calls []Call

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// 빌드 산출물은 건너뛴다
			name := d.Name()
			if name == "bin" || name == "obj" || name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".cs") {
			return nil
		}

		found, err := s.scanFile(root, path)
		if err != nil {
			return err
		}
		calls = append(calls, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("소스 트리 스캔 실패: %w", err)
	}

	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Form != calls[j].Form {
			return calls[i].Form < calls[j].Form
		}
		if calls[i].Procedure != calls[j].Procedure {
			return calls[i].Procedure < calls[j].Procedure
		}
		return calls[i].Line < calls[j].Line
	})
	return calls, nil
}

func (s *Scanner) scanFile(root, path string) ([]Call, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	form := classifyForm(path)

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, m := range s.procRe.FindAllStringSubmatch(line, -1) {
			calls = append(calls, Call{
				Form:      form,
				Procedure: s.prefix + m[1],
				File:      filepath.ToSlash(rel),
				Line:      lineNo,
				Pattern:   detectPattern(line),
			})
		}
	}
	return calls, scanner.Err()
}

func detectPattern(line string) string {
	for _, p := range callPatterns {
		if strings.Contains(line, p.marker) {
			return p.pattern
		}
	}
	return "Unknown"
}

// classifyForm은 파일명으로 호출 주체를 구분한다.
// frm*.cs는 화면, Biz 계층 파일은 공통 모듈, 나머지는 경로로 표시.
func classifyForm(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	switch {
	case strings.HasPrefix(name, "frm"), strings.HasPrefix(name, "Frm"):
		return name
	case strings.HasPrefix(name, "UC_"), strings.HasPrefix(name, "uc"):
		return name
	case strings.Contains(name, "Biz"):
		return "Common(" + base + ")"
	default:
		return "Other(" + base + ")"
	}
}

// WriteCSV는 호출 목록을 UTF-8 BOM CSV로 쓴다 (엑셀 호환).
func WriteCSV(path string, calls []Call) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSV 파일 생성 실패: %w", err)
	}
	defer f.Close()

	// 엑셀이 UTF-8로 열도록 BOM을 먼저 쓴다
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"폼명", "프로시저명", "파일경로", "라인번호", "호출패턴"}); err != nil {
		return err
	}
	for _, c := range calls {
		if err := w.Write([]string{c.Form, c.Procedure, c.File, fmt.Sprintf("%d", c.Line), c.Pattern}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Summarize는 프로시저별 호출 횟수를 이름순으로 돌려준다 (콘솔 요약용).
func Summarize(calls []Call) []struct {
	Procedure string
	Count     int
} {
	counts := make(map[string]int)
	for _, c := range calls {
		counts[c.Procedure]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]struct {
		Procedure string
		Count     int
	}, 0, len(names))
	for _, name := range names {
		out = append(out, struct {
			Procedure string
			Count     int
		}{name, counts[name]})
	}
	return out
}
