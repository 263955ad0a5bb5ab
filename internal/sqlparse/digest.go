package sqlparse

import (
	"fmt"
	"strings"
)

// Digest는 파싱 결과를 한국어 구조화 텍스트로 직렬화한다.
// LLM 프롬프트 앞에 붙여 원문 SQL과 교차 검증 자료로 쓰인다.
func Digest(r *Result) string {
	var b strings.Builder

	b.WriteString("## SQL 파서 전처리 결과\n\n")
	fmt.Fprintf(&b, "### 프로시저명: %s\n", r.ProcName)

	if len(r.Params) > 0 {
		b.WriteString("\n### 파라미터\n")
		for _, p := range r.Params {
			fmt.Fprintf(&b, "- %s: %s", p.Name, p.DataType)
			if p.Default != "" {
				fmt.Fprintf(&b, " = %s", p.Default)
			}
			if p.Output {
				b.WriteString(" (OUTPUT)")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Tables) > 0 {
		b.WriteString("\n### 사용 테이블\n")
		for _, t := range r.Tables {
			fmt.Fprintf(&b, "- %s", t.Name)
			if t.Alias != "" {
				fmt.Fprintf(&b, " (별칭: %s)", t.Alias)
			}
			if t.Temp {
				b.WriteString(" [임시테이블]")
			}
			if t.Access != AccessNone {
				fmt.Fprintf(&b, " [%s]", t.Access)
			}
			if t.Hint != "" {
				fmt.Fprintf(&b, " [힌트: %s]", t.Hint)
			}
			b.WriteString("\n")
		}
	}

	if len(r.SelectCols) > 0 {
		b.WriteString("\n### 분기별 출력 컬럼 (SELECT)\n")
		lastBranch := "\x00"
		for _, c := range r.SelectCols {
			if c.Branch != lastBranch {
				lastBranch = c.Branch
				if c.Branch == "" {
					b.WriteString("**[기본]**\n")
				} else {
					fmt.Fprintf(&b, "**[%s]**\n", c.Branch)
				}
			}
			if c.Table != "" {
				fmt.Fprintf(&b, "- %s.%s\n", c.Table, c.Column)
			} else {
				fmt.Fprintf(&b, "- %s\n", c.Column)
			}
		}
	}

	if len(r.WhereCols) > 0 {
		b.WriteString("\n### 입력 컬럼 (WHERE 조건)\n")
		for _, c := range r.WhereCols {
			name := c.Column
			if c.Table != "" {
				name = c.Table + "." + c.Column
			}
			if c.Parameter != "" {
				fmt.Fprintf(&b, "- %s ← %s\n", name, c.Parameter)
			} else {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n### 파서 경고\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
