// Package report는 매핑 결과를 Excel/CSV 보고서로 만든다.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"proc-mapper/internal/mapping"
)

// Param은 설명 시트의 파라미터 한 행
type Param struct {
	Name string
	Type string
}

// Section은 입력 또는 출력 시트 하나의 내용
type Section struct {
	Tables  []mapping.TableRecord
	Columns []mapping.ColumnRecord
}

// Report는 프로시저 하나의 보고서 전체
type Report struct {
	ProcName    string
	Description string
	Params      []Param
	Input       Section
	Output      Section
}

// Writer는 출력 디렉터리에 보고서 파일을 쓴다.
// Excel은 <dir>/excel, CSV는 <dir>/csv 밑에 나뉘어 들어간다.
type Writer struct {
	excelDir string
	csvDir   string
}

func NewWriter(dir string) (*Writer, error) {
	excelDir := filepath.Join(dir, "excel")
	csvDir := filepath.Join(dir, "csv")
	for _, d := range []string{excelDir, csvDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("출력 디렉터리 생성 실패 (%s): %w", d, err)
		}
	}
	return &Writer{excelDir: excelDir, csvDir: csvDir}, nil
}

// 테이블 행 렌더링: 기존 테이블 영문명 | 신규 테이블 한글명 | 신규 테이블 영문명 | 접근 | 매핑여부
func tableRow(r mapping.TableRecord) []string {
	return []string{r.Legacy, r.NewKor, r.NewEng, r.Access, mappedMark(r.Mapped())}
}

// 컬럼 행 렌더링 (11칸)
func columnRow(r mapping.ColumnRecord) []string {
	return []string{
		r.LegacyTable, r.LegacyColumn,
		r.TableKor, r.TableEng,
		r.ColumnKor, r.ColumnEng,
		r.DataType, r.Length,
		r.PK, r.FK,
		mappedMark(r.Mapped()),
	}
}

func mappedMark(mapped bool) string {
	if mapped {
		return "O"
	}
	return ""
}

var tableHeaders = []string{
	"기존 테이블 영문명", "신규 테이블 한글명", "신규 테이블 영문명", "접근", "매핑여부",
}

var columnHeaders = []string{
	"기존 테이블 영문명", "기존 항목 영문명",
	"신규 테이블 한글명", "신규 테이블 영문명",
	"신규 항목 한글명", "신규 항목 영문명",
	"유형", "길이", "PK", "FK", "매핑여부",
}
