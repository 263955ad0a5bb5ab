package sqlparse_test

import (
	"strings"
	"testing"

	"proc-mapper/internal/sqlparse"
)

// 방문 조회 프로시저를 본뜬 기본 케이스
const basicProc = `
CREATE PROCEDURE UP_NBOGUN_VISIT_SELECT
    @AGENCY_CD VARCHAR(8),
    @FROM_DT VARCHAR(8) = '20240101',
    @TOTAL_CNT INT OUTPUT
AS
BEGIN
    SELECT A.JUMIN_NO, A.VISIT_DT, A.STATUS_CD
    FROM dbo.VISIT A WITH (NOLOCK)
    WHERE A.AGENCY_CD = @AGENCY_CD
      AND A.VISIT_DT >= @FROM_DT
END
`

func findTable(r *sqlparse.Result, name string) *sqlparse.TableRef {
	for i := range r.Tables {
		if strings.EqualFold(r.Tables[i].Name, name) {
			return &r.Tables[i]
		}
	}
	return nil
}

func TestExtractBasicSelect(t *testing.T) {
	r := sqlparse.Extract(basicProc)

	if r.ProcName != "UP_NBOGUN_VISIT_SELECT" {
		t.Errorf("프로시저명 불일치: got %q", r.ProcName)
	}

	// 스키마 접두사와 대괄호가 벗겨진 테이블명만 남아야 한다
	tbl := findTable(r, "VISIT")
	if tbl == nil {
		t.Fatalf("VISIT 테이블을 찾지 못함: %+v", r.Tables)
	}
	if tbl.Temp {
		t.Error("VISIT이 임시테이블로 분류됨")
	}
	if tbl.Access != sqlparse.AccessRead {
		t.Errorf("접근 모드 불일치: got %v", tbl.Access)
	}
	if r.AliasMap["A"] != "VISIT" {
		t.Errorf("별칭 맵 불일치: %v", r.AliasMap)
	}
}

func TestExtractHintSeparated(t *testing.T) {
	r := sqlparse.Extract(basicProc)

	// 락 힌트는 테이블명을 오염시키지 않고 별도 필드로만 남는다
	tbl := findTable(r, "VISIT")
	if tbl == nil {
		t.Fatal("VISIT 테이블을 찾지 못함")
	}
	if !strings.Contains(tbl.Hint, "NOLOCK") {
		t.Errorf("힌트 캡처 실패: got %q", tbl.Hint)
	}
	for _, tr := range r.Tables {
		if strings.Contains(tr.Name, "NOLOCK") || strings.Contains(tr.Name, "(") {
			t.Errorf("테이블명에 힌트가 섞임: %q", tr.Name)
		}
	}
}

func TestExtractParams(t *testing.T) {
	r := sqlparse.Extract(basicProc)

	if len(r.Params) != 3 {
		t.Fatalf("파라미터 수 불일치: got %d (%+v)", len(r.Params), r.Params)
	}
	if r.Params[0].Name != "@AGENCY_CD" || r.Params[0].DataType != "VARCHAR(8)" {
		t.Errorf("첫 파라미터 불일치: %+v", r.Params[0])
	}
	if r.Params[1].Default != "'20240101'" {
		t.Errorf("기본값 캡처 실패: %+v", r.Params[1])
	}
	if !r.Params[2].Output {
		t.Errorf("OUTPUT 플래그 누락: %+v", r.Params[2])
	}
}

func TestExtractWhereBinding(t *testing.T) {
	r := sqlparse.Extract(basicProc)

	// WHERE 조건의 컬럼 ↔ @파라미터 연결
	found := false
	for _, c := range r.WhereCols {
		if c.Column == "AGENCY_CD" && c.Parameter == "@AGENCY_CD" {
			found = true
		}
	}
	if !found {
		t.Errorf("AGENCY_CD ← @AGENCY_CD 연결 누락: %+v", r.WhereCols)
	}
}

func TestExtractTempTable(t *testing.T) {
	sql := `
CREATE PROCEDURE UP_NBOGUN_TMP_TEST
AS
BEGIN
    SELECT JUMIN_NO INTO #TMP_VISIT FROM VISIT
    SELECT JUMIN_NO FROM #TMP_VISIT
END
`
	r := sqlparse.Extract(sql)

	tbl := findTable(r, "#TMP_VISIT")
	if tbl == nil {
		t.Fatalf("#TMP_VISIT을 찾지 못함: %+v", r.Tables)
	}
	if !tbl.Temp {
		t.Error("#TMP_VISIT이 임시테이블로 분류되지 않음")
	}
	// INTO로 쓰고 FROM으로 읽었으니 병합 결과는 읽기/쓰기
	if tbl.Access != sqlparse.AccessReadWrite {
		t.Errorf("접근 모드 병합 실패: got %v", tbl.Access)
	}
}

func TestExtractAccessMerge(t *testing.T) {
	sql := `
CREATE PROCEDURE UP_NBOGUN_UPD_TEST
AS
BEGIN
    SELECT STATUS_CD FROM VISIT WHERE JUMIN_NO = @JUMIN_NO
    UPDATE VISIT SET STATUS_CD = '2' WHERE JUMIN_NO = @JUMIN_NO
END
`
	r := sqlparse.Extract(sql)

	tbl := findTable(r, "VISIT")
	if tbl == nil {
		t.Fatal("VISIT을 찾지 못함")
	}
	if tbl.Access != sqlparse.AccessReadWrite {
		t.Errorf("읽기+쓰기 병합 실패: got %v", tbl.Access)
	}
	// 같은 테이블은 한 번만 나와야 한다
	count := 0
	for _, tr := range r.Tables {
		if strings.EqualFold(tr.Name, "VISIT") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("테이블 중복: %d번 등장", count)
	}
}

func TestExtractBranchLabels(t *testing.T) {
	sql := `
CREATE PROCEDURE UP_NBOGUN_BRANCH_TEST
    @GUBUN CHAR(1)
AS
BEGIN
    IF @GUBUN = '1'
        SELECT JUMIN_NO FROM VISIT
    ELSE
        SELECT JUMIN_NO FROM PATIENT
END
`
	r := sqlparse.Extract(sql)

	if len(r.Branches) < 2 {
		t.Fatalf("분기 라벨 수 부족: %v", r.Branches)
	}
	if r.Branches[len(r.Branches)-1] != "ELSE" {
		t.Errorf("ELSE 분기 라벨 누락: %v", r.Branches)
	}
	if findTable(r, "VISIT") == nil || findTable(r, "PATIENT") == nil {
		t.Errorf("분기 내 테이블 누락: %+v", r.Tables)
	}
}

func TestExtractFallbackRegex(t *testing.T) {
	// AST가 해석할 수 없는 입력이라도 FROM/JOIN 정규식으로 테이블은 건진다
	sql := `-- 형식이 깨진 조각
ALTER SOMETHING BROKEN
SELECT X FROM TB_PATIENT P JOIN TB_AGENCY ON 1=1 WHERE P.AGENCY_CD = @CD
`
	r := sqlparse.Extract(sql)

	if findTable(r, "TB_PATIENT") == nil {
		t.Errorf("폴백이 TB_PATIENT를 놓침: %+v", r.Tables)
	}
	if findTable(r, "TB_AGENCY") == nil {
		t.Errorf("폴백이 TB_AGENCY를 놓침: %+v", r.Tables)
	}
}

func TestExtractUnknownProcName(t *testing.T) {
	r := sqlparse.Extract("SELECT 1")
	if r.ProcName != "Unknown" {
		t.Errorf("프로시저 아닌 입력의 이름: got %q", r.ProcName)
	}
}

func TestDigestLayout(t *testing.T) {
	// Digest는 파서 결과만으로 만들어지므로 직접 구성해 검증한다
	r := &sqlparse.Result{
		ProcName: "UP_NBOGUN_VISIT_SELECT",
		Params: []sqlparse.Param{
			{Name: "@AGENCY_CD", DataType: "VARCHAR(8)"},
		},
		Tables: []sqlparse.TableRef{
			{Name: "VISIT", Alias: "A", Access: sqlparse.AccessRead, Hint: "NOLOCK"},
			{Name: "#TMP", Temp: true, Access: sqlparse.AccessWrite},
		},
		SelectCols: []sqlparse.ColumnRef{
			{Table: "A", Column: "JUMIN_NO"},
			{Table: "A", Column: "VISIT_DT", Branch: "@GUBUN = '1'"},
		},
		WhereCols: []sqlparse.ColumnRef{
			{Table: "A", Column: "AGENCY_CD", Parameter: "@AGENCY_CD"},
		},
	}

	d := sqlparse.Digest(r)

	for _, want := range []string{
		"## SQL 파서 전처리 결과",
		"### 프로시저명: UP_NBOGUN_VISIT_SELECT",
		"- @AGENCY_CD: VARCHAR(8)",
		"- VISIT (별칭: A)",
		"[임시테이블]",
		"[힌트: NOLOCK]",
		"**[기본]**",
		"**[@GUBUN = '1']**",
		"- A.AGENCY_CD ← @AGENCY_CD",
	} {
		if !strings.Contains(d, want) {
			t.Errorf("요약에 %q 누락:\n%s", want, d)
		}
	}
}
