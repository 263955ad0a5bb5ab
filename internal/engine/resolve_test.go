package engine_test

import (
	"strings"
	"testing"

	"proc-mapper/internal/engine"
	"proc-mapper/internal/gemini"
	"proc-mapper/internal/mapping"
	"proc-mapper/internal/sqlparse"
)

// fakeStore는 메모리 매핑표. 조회 횟수를 세어 임시테이블 조회 금지를 검증한다.
type fakeStore struct {
	tables      map[string]mapping.TableRecord
	columns     map[string]mapping.ColumnRecord
	tableCalls  int
	columnCalls int
}

func (f *fakeStore) LookupTable(name string) (*mapping.TableRecord, error) {
	f.tableCalls++
	if rec, ok := f.tables[strings.ToUpper(name)]; ok {
		r := rec
		return &r, nil
	}
	return nil, nil
}

func (f *fakeStore) LookupColumn(table, column string) (*mapping.ColumnRecord, error) {
	f.columnCalls++
	if rec, ok := f.columns[strings.ToUpper(table+"."+column)]; ok {
		r := rec
		return &r, nil
	}
	return nil, nil
}

func visitStore() *fakeStore {
	return &fakeStore{
		tables: map[string]mapping.TableRecord{
			"VISIT": {Legacy: "VISIT", NewKor: "방문", NewEng: "TN_HC_VISIT", Kind: mapping.KindMapped},
		},
		columns: map[string]mapping.ColumnRecord{
			"VISIT.JUMIN_NO": {
				LegacyTable: "VISIT", LegacyColumn: "JUMIN_NO",
				TableKor: "방문", TableEng: "TN_HC_VISIT",
				ColumnKor: "주민등록번호", ColumnEng: "JUMIN_NO",
				DataType: "VARCHAR2", Length: "13", Kind: mapping.KindMapped,
			},
		},
	}
}

// SELECT * FROM dbo.VISIT WITH (NOLOCK): 테이블 행 하나만, 컬럼 행 없음
func TestResolveSelectStar(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_VISIT_ALL",
		Tables: []sqlparse.TableRef{
			{Name: "VISIT", Access: sqlparse.AccessRead, Hint: "NOLOCK"},
		},
		SelectCols: []sqlparse.ColumnRef{{Column: "*"}},
		AliasMap:   map[string]string{"VISIT": "VISIT"},
	}
	store := visitStore()

	r := engine.Resolve(parsed, nil, store)

	if len(r.OutputColumns) != 0 {
		t.Errorf("*는 컬럼 행을 만들면 안 됨: %+v", r.OutputColumns)
	}
	if len(r.OutputTables) != 1 {
		t.Fatalf("출력 테이블 수 불일치: %+v", r.OutputTables)
	}
	tbl := r.OutputTables[0]
	if !tbl.Mapped() || tbl.NewEng != "TN_HC_VISIT" {
		t.Errorf("VISIT 매핑 실패: %+v", tbl)
	}
	if tbl.Access != "읽기" {
		t.Errorf("접근 표기 누락: %+v", tbl)
	}
	// 분석 실패(미시도) 경로의 설명 문구
	if r.Analyzed || r.Description != "(분석 실패)" {
		t.Errorf("파서 단독 경로 표시 불일치: analyzed=%v desc=%q", r.Analyzed, r.Description)
	}
}

// 별칭이 달라도 같은 신규 컬럼이면 한 행으로 합쳐진다
func TestResolveAliasDedup(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_VISIT_SELECT",
		Tables: []sqlparse.TableRef{
			{Name: "VISIT", Alias: "A", Access: sqlparse.AccessRead},
		},
		SelectCols: []sqlparse.ColumnRef{
			{Table: "A", Column: "JUMIN_NO"},
		},
		AliasMap: map[string]string{"A": "VISIT", "VISIT": "VISIT"},
	}
	analysis := &gemini.Analysis{
		Description: "방문 이력을 조회한다.",
		Tables:      []gemini.TableUse{{Name: "VISIT", Alias: "A"}},
		OutputColumns: []gemini.ColumnUse{
			{Table: "VISIT", Column: "JUMIN_NO"},
		},
	}
	store := visitStore()

	r := engine.Resolve(parsed, analysis, store)

	// 분석기 1건 + 파서 1건(별칭 경유) → 신규명 기준 1행
	if len(r.OutputColumns) != 1 {
		t.Fatalf("중복 제거 실패: %+v", r.OutputColumns)
	}
	c := r.OutputColumns[0]
	if c.ColumnEng != "JUMIN_NO" || c.TableEng != "TN_HC_VISIT" {
		t.Errorf("매핑 결과 불일치: %+v", c)
	}
	if !r.Analyzed || r.Description != "방문 이력을 조회한다." {
		t.Errorf("분석 결과 반영 실패: %+v", r)
	}
}

// 임시테이블/인라인 뷰는 매핑표를 조회하지 않는다
func TestResolveTempAndDerivedSkipLookup(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_TMP",
		Tables: []sqlparse.TableRef{
			{Name: "#TMP", Temp: true, Access: sqlparse.AccessReadWrite},
		},
		SelectCols: []sqlparse.ColumnRef{
			{Table: "#TMP", Column: "CNT"},
			{Table: "B", Column: "TOTAL"},
		},
		AliasMap: map[string]string{"#TMP": "#TMP"},
	}
	analysis := &gemini.Analysis{
		Tables: []gemini.TableUse{{Name: "B", IsDerived: true}},
	}
	store := visitStore()

	r := engine.Resolve(parsed, analysis, store)

	if store.columnCalls != 0 {
		t.Errorf("임시/인라인 컬럼에 매핑표 조회 발생: %d회", store.columnCalls)
	}
	if store.tableCalls != 0 {
		t.Errorf("임시/인라인 테이블에 매핑표 조회 발생: %d회", store.tableCalls)
	}

	kinds := map[mapping.Kind]int{}
	for _, c := range r.OutputColumns {
		kinds[c.Kind]++
	}
	if kinds[mapping.KindTemp] != 1 || kinds[mapping.KindDerived] != 1 {
		t.Errorf("분류 불일치: %+v", r.OutputColumns)
	}

	var korMarks []string
	for _, tbl := range r.OutputTables {
		korMarks = append(korMarks, tbl.NewKor)
	}
	joined := strings.Join(korMarks, "|")
	if !strings.Contains(joined, "[임시테이블] #TMP") || !strings.Contains(joined, "[인라인뷰] B") {
		t.Errorf("테이블 표식 누락: %v", korMarks)
	}
}

// 매핑표에 없는 식별자는 공백 행 + 요약 목록에 남는다
func TestResolveUnmapped(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_OLD",
		Tables: []sqlparse.TableRef{
			{Name: "LEGACY_ONLY", Access: sqlparse.AccessRead},
		},
		SelectCols: []sqlparse.ColumnRef{
			{Table: "LEGACY_ONLY", Column: "SOME_COL"},
		},
		AliasMap: map[string]string{"LEGACY_ONLY": "LEGACY_ONLY"},
	}
	store := visitStore()

	r := engine.Resolve(parsed, nil, store)

	if len(r.OutputColumns) != 1 {
		t.Fatalf("컬럼 행 수 불일치: %+v", r.OutputColumns)
	}
	c := r.OutputColumns[0]
	if c.Kind != mapping.KindUnmapped || c.TableEng != "" || c.ColumnEng != "" {
		t.Errorf("매핑없음 행이 비어있지 않음: %+v", c)
	}
	if len(r.Unmapped) == 0 {
		t.Error("매핑없음 요약 누락")
	}
}

// 어떤 컬럼도 건드리지 않은 테이블은 출력 테이블 구역에 실린다
func TestResolveUntouchedTable(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_LOG",
		Tables: []sqlparse.TableRef{
			{Name: "VISIT", Access: sqlparse.AccessWrite},
		},
		AliasMap: map[string]string{"VISIT": "VISIT"},
	}
	store := visitStore()

	r := engine.Resolve(parsed, nil, store)

	if len(r.OutputTables) != 1 || r.OutputTables[0].Legacy != "VISIT" {
		t.Fatalf("미사용 테이블 편입 실패: %+v", r.OutputTables)
	}
	if r.OutputTables[0].Access != "쓰기" {
		t.Errorf("접근 표기 불일치: %+v", r.OutputTables[0])
	}
}

// 분석기가 없으면 파서 파라미터가 보고서에 실린다
func TestResolveParamsFromParser(t *testing.T) {
	parsed := &sqlparse.Result{
		ProcName: "UP_NBOGUN_P",
		Params: []sqlparse.Param{
			{Name: "@CD", DataType: "VARCHAR(8)"},
			{Name: "@CNT", DataType: "INT", Output: true},
		},
		AliasMap: map[string]string{},
	}

	r := engine.Resolve(parsed, nil, visitStore())

	if len(r.Params) != 2 {
		t.Fatalf("파라미터 수 불일치: %+v", r.Params)
	}
	if r.Params[1].Type != "INT OUTPUT" {
		t.Errorf("OUTPUT 표기 누락: %+v", r.Params[1])
	}
}
