// Package engine은 파서 결과와 LLM 분석을 합쳐
// 매핑표 조회로 최종 보고서 레코드를 만든다.
package engine

import (
	"fmt"
	"strings"

	"proc-mapper/internal/gemini"
	"proc-mapper/internal/mapping"
	"proc-mapper/internal/sqlparse"
)

// Lookup은 매핑표 조회 인터페이스. 매핑 없음은 (nil, nil)이다.
type Lookup interface {
	LookupTable(name string) (*mapping.TableRecord, error)
	LookupColumn(table, column string) (*mapping.ColumnRecord, error)
}

// Param은 보고서에 실리는 파라미터
type Param struct {
	Name string
	Type string
}

// Result는 프로시저 하나의 해석 완료 결과
type Result struct {
	ProcName    string
	Description string
	Analyzed    bool // LLM 분석 성공 여부
	Params      []Param

	InputTables   []mapping.TableRecord
	OutputTables  []mapping.TableRecord
	InputColumns  []mapping.ColumnRecord
	OutputColumns []mapping.ColumnRecord

	Unmapped     []string // 매핑표에 없던 식별자 (요약용)
	LookupErrors []string // 조회 중 DB 오류 (비치명, 해당 행은 매핑없음 처리)
}

type resolver struct {
	store    Lookup
	aliasMap map[string]string // UPPER(별칭) → 실제 테이블명
	derived  map[string]bool   // UPPER(이름/별칭) → 인라인 뷰 여부
	access   map[string]string // UPPER(테이블명) → 접근 표기
	soleReal string            // 실제 테이블이 하나뿐이면 그 이름 (무한정 컬럼 귀속용)
	result   *Result
}

// Resolve는 해석의 단일 진입점. analysis가 nil이면 파서 결과만으로 진행한다.
func Resolve(parsed *sqlparse.Result, analysis *gemini.Analysis, store Lookup) *Result {
	r := &resolver{
		store:    store,
		aliasMap: make(map[string]string),
		derived:  make(map[string]bool),
		access:   make(map[string]string),
		result:   &Result{ProcName: parsed.ProcName},
	}

	r.buildContext(parsed, analysis)

	// 컬럼 스트림: 분석기 우선, 파서 결과를 뒤에 합친다 (중복은 키로 제거)
	inputs := columnStream(analysis, parsed, true)
	outputs := columnStream(analysis, parsed, false)

	inTables, inCols := r.resolveSection(inputs)
	outTables, outCols := r.resolveSection(outputs)

	// 어느 컬럼도 건드리지 않은 테이블은 출력 시트 테이블 구역에 싣는다
	touched := make(map[string]bool)
	for _, t := range append(append([]mapping.TableRecord{}, inTables...), outTables...) {
		touched[strings.ToUpper(t.Legacy)] = true
	}
	outTables = r.appendUntouched(outTables, parsed, analysis, touched)

	r.result.InputTables = inTables
	r.result.OutputTables = outTables
	r.result.InputColumns = inCols
	r.result.OutputColumns = outCols

	r.fillHeader(parsed, analysis)
	return r.result
}

// buildContext는 별칭 맵, 인라인 뷰 집합, 접근 표기를 모은다.
// 분석기의 별칭 해석이 파서보다 우선한다.
func (r *resolver) buildContext(parsed *sqlparse.Result, analysis *gemini.Analysis) {
	for alias, name := range parsed.AliasMap {
		r.aliasMap[strings.ToUpper(alias)] = name
	}

	realCount := 0
	for _, t := range parsed.Tables {
		key := strings.ToUpper(t.Name)
		r.access[key] = t.Access.String()
		if !t.Temp {
			realCount++
			r.soleReal = t.Name
		}
	}
	if realCount != 1 {
		r.soleReal = ""
	}

	if analysis == nil {
		return
	}
	for _, t := range analysis.Tables {
		name := cleanIdent(t.Name)
		if name == "" {
			continue
		}
		r.aliasMap[strings.ToUpper(name)] = name
		if t.Alias != "" {
			r.aliasMap[strings.ToUpper(t.Alias)] = name
		}
		if t.IsDerived {
			r.derived[strings.ToUpper(name)] = true
			if t.Alias != "" {
				r.derived[strings.ToUpper(t.Alias)] = true
			}
		}
	}
}

// columnStream은 분석기 컬럼 뒤에 파서 컬럼을 덧붙인 통합 스트림을 만든다.
func columnStream(analysis *gemini.Analysis, parsed *sqlparse.Result, input bool) []gemini.ColumnUse {
	var stream []gemini.ColumnUse
	if analysis != nil {
		if input {
			stream = append(stream, analysis.InputColumns...)
		} else {
			stream = append(stream, analysis.OutputColumns...)
		}
	}
	if input {
		for _, c := range parsed.WhereCols {
			stream = append(stream, gemini.ColumnUse{Table: c.Table, Column: c.Column, Parameter: c.Parameter})
		}
	} else {
		for _, c := range parsed.SelectCols {
			stream = append(stream, gemini.ColumnUse{Table: c.Table, Column: c.Column})
		}
	}
	return stream
}

// resolveSection은 컬럼 스트림 하나를 테이블/컬럼 레코드로 바꾼다.
// 중복 제거 기준은 매핑된 경우 신규명, 아니면 기존명이다.
func (r *resolver) resolveSection(stream []gemini.ColumnUse) ([]mapping.TableRecord, []mapping.ColumnRecord) {
	var cols []mapping.ColumnRecord
	seenCols := make(map[string]bool)

	var realNames, derivedNames, tempNames []string
	seenTables := make(map[string]bool)

	touchTable := func(list *[]string, name string) {
		key := strings.ToUpper(name)
		if name == "" || seenTables[key] {
			return
		}
		seenTables[key] = true
		*list = append(*list, name)
	}

	for _, use := range stream {
		tbl := cleanIdent(use.Table)
		col := cleanIdent(use.Column)

		orig := tbl
		if real, ok := r.aliasMap[strings.ToUpper(tbl)]; ok && tbl != "" {
			orig = real
		}
		if orig == "" && r.soleReal != "" {
			orig = r.soleReal
		}

		isTemp := strings.HasPrefix(orig, "#") || strings.HasPrefix(orig, "@")
		isDerived := use.IsDerived || r.derived[strings.ToUpper(tbl)] || r.derived[strings.ToUpper(orig)]

		// *는 테이블 사용 근거로만 남기고 컬럼 행은 만들지 않는다
		if col == "*" {
			switch {
			case isTemp:
				touchTable(&tempNames, orig)
			case isDerived:
				touchTable(&derivedNames, firstNonEmpty(tbl, orig))
			default:
				touchTable(&realNames, orig)
			}
			continue
		}
		if col == "" {
			continue
		}

		var rec mapping.ColumnRecord
		switch {
		case isTemp:
			touchTable(&tempNames, orig)
			rec = mapping.NewTempColumn(orig, col)
		case isDerived:
			alias := firstNonEmpty(tbl, orig)
			touchTable(&derivedNames, alias)
			rec = mapping.NewDerivedColumn(alias, col)
		default:
			touchTable(&realNames, orig)
			rec = r.lookupColumn(orig, col)
		}

		key := dedupKey(rec)
		if seenCols[key] {
			continue
		}
		seenCols[key] = true
		cols = append(cols, rec)
	}

	var tables []mapping.TableRecord
	for _, name := range realNames {
		tables = append(tables, r.lookupTable(name))
	}
	for _, alias := range derivedNames {
		tables = append(tables, mapping.NewDerivedTable(alias))
	}
	for _, name := range tempNames {
		tables = append(tables, mapping.NewTempTable(name, r.access[strings.ToUpper(name)]))
	}
	return tables, cols
}

func (r *resolver) lookupColumn(table, col string) mapping.ColumnRecord {
	found, err := r.store.LookupColumn(table, col)
	if err != nil {
		r.result.LookupErrors = append(r.result.LookupErrors, err.Error())
		return mapping.NewUnmappedColumn(table, col)
	}
	if found == nil {
		r.result.Unmapped = append(r.result.Unmapped, table+"."+col)
		return mapping.NewUnmappedColumn(table, col)
	}
	return *found
}

func (r *resolver) lookupTable(name string) mapping.TableRecord {
	access := r.access[strings.ToUpper(name)]
	found, err := r.store.LookupTable(name)
	if err != nil {
		r.result.LookupErrors = append(r.result.LookupErrors, err.Error())
		return mapping.NewUnmappedTable(name, access)
	}
	if found == nil {
		r.result.Unmapped = append(r.result.Unmapped, name)
		return mapping.NewUnmappedTable(name, access)
	}
	rec := *found
	rec.Access = access
	return rec
}

// appendUntouched는 파서/분석기가 본 테이블 중 컬럼 스트림이
// 건드리지 않은 것을 출력 테이블 구역에 덧붙인다.
func (r *resolver) appendUntouched(out []mapping.TableRecord, parsed *sqlparse.Result, analysis *gemini.Analysis, touched map[string]bool) []mapping.TableRecord {
	add := func(name string, temp, derived bool) {
		key := strings.ToUpper(name)
		if name == "" || touched[key] {
			return
		}
		touched[key] = true
		switch {
		case temp:
			out = append(out, mapping.NewTempTable(name, r.access[key]))
		case derived:
			out = append(out, mapping.NewDerivedTable(name))
		default:
			out = append(out, r.lookupTable(name))
		}
	}

	for _, t := range parsed.Tables {
		add(t.Name, t.Temp, false)
	}
	if analysis != nil {
		for _, t := range analysis.Tables {
			name := cleanIdent(t.Name)
			add(name, strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@"), t.IsDerived)
		}
	}
	return out
}

func (r *resolver) fillHeader(parsed *sqlparse.Result, analysis *gemini.Analysis) {
	if analysis != nil {
		r.result.Analyzed = true
		r.result.Description = analysis.Description
		for _, p := range analysis.Parameters {
			r.result.Params = append(r.result.Params, Param{Name: p.Name, Type: p.Type})
		}
		if len(r.result.Params) > 0 {
			return
		}
	} else {
		r.result.Description = "(분석 실패)"
	}
	for _, p := range parsed.Params {
		name := p.Name
		typ := p.DataType
		if p.Output {
			typ += " OUTPUT"
		}
		if p.Default != "" {
			typ = fmt.Sprintf("%s (기본값 %s)", typ, p.Default)
		}
		r.result.Params = append(r.result.Params, Param{Name: name, Type: typ})
	}
}

// dedupKey는 매핑된 레코드는 신규 (테이블, 컬럼)으로,
// 아니면 기존 (테이블, 컬럼)으로 중복을 판정한다.
func dedupKey(rec mapping.ColumnRecord) string {
	if rec.TableEng != "" && rec.ColumnEng != "" {
		return strings.ToUpper(rec.TableEng + "|" + rec.ColumnEng)
	}
	return strings.ToUpper(rec.LegacyTable + "|" + rec.LegacyColumn)
}

// cleanIdent는 대괄호와 dbo. 접두사를 벗긴다 (LLM 응답 방어용)
func cleanIdent(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
