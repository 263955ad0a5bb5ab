package sqlparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ha1tch/tsqlparser"
	"github.com/ha1tch/tsqlparser/ast"
)

// AccessMode는 테이블 접근 유형 (읽기/쓰기)
type AccessMode int

const (
	AccessNone AccessMode = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "읽기"
	case AccessWrite:
		return "쓰기"
	case AccessReadWrite:
		return "읽기/쓰기"
	}
	return ""
}

func (m AccessMode) merge(other AccessMode) AccessMode {
	if m == AccessNone {
		return other
	}
	if other == AccessNone || m == other {
		return m
	}
	return AccessReadWrite
}

// TableRef는 파싱된 테이블 참조
type TableRef struct {
	Name   string
	Alias  string
	Hint   string // WITH (NOLOCK) 등 락 힌트 (테이블명과 분리 보관)
	Branch string // 소속 분기 (IF 조건 텍스트)
	Temp   bool   // #임시테이블 / @테이블변수
	Access AccessMode
}

// ColumnRef는 파싱된 컬럼 참조
type ColumnRef struct {
	Table     string
	Column    string
	Parameter string // 연관 파라미터 (@xxx, WHERE 컬럼용)
	Branch    string
}

// Param은 프로시저 파라미터
type Param struct {
	Name     string
	DataType string
	Default  string
	Output   bool
}

// Result는 전체 파싱 결과
type Result struct {
	ProcName     string
	Params       []Param
	Tables       []TableRef
	SelectCols   []ColumnRef
	WhereCols    []ColumnRef
	AliasMap     map[string]string // 별칭 → 원본 테이블명
	Branches     []string
	DerivedCount int
	Warnings     []string
}

type extractor struct {
	result   *Result
	branch   string
	tableIdx map[string]int // UPPER(테이블명) → result.Tables 인덱스
}

// Extract는 CREATE PROCEDURE 텍스트에서 테이블/컬럼/파라미터 구조를 추출한다.
// 파싱 실패는 치명적이지 않다: 경고로 수집하고 정규식 폴백으로 넘어간다.
func Extract(sql string) *Result {
	e := &extractor{
		result: &Result{
			AliasMap: make(map[string]string),
		},
		tableIdx: make(map[string]int),
	}

	program, parseErrs := tsqlparser.Parse(sql)
	for _, msg := range parseErrs {
		e.warn("파싱 오류: %s", msg)
	}

	parsed := false
	if program != nil {
		for _, stmt := range program.Statements {
			if cp, ok := stmt.(*ast.CreateProcedureStatement); ok {
				e.result.ProcName = normalizeIdent(cp.Name.String())
				if cp.Body != nil {
					e.walkStatements(cp.Body.Statements)
				}
				parsed = true
				continue
			}
			e.walkStatement(stmt)
			parsed = true
		}
	}

	// AST가 프로시저명을 못 찾으면 정규식으로
	if e.result.ProcName == "" {
		e.result.ProcName = extractProcName(sql)
	}
	if e.result.ProcName == "" {
		e.result.ProcName = "Unknown"
	}

	// 파라미터는 선언부 정규식으로 추출 (기본값/OUTPUT까지 포함)
	e.result.Params = extractParams(sql)

	// AST가 아무것도 못 건졌으면 정규식 폴백
	if !parsed || len(e.result.Tables) == 0 {
		e.fallback(sql)
	}

	// 락 힌트는 원문 스캔으로 테이블별 부착 (추출된 식별자는 힌트와 무관)
	applyHints(sql, e.result)

	return e.result
}

func (e *extractor) warn(format string, args ...interface{}) {
	e.result.Warnings = append(e.result.Warnings, fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------
// Statement 순회
// ---------------------------------------------------------------------

func (e *extractor) walkStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		e.walkStatement(stmt)
	}
}

func (e *extractor) walkStatement(stmt ast.Statement) {
	if stmt == nil {
		return
	}

	switch s := stmt.(type) {
	case *ast.SelectStatement:
		e.walkSelect(s)
	case *ast.InsertStatement:
		e.walkInsert(s)
	case *ast.UpdateStatement:
		e.walkUpdate(s)
	case *ast.DeleteStatement:
		e.walkDelete(s)
	case *ast.MergeStatement:
		e.walkMerge(s)
	case *ast.TruncateTableStatement:
		e.addTable(s.Table.String(), "", AccessWrite)
	case *ast.ExecStatement:
		e.walkExec(s)
	case *ast.DeclareCursorStatement:
		if s.ForSelect != nil {
			e.walkSelect(s.ForSelect)
		}
	case *ast.IfStatement:
		e.walkIf(s)
	case *ast.WhileStatement:
		e.walkCondition(s.Condition)
		if s.Body != nil {
			e.walkStatement(s.Body)
		}
	case *ast.TryCatchStatement:
		if s.TryBlock != nil {
			e.walkStatements(s.TryBlock.Statements)
		}
		if s.CatchBlock != nil {
			e.walkStatements(s.CatchBlock.Statements)
		}
	case *ast.BeginEndBlock:
		e.walkStatements(s.Statements)
	}
}

// walkIf는 IF/ELSE 본문을 조건 텍스트로 라벨링한다.
// ELSE IF 체인은 하위 IfStatement가 자기 조건으로 자연히 라벨링된다.
func (e *extractor) walkIf(s *ast.IfStatement) {
	e.walkCondition(s.Condition)

	prev := e.branch
	label := ""
	if s.Condition != nil {
		label = strings.TrimSpace(s.Condition.String())
	}
	if label != "" {
		e.branch = label
		e.result.Branches = append(e.result.Branches, label)
	}
	if s.Consequence != nil {
		e.walkStatement(s.Consequence)
	}
	e.branch = prev

	if s.Alternative == nil {
		return
	}
	if _, chained := s.Alternative.(*ast.IfStatement); chained {
		e.walkStatement(s.Alternative)
		return
	}
	e.branch = "ELSE"
	e.result.Branches = append(e.result.Branches, "ELSE")
	e.walkStatement(s.Alternative)
	e.branch = prev
}

func (e *extractor) walkSelect(s *ast.SelectStatement) {
	if s == nil {
		return
	}

	if s.From != nil {
		for _, ref := range s.From.Tables {
			e.walkTableRef(ref, AccessRead)
		}
	}

	// SELECT INTO 대상은 쓰기 접근
	if s.Into != nil {
		e.addTable(s.Into.String(), "", AccessWrite)
	}

	for _, col := range s.Columns {
		// @var = expr 할당은 결과셋 컬럼이 아니다
		if col.Variable != nil {
			continue
		}
		if col.AllColumns {
			e.addSelectCol("", "*")
			continue
		}
		e.collectSelectRefs(col.Expression)
	}

	if s.Where != nil {
		e.walkCondition(s.Where)
	}
}

func (e *extractor) walkInsert(s *ast.InsertStatement) {
	e.addTable(s.Table.String(), "", AccessWrite)
	if s.Select != nil {
		e.walkSelect(s.Select)
	}
}

func (e *extractor) walkUpdate(s *ast.UpdateStatement) {
	// UPDATE A SET ... FROM Table A 패턴: FROM을 먼저 걸어 별칭을 채우고
	// 타깃을 별칭 맵으로 해소한다.
	if s.From != nil {
		for _, ref := range s.From.Tables {
			e.walkTableRef(ref, AccessRead)
		}
	}
	target := normalizeIdent(s.Table.String())
	if real, ok := e.result.AliasMap[target]; ok {
		target = real
	}
	e.addTable(target, "", AccessWrite)

	for _, set := range s.SetClauses {
		e.walkCondition(set.Value)
	}
	if s.Where != nil {
		e.walkCondition(s.Where)
	}
}

func (e *extractor) walkDelete(s *ast.DeleteStatement) {
	if s.From != nil {
		for _, ref := range s.From.Tables {
			e.walkTableRef(ref, AccessRead)
		}
	}
	if s.Table != nil {
		target := normalizeIdent(s.Table.String())
		if real, ok := e.result.AliasMap[target]; ok {
			target = real
		}
		e.addTable(target, "", AccessWrite)
	}
	if s.Where != nil {
		e.walkCondition(s.Where)
	}
}

func (e *extractor) walkMerge(s *ast.MergeStatement) {
	alias := ""
	if s.TargetAlias != nil {
		alias = s.TargetAlias.Value
	}
	e.addTable(s.Target.String(), alias, AccessWrite)
	if s.OnCondition != nil {
		e.walkCondition(s.OnCondition)
	}
}

func (e *extractor) walkExec(s *ast.ExecStatement) {
	if s.DynamicSQL != nil {
		e.warn("동적 SQL은 분석하지 않습니다: %s", truncate(s.String(), 80))
		return
	}
	e.warn("중첩 프로시저 호출은 분석하지 않습니다: %s", normalizeIdent(s.Procedure.String()))
}

// ---------------------------------------------------------------------
// 테이블 참조
// ---------------------------------------------------------------------

func (e *extractor) walkTableRef(ref ast.TableReference, access AccessMode) {
	switch t := ref.(type) {
	case *ast.TableName:
		alias := ""
		if t.Alias != nil {
			alias = t.Alias.Value
		}
		e.addTable(t.Name.String(), alias, access)
	case *ast.JoinClause:
		e.walkTableRef(t.Left, access)
		e.walkTableRef(t.Right, access)
		if t.Condition != nil {
			e.walkCondition(t.Condition)
		}
	case *ast.DerivedTable:
		// 인라인 뷰: 이름 붙이기는 분석기 몫, 여기선 개수만 센다
		e.result.DerivedCount++
		if t.Subquery != nil {
			e.walkSelect(t.Subquery)
		}
	}
}

// addTable은 식별자를 정규화(스키마/괄호 제거)하고 UPPER 키로 중복 제거한다.
// 접근 모드는 병합된다 (읽기+쓰기 → 읽기/쓰기).
func (e *extractor) addTable(raw, alias string, access AccessMode) {
	name := normalizeIdent(raw)
	if name == "" {
		return
	}
	if alias != "" && isKeyword(alias) {
		alias = ""
	}

	key := strings.ToUpper(name)
	if idx, ok := e.tableIdx[key]; ok {
		e.result.Tables[idx].Access = e.result.Tables[idx].Access.merge(access)
		if alias != "" && e.result.Tables[idx].Alias == "" {
			e.result.Tables[idx].Alias = alias
		}
	} else {
		e.tableIdx[key] = len(e.result.Tables)
		e.result.Tables = append(e.result.Tables, TableRef{
			Name:   name,
			Alias:  alias,
			Branch: e.branch,
			Temp:   isTempName(name),
			Access: access,
		})
	}

	if alias != "" {
		e.result.AliasMap[alias] = name
	}
	e.result.AliasMap[name] = name
}

// ---------------------------------------------------------------------
// 컬럼 참조
// ---------------------------------------------------------------------

func (e *extractor) addSelectCol(table, column string) {
	e.result.SelectCols = append(e.result.SelectCols, ColumnRef{
		Table:  table,
		Column: column,
		Branch: e.branch,
	})
}

// collectSelectRefs는 결과셋 컬럼 표현식 안의 실제 컬럼 참조를 전부 수집한다.
// CASE 분기, ISNULL/CONVERT 인자, 문자열 연결, 스칼라 서브쿼리까지 내려간다.
func (e *extractor) collectSelectRefs(expr ast.Expression) {
	if expr == nil {
		return
	}

	switch x := expr.(type) {
	case *ast.Identifier:
		e.addSelectCol("", x.Value)
	case *ast.QualifiedIdentifier:
		tbl, col := splitQualified(x.String())
		e.addSelectCol(tbl, col)
	case *ast.Variable:
		// 변수는 컬럼이 아니다
	case *ast.FunctionCall:
		for _, arg := range x.Arguments {
			e.collectSelectRefs(arg)
		}
	case *ast.CastExpression:
		e.collectSelectRefs(x.Expression)
	case *ast.ConvertExpression:
		e.collectSelectRefs(x.Expression)
	case *ast.CaseExpression:
		e.collectSelectRefs(x.Operand)
		for _, when := range x.WhenClauses {
			e.collectSelectRefs(when.Condition)
			e.collectSelectRefs(when.Result)
		}
		e.collectSelectRefs(x.ElseClause)
	case *ast.InfixExpression:
		e.collectSelectRefs(x.Left)
		e.collectSelectRefs(x.Right)
	case *ast.PrefixExpression:
		e.collectSelectRefs(x.Right)
	case *ast.SubqueryExpression:
		// 스칼라 서브쿼리: 내부 SELECT의 원본 테이블/컬럼을 추적
		e.walkSelect(x.Subquery)
	case *ast.ExistsExpression:
		e.walkSelect(x.Subquery)
	}
}

// walkCondition은 WHERE/JOIN/IF 조건에서 @파라미터와 비교되는 컬럼을 수집하고
// 조건 속 서브쿼리도 함께 순회한다.
func (e *extractor) walkCondition(expr ast.Expression) {
	if expr == nil {
		return
	}

	switch x := expr.(type) {
	case *ast.InfixExpression:
		if isComparisonOp(x.Operator) {
			e.bindComparison(x)
		} else {
			e.walkCondition(x.Left)
			e.walkCondition(x.Right)
		}
	case *ast.PrefixExpression:
		e.walkCondition(x.Right)
	case *ast.ExistsExpression:
		e.walkSelect(x.Subquery)
	case *ast.SubqueryExpression:
		e.walkSelect(x.Subquery)
	case *ast.InExpression:
		for _, v := range x.Values {
			if vv, ok := v.(*ast.Variable); ok {
				e.addWhereCol(x.Expr, "@"+strings.TrimPrefix(vv.Name, "@"))
			}
			if sq, ok := v.(*ast.SubqueryExpression); ok {
				e.walkSelect(sq.Subquery)
			}
		}
	case *ast.BetweenExpression:
		// BETWEEN @a AND @b 패턴은 흔치 않아 컬럼만 보존하지 않는다
	case *ast.LikeExpression:
	case *ast.IsNullExpression:
	}
}

// bindComparison은 col = @param (양방향) 비교를 입력 컬럼으로 기록한다.
func (e *extractor) bindComparison(x *ast.InfixExpression) {
	leftVar, leftIsVar := x.Left.(*ast.Variable)
	rightVar, rightIsVar := x.Right.(*ast.Variable)

	switch {
	case rightIsVar && isColumnExpr(x.Left):
		e.addWhereCol(x.Left, "@"+strings.TrimPrefix(rightVar.Name, "@"))
	case leftIsVar && isColumnExpr(x.Right):
		e.addWhereCol(x.Right, "@"+strings.TrimPrefix(leftVar.Name, "@"))
	default:
		// 비교 양쪽에 서브쿼리가 올 수 있다
		e.walkCondition(x.Left)
		e.walkCondition(x.Right)
	}
}

func (e *extractor) addWhereCol(expr ast.Expression, param string) {
	var tbl, col string
	switch x := expr.(type) {
	case *ast.Identifier:
		col = x.Value
	case *ast.QualifiedIdentifier:
		tbl, col = splitQualified(x.String())
	default:
		return
	}
	e.result.WhereCols = append(e.result.WhereCols, ColumnRef{
		Table:     tbl,
		Column:    col,
		Parameter: param,
		Branch:    e.branch,
	})
}

func isColumnExpr(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.QualifiedIdentifier:
		return true
	}
	return false
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

// ---------------------------------------------------------------------
// 정규식 폴백 및 원문 스캔
// ---------------------------------------------------------------------

var (
	procNameRe = regexp.MustCompile(`(?i)CREATE\s+PROC(?:EDURE)?\s+(?:\[?\w+\]?\.)?\[?(\w+)\]?`)
	headerRe   = regexp.MustCompile(`(?is)(CREATE\s+PROC(?:EDURE)?.*?)\bAS\b`)
	paramRe    = regexp.MustCompile(`(?i)@(\w+)\s+([A-Za-z_]+(?:\s*\(\s*(?:\d+(?:\s*,\s*\d+)?|MAX)\s*\))?)(?:\s*=\s*('[^']*'|[^\s,()]+))?(\s+OUT(?:PUT)?)?`)

	// FROM/JOIN/INTO/UPDATE 뒤 식별자. #임시테이블 포함, 키워드 별칭 제외.
	fallbackTableRe = regexp.MustCompile(`(?i)\b(FROM|JOIN|INTO|UPDATE)\s+\[?([#@]?[\w.]+)\]?(?:\s+(?:AS\s+)?([A-Za-z]\w*))?`)
	fallbackColRe   = regexp.MustCompile(`(\w+)\.(\w+|\*)`)

	hintRe = regexp.MustCompile(`(?i)\[?([#@]?[\w.\[\]]+?)\]?(?:\s+(?:AS\s+)?\w+)?\s+WITH\s*\(\s*([A-Za-z]+(?:\s*,\s*[A-Za-z]+)*)\s*\)`)
)

func extractProcName(sql string) string {
	if m := procNameRe.FindStringSubmatch(sql); m != nil {
		return m[1]
	}
	return ""
}

func extractParams(sql string) []Param {
	m := headerRe.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	header := m[1]
	// 프로시저명 자체가 파라미터로 잡히지 않게 선언부만 사용
	var params []Param
	for _, pm := range paramRe.FindAllStringSubmatch(header, -1) {
		params = append(params, Param{
			Name:     "@" + pm[1],
			DataType: strings.ToUpper(strings.TrimSpace(pm[2])),
			Default:  strings.TrimSpace(pm[3]),
			Output:   pm[4] != "",
		})
	}
	return params
}

// fallback은 AST가 빈손일 때 정규식으로 테이블과 한정 컬럼을 긁는다.
func (e *extractor) fallback(sql string) {
	for _, m := range fallbackTableRe.FindAllStringSubmatch(sql, -1) {
		name := m[2]
		alias := m[3]
		if isKeyword(name) {
			continue
		}
		access := AccessRead
		kw := strings.ToUpper(m[1])
		if kw == "INTO" || kw == "UPDATE" {
			access = AccessWrite
		}
		e.addTable(name, alias, access)
	}

	if len(e.result.SelectCols) == 0 {
		for _, m := range fallbackColRe.FindAllStringSubmatch(sql, -1) {
			tbl := m[1]
			if isKeyword(tbl) {
				continue
			}
			e.addSelectCol(tbl, m[2])
		}
	}

	if len(e.result.Tables) == 0 {
		e.warn("테이블 참조를 찾지 못했습니다 (AST/정규식 모두 실패)")
	}
}

// applyHints는 원문에서 테이블별 락 힌트를 찾아 붙인다.
// 힌트는 추출된 식별자를 오염시키지 않고 별도 필드로만 전달된다.
func applyHints(sql string, r *Result) {
	hints := make(map[string]string)
	for _, m := range hintRe.FindAllStringSubmatch(sql, -1) {
		name := strings.ToUpper(normalizeIdent(m[1]))
		if name == "" || isKeyword(name) {
			continue
		}
		if _, ok := hints[name]; !ok {
			hints[name] = strings.ToUpper(strings.TrimSpace(m[2]))
		}
	}
	for i := range r.Tables {
		if h, ok := hints[strings.ToUpper(r.Tables[i].Name)]; ok {
			r.Tables[i].Hint = h
		}
	}
}

// ---------------------------------------------------------------------
// 식별자 보조
// ---------------------------------------------------------------------

// normalizeIdent는 대괄호와 스키마 한정자(dbo.)를 벗긴다.
func normalizeIdent(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// splitQualified는 A.Col / dbo.T.Col을 (테이블, 컬럼)으로 나눈다.
func splitQualified(raw string) (table, column string) {
	s := strings.ReplaceAll(strings.ReplaceAll(raw, "[", ""), "]", "")
	parts := strings.Split(s, ".")
	column = parts[len(parts)-1]
	if len(parts) >= 2 {
		table = parts[len(parts)-2]
	}
	return table, column
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@")
}

var sqlKeywords = map[string]bool{
	"WHERE": true, "WITH": true, "ON": true, "AND": true, "OR": true,
	"LEFT": true, "RIGHT": true, "INNER": true, "OUTER": true, "CROSS": true,
	"JOIN": true, "SELECT": true, "SET": true, "GROUP": true, "ORDER": true,
	"HAVING": true, "UNION": true, "AS": true, "NOLOCK": true,
}

func isKeyword(s string) bool {
	return sqlKeywords[strings.ToUpper(s)]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
