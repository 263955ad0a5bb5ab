package mapping

import (
	"database/sql"
	"fmt"
	"strings"

	"proc-mapper/internal/dialect"
)

// Columns는 매핑표 테이블의 물리 컬럼명.
// 원본 스프레드시트를 적재할 때 열 문자(D, E, N, O...)가
// 그대로 컬럼명이 된 환경이 기본값이다.
type Columns struct {
	OldTable     string `mapstructure:"old_table"`
	OldTableKor  string `mapstructure:"old_table_kor"`
	OldColumn    string `mapstructure:"old_column"`
	OldColumnKor string `mapstructure:"old_column_kor"`
	NewTable     string `mapstructure:"new_table"`
	NewTableKor  string `mapstructure:"new_table_kor"`
	NewColumn    string `mapstructure:"new_column"`
	NewColumnKor string `mapstructure:"new_column_kor"`
	DataType     string `mapstructure:"data_type"`
	Length       string `mapstructure:"length"`
	PK           string `mapstructure:"pk"`
	FK           string `mapstructure:"fk"`
}

// DefaultColumns는 열 문자 그대로의 기본 매핑표 스키마
func DefaultColumns() Columns {
	return Columns{
		OldTable:     "N",
		OldTableKor:  "O",
		OldColumn:    "P",
		OldColumnKor: "Q",
		NewTable:     "D",
		NewTableKor:  "E",
		NewColumn:    "F",
		NewColumnKor: "G",
		DataType:     "H",
		Length:       "I",
		PK:           "AI",
		FK:           "AJ",
	}
}

// OrDefaults는 빈 필드를 기본값으로 채운 사본을 돌려준다
func (c Columns) OrDefaults() Columns {
	d := DefaultColumns()
	fill := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Columns{
		OldTable:     fill(c.OldTable, d.OldTable),
		OldTableKor:  fill(c.OldTableKor, d.OldTableKor),
		OldColumn:    fill(c.OldColumn, d.OldColumn),
		OldColumnKor: fill(c.OldColumnKor, d.OldColumnKor),
		NewTable:     fill(c.NewTable, d.NewTable),
		NewTableKor:  fill(c.NewTableKor, d.NewTableKor),
		NewColumn:    fill(c.NewColumn, d.NewColumn),
		NewColumnKor: fill(c.NewColumnKor, d.NewColumnKor),
		DataType:     fill(c.DataType, d.DataType),
		Length:       fill(c.Length, d.Length),
		PK:           fill(c.PK, d.PK),
		FK:           fill(c.FK, d.FK),
	}
}

// All은 CREATE/INSERT에 쓰는 전체 컬럼 목록 (고정 순서)
func (c Columns) All() []string {
	return []string{
		c.OldTableKor, c.NewTableKor, c.OldColumnKor, c.NewColumnKor,
		c.DataType, c.Length, c.OldTable, c.NewTable,
		c.OldColumn, c.NewColumn, c.PK, c.FK,
	}
}

// Store는 매핑표 조회기. 테이블/컬럼 조회 결과를 실행 단위로 메모이즈한다.
// 미스(매핑 없음)도 캐시해서 같은 식별자로 DB를 두 번 두드리지 않는다.
type Store struct {
	db    *sql.DB
	d     dialect.Dialect
	table string
	cols  Columns

	tableCache map[string]*TableRecord
	colCache   map[string]*ColumnRecord
}

func NewStore(db *sql.DB, d dialect.Dialect, table string, cols Columns) *Store {
	return &Store{
		db:         db,
		d:          d,
		table:      table,
		cols:       cols.OrDefaults(),
		tableCache: make(map[string]*TableRecord),
		colCache:   make(map[string]*ColumnRecord),
	}
}

// LookupTable은 기존 테이블명으로 신규 테이블명을 찾는다.
// 없으면 (nil, nil): 매핑 없음은 에러가 아니다.
func (s *Store) LookupTable(name string) (*TableRecord, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return nil, nil
	}
	if rec, ok := s.tableCache[key]; ok {
		return rec, nil
	}

	// 단건 제한이 있어 DISTINCT는 불필요하고, MSSQL TOP 주입과도 충돌한다
	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE UPPER(%s) = UPPER(%s)",
		s.cols.NewTableKor, s.cols.NewTable, s.table,
		s.cols.OldTable, s.d.Placeholder(0))
	query = s.d.GetLimitRowQuery(query, 1)

	var kor, eng sql.NullString
	err := s.db.QueryRow(query, name).Scan(&kor, &eng)
	if err == sql.ErrNoRows {
		s.tableCache[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("테이블 매핑 조회 실패 (%s): %w", name, err)
	}

	rec := &TableRecord{
		Legacy: name,
		NewKor: kor.String,
		NewEng: eng.String,
		Kind:   KindMapped,
	}
	s.tableCache[key] = rec
	return rec, nil
}

// LookupColumn은 (기존 테이블, 기존 컬럼)으로 신규 매핑 한 건을 찾는다.
// 유형/길이는 NULL이면 빈 값, PK/FK는 표에 뭐든 적혀 있으면 Y로 정규화한다.
func (s *Store) LookupColumn(table, column string) (*ColumnRecord, error) {
	key := strings.ToUpper(strings.TrimSpace(table)) + "." + strings.ToUpper(strings.TrimSpace(column))
	if rec, ok := s.colCache[key]; ok {
		return rec, nil
	}

	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s, %s FROM %s WHERE UPPER(%s) = UPPER(%s) AND UPPER(%s) = UPPER(%s)",
		s.cols.NewTableKor, s.cols.NewTable,
		s.cols.NewColumnKor, s.cols.NewColumn,
		s.cols.DataType, s.cols.Length,
		s.cols.PK, s.cols.FK,
		s.table,
		s.cols.OldTable, s.d.Placeholder(0),
		s.cols.OldColumn, s.d.Placeholder(1))
	query = s.d.GetLimitRowQuery(query, 1)

	var tblKor, tblEng, colKor, colEng, dataType, length, pk, fk sql.NullString
	err := s.db.QueryRow(query, table, column).
		Scan(&tblKor, &tblEng, &colKor, &colEng, &dataType, &length, &pk, &fk)
	if err == sql.ErrNoRows {
		s.colCache[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("컬럼 매핑 조회 실패 (%s.%s): %w", table, column, err)
	}

	rec := &ColumnRecord{
		LegacyTable:  table,
		LegacyColumn: column,
		TableKor:     tblKor.String,
		TableEng:     tblEng.String,
		ColumnKor:    colKor.String,
		ColumnEng:    colEng.String,
		DataType:     dataType.String,
		Length:       strings.TrimSpace(length.String),
		PK:           yesIfSet(pk),
		FK:           yesIfSet(fk),
		Kind:         KindMapped,
	}
	s.colCache[key] = rec
	return rec, nil
}

// Count는 매핑표 행 수 (seed 검증용)
func (s *Store) Count() (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("매핑표 행 수 조회 실패: %w", err)
	}
	return n, nil
}

func yesIfSet(v sql.NullString) string {
	if v.Valid && strings.TrimSpace(v.String) != "" {
		return "Y"
	}
	return ""
}
