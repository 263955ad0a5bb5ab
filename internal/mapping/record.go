package mapping

// Kind는 매핑 조회 결과의 분류
type Kind int

const (
	KindMapped   Kind = iota // 매핑표에서 찾음
	KindUnmapped             // 실제 테이블/컬럼이지만 매핑표에 없음
	KindDerived              // 인라인 뷰 (물리 테이블 아님)
	KindTemp                 // #임시테이블, @테이블변수
)

// TableRecord는 보고서 한 행에 해당하는 테이블 매핑
type TableRecord struct {
	Legacy string // 기존 테이블 영문명 (인라인 뷰는 별칭, 임시테이블은 #이름)
	NewKor string // 신규 테이블 한글명
	NewEng string // 신규 테이블 영문명
	Access string // 읽기 / 쓰기 / 읽기/쓰기
	Kind   Kind
}

// ColumnRecord는 보고서 한 행에 해당하는 컬럼 매핑
type ColumnRecord struct {
	LegacyTable  string
	LegacyColumn string
	TableKor     string
	TableEng     string
	ColumnKor    string
	ColumnEng    string
	DataType     string
	Length       string
	PK           string // 값이 있으면 "Y"
	FK           string
	Kind         Kind
}

// Mapped는 매핑여부 컬럼에 O를 찍을지 여부
func (r TableRecord) Mapped() bool { return r.Kind == KindMapped }

func (r ColumnRecord) Mapped() bool { return r.Kind == KindMapped }

// NewUnmappedTable은 매핑표에 없는 테이블. 신규명 칸은 비워둔다.
func NewUnmappedTable(legacy, access string) TableRecord {
	return TableRecord{Legacy: legacy, Access: access, Kind: KindUnmapped}
}

// NewDerivedTable은 인라인 뷰. 한글명 자리에 [인라인뷰] 표식을 남긴다.
func NewDerivedTable(alias string) TableRecord {
	return TableRecord{
		Legacy: alias,
		NewKor: "[인라인뷰] " + alias,
		Kind:   KindDerived,
	}
}

// NewTempTable은 임시테이블/테이블변수
func NewTempTable(name, access string) TableRecord {
	return TableRecord{
		Legacy: name,
		NewKor: "[임시테이블] " + name,
		Access: access,
		Kind:   KindTemp,
	}
}

func NewUnmappedColumn(table, column string) ColumnRecord {
	return ColumnRecord{LegacyTable: table, LegacyColumn: column, Kind: KindUnmapped}
}

func NewDerivedColumn(alias, column string) ColumnRecord {
	return ColumnRecord{
		LegacyTable:  alias,
		LegacyColumn: column,
		TableKor:     "[인라인뷰] " + alias,
		Kind:         KindDerived,
	}
}

func NewTempColumn(table, column string) ColumnRecord {
	return ColumnRecord{
		LegacyTable:  table,
		LegacyColumn: column,
		TableKor:     "[임시테이블] " + table,
		Kind:         KindTemp,
	}
}
