package mapping_test

import (
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"proc-mapper/internal/dialect"
	"proc-mapper/internal/mapping"
)

func newStore(t *testing.T) (*mapping.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock 생성 실패: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := mapping.NewStore(db, dialect.GetDialect("oracle"), "OHIS2015_SCHEMA_COMMENT", mapping.DefaultColumns())
	return store, mock
}

// 기본 열 문자는 원본 스프레드시트 배치와 1:1이어야 한다.
// 기존(N~Q)과 신규(D~G)가 뒤바뀌면 매핑 결과가 통째로 뒤집힌다.
func TestDefaultColumnLetters(t *testing.T) {
	got := mapping.DefaultColumns()
	want := map[string][2]string{
		"old_table":      {got.OldTable, "N"},
		"old_table_kor":  {got.OldTableKor, "O"},
		"old_column":     {got.OldColumn, "P"},
		"old_column_kor": {got.OldColumnKor, "Q"},
		"new_table":      {got.NewTable, "D"},
		"new_table_kor":  {got.NewTableKor, "E"},
		"new_column":     {got.NewColumn, "F"},
		"new_column_kor": {got.NewColumnKor, "G"},
		"data_type":      {got.DataType, "H"},
		"length":         {got.Length, "I"},
		"pk":             {got.PK, "AI"},
		"fk":             {got.FK, "AJ"},
	}
	for name, v := range want {
		if v[0] != v[1] {
			t.Errorf("%s: got %q want %q", name, v[0], v[1])
		}
	}
}

func TestLookupTableMemoized(t *testing.T) {
	store, mock := newStore(t)

	rows := sqlmock.NewRows([]string{"E", "D"}).AddRow("방문", "TN_HC_VISIT")
	// 같은 테이블은 대소문자가 달라도 한 번만 조회해야 한다
	mock.ExpectQuery("SELECT E, D FROM").WithArgs("VISIT").WillReturnRows(rows)

	rec, err := store.LookupTable("VISIT")
	if err != nil {
		t.Fatalf("첫 조회 실패: %v", err)
	}
	if rec == nil || rec.NewEng != "TN_HC_VISIT" || rec.NewKor != "방문" {
		t.Fatalf("조회 결과 불일치: %+v", rec)
	}
	if rec.Kind != mapping.KindMapped {
		t.Errorf("분류 불일치: %v", rec.Kind)
	}

	// 캐시 적중: DB를 다시 두드리면 sqlmock이 에러를 낸다
	again, err := store.LookupTable("visit")
	if err != nil {
		t.Fatalf("캐시 조회 실패: %v", err)
	}
	if again != rec {
		t.Error("캐시가 같은 레코드를 돌려주지 않음")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("기대하지 않은 쿼리: %v", err)
	}
}

func TestLookupTableMissMemoized(t *testing.T) {
	store, mock := newStore(t)

	// 매핑 없음도 캐시된다: 쿼리는 한 번만
	mock.ExpectQuery("SELECT E, D FROM").WithArgs("NOPE").WillReturnError(sql.ErrNoRows)

	for i := 0; i < 3; i++ {
		rec, err := store.LookupTable("NOPE")
		if err != nil {
			t.Fatalf("%d번째 조회 에러: %v", i+1, err)
		}
		if rec != nil {
			t.Fatalf("없는 테이블에 레코드가 나옴: %+v", rec)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("미스가 캐시되지 않음: %v", err)
	}
}

func TestLookupColumnNullHandling(t *testing.T) {
	store, mock := newStore(t)

	// 유형/길이 NULL → 빈 값, PK/FK는 표에 뭐든 있으면 Y
	rows := sqlmock.NewRows([]string{"E", "D", "G", "F", "H", "I", "AI", "AJ"}).
		AddRow("방문", "TN_HC_VISIT", "주민등록번호", "JUMIN_NO", nil, nil, "PK1", nil)
	mock.ExpectQuery("SELECT").WithArgs("VISIT", "JUMIN_NO").WillReturnRows(rows)

	rec, err := store.LookupColumn("VISIT", "JUMIN_NO")
	if err != nil {
		t.Fatalf("조회 실패: %v", err)
	}
	if rec.DataType != "" || rec.Length != "" {
		t.Errorf("NULL 처리 실패: 유형=%q 길이=%q", rec.DataType, rec.Length)
	}
	if rec.PK != "Y" {
		t.Errorf("PK 정규화 실패: %q", rec.PK)
	}
	if rec.FK != "" {
		t.Errorf("FK 정규화 실패: %q", rec.FK)
	}
	if rec.LegacyTable != "VISIT" || rec.LegacyColumn != "JUMIN_NO" {
		t.Errorf("기존 식별자 보존 실패: %+v", rec)
	}
}

func TestLookupColumnMemoized(t *testing.T) {
	store, mock := newStore(t)

	rows := sqlmock.NewRows([]string{"E", "D", "G", "F", "H", "I", "AI", "AJ"}).
		AddRow("방문", "TN_HC_VISIT", "상태코드", "STATUS_CD", "CHAR", "2", nil, nil)
	mock.ExpectQuery("SELECT").WithArgs("VISIT", "STATUS_CD").WillReturnRows(rows)

	if _, err := store.LookupColumn("VISIT", "STATUS_CD"); err != nil {
		t.Fatalf("첫 조회 실패: %v", err)
	}
	if _, err := store.LookupColumn("visit", "status_cd"); err != nil {
		t.Fatalf("캐시 조회 실패: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("컬럼 조회가 메모이즈되지 않음: %v", err)
	}
}

func TestCount(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(300))

	n, err := store.Count()
	if err != nil {
		t.Fatalf("행 수 조회 실패: %v", err)
	}
	if n != 300 {
		t.Errorf("행 수 불일치: %d", n)
	}
}
