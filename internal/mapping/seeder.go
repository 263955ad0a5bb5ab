package mapping

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"proc-mapper/internal/dialect"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// Seeder는 개발/테스트용 매핑표를 만들어 채운다.
// 실제 환경에서는 이행 스프레드시트가 적재한 표를 그대로 쓴다.
type Seeder struct {
	db    *sql.DB
	d     dialect.Dialect
	table string
	cols  Columns
}

func NewSeeder(db *sql.DB, d dialect.Dialect, table string, cols Columns) *Seeder {
	return &Seeder{db: db, d: d, table: table, cols: cols.OrDefaults()}
}

// EnsureTable은 매핑표가 없으면 만들고, clean이면 기존 행을 비운다.
func (s *Seeder) EnsureTable(clean bool) error {
	var count int
	if err := s.db.QueryRow(s.d.TableExistsQuery(), s.table).Scan(&count); err != nil {
		return fmt.Errorf("매핑표 존재 확인 실패: %w", err)
	}

	if count == 0 {
		if _, err := s.db.Exec(s.d.CreateTableQuery(s.table, s.cols.All())); err != nil {
			return fmt.Errorf("매핑표 생성 실패: %w", err)
		}
		return nil
	}

	if clean {
		if _, err := s.db.Exec(s.d.TruncateQuery(s.table)); err != nil {
			return fmt.Errorf("매핑표 초기화 실패: %w", err)
		}
	}
	return nil
}

// Seed는 n행을 생성해 넣는다. 테이블 어휘를 순환하며 테이블마다
// 컬럼 어휘를 붙이므로, 같은 기존 테이블명이 연속 블록으로 쌓인다.
// progress는 행 단위 진행 콜백 (nil 허용).
func (s *Seeder) Seed(n int, progress func(done, total int)) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("트랜잭션 시작 실패: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.d.InsertQuery(s.table, s.cols.All()))
	if err != nil {
		return 0, fmt.Errorf("INSERT 준비 실패: %w", err)
	}
	defer stmt.Close()

	perTable := len(ColumnDict)
	for i := 0; i < n; i++ {
		ti := (i / perTable) % len(TableDict)
		ci := i % perTable
		round := i / (perTable * len(TableDict)) // 어휘가 다 돌면 접미사로 구분

		tbl := TableDict[ti]
		col := ColumnDict[ci]

		oldCol := col.Eng
		newCol := col.Eng
		if round > 0 {
			oldCol = fmt.Sprintf("%s_%d", col.Eng, round)
			newCol = oldCol
		}

		pk := ""
		if ci == 0 {
			pk = "Y"
		}
		fk := ""
		if ci != 0 && seededRand.Intn(8) == 0 {
			fk = "Y"
		}

		length := col.Length
		if col.Type == "VARCHAR2" && gofakeit.Bool() {
			// 실제 표처럼 길이가 들쭉날쭉하게
			length = fmt.Sprintf("%d", gofakeit.Number(10, 400))
		}

		// cols.All() 순서와 동일해야 한다
		_, err := stmt.Exec(
			tbl.Kor,                // 기존 테이블 한글명
			tbl.Kor,                // 신규 테이블 한글명
			col.Kor,                // 기존 항목 한글명
			col.Kor,                // 신규 항목 한글명
			col.Type,               // 유형
			length,                 // 길이
			tbl.Eng,                // 기존 테이블 영문명
			"TN_HC_"+tbl.Eng,       // 신규 테이블 영문명
			oldCol,                 // 기존 항목 영문명
			newCol,                 // 신규 항목 영문명
			pk,                     // PK
			fk,                     // FK
		)
		if err != nil {
			return i, fmt.Errorf("행 %d 삽입 실패: %w", i+1, err)
		}

		if progress != nil {
			progress(i+1, n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("커밋 실패: %w", err)
	}
	return n, nil
}
