// Package source는 운영 MSSQL 서버의 카탈로그에서
// 저장 프로시저 정의를 읽어온다.
package source

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound는 해당 이름의 프로시저가 카탈로그에 없을 때
var ErrNotFound = errors.New("프로시저를 찾을 수 없습니다")

// ProcedureInfo는 목록 조회 한 건
type ProcedureInfo struct {
	Name       string
	ModifyDate time.Time
	Length     int // 정의 텍스트 길이 (문자 수)
}

// Reader는 sys.procedures / sys.sql_modules 조회기
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Definition은 프로시저의 CREATE 원문을 돌려준다.
func (r *Reader) Definition(name string) (string, error) {
	const query = `
SELECT m.definition
FROM sys.procedures p
JOIN sys.sql_modules m ON p.object_id = m.object_id
WHERE p.name = @p1`

	var def sql.NullString
	err := r.db.QueryRow(query, name).Scan(&def)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("프로시저 정의 조회 실패 (%s): %w", name, err)
	}
	if !def.Valid || def.String == "" {
		// 암호화된 프로시저는 definition이 NULL이다
		return "", fmt.Errorf("프로시저 정의가 비어 있습니다 (암호화 여부 확인): %s", name)
	}
	return def.String, nil
}

// Exists는 프로시저 존재 여부만 확인한다.
func (r *Reader) Exists(name string) (bool, error) {
	const query = `SELECT COUNT(*) FROM sys.procedures WHERE name = @p1`
	var n int
	if err := r.db.QueryRow(query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("프로시저 존재 확인 실패 (%s): %w", name, err)
	}
	return n > 0, nil
}

// List는 접두사로 시작하는 프로시저 목록을 이름순으로 돌려준다.
func (r *Reader) List(prefix string) ([]ProcedureInfo, error) {
	const query = `
SELECT p.name, p.modify_date, LEN(m.definition)
FROM sys.procedures p
JOIN sys.sql_modules m ON p.object_id = m.object_id
WHERE p.name LIKE @p1
ORDER BY p.name`

	rows, err := r.db.Query(query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("프로시저 목록 조회 실패: %w", err)
	}
	defer rows.Close()

	var procs []ProcedureInfo
	for rows.Next() {
		var info ProcedureInfo
		var length sql.NullInt64
		if err := rows.Scan(&info.Name, &info.ModifyDate, &length); err != nil {
			return nil, fmt.Errorf("프로시저 목록 읽기 실패: %w", err)
		}
		info.Length = int(length.Int64)
		procs = append(procs, info)
	}
	return procs, rows.Err()
}
