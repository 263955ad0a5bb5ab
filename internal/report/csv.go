package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// WriteCSV는 입력/출력 CSV 두 개를 쓰고 경로를 돌려준다.
// 파일명은 <프로시저명>_input.csv / <프로시저명>_output.csv.
func (w *Writer) WriteCSV(r *Report) (inPath, outPath string, err error) {
	inPath = filepath.Join(w.csvDir, fmt.Sprintf("%s_input.csv", r.ProcName))
	outPath = filepath.Join(w.csvDir, fmt.Sprintf("%s_output.csv", r.ProcName))

	if err := writeSectionCSV(inPath, "입력", r.Input); err != nil {
		return "", "", err
	}
	if err := writeSectionCSV(outPath, "출력", r.Output); err != nil {
		return "", "", err
	}
	return inPath, outPath, nil
}

func writeSectionCSV(path, label string, sec Section) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSV 파일 생성 실패 (%s): %w", path, err)
	}
	defer f.Close()

	// 엑셀 호환 UTF-8 BOM
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return err
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{fmt.Sprintf("[%s 테이블 정보]", label)}); err != nil {
		return err
	}
	if err := w.Write(tableHeaders); err != nil {
		return err
	}
	for _, t := range sec.Tables {
		if err := w.Write(tableRow(t)); err != nil {
			return err
		}
	}

	if err := w.Write([]string{}); err != nil {
		return err
	}

	if err := w.Write([]string{fmt.Sprintf("[%s 항목 정보]", label)}); err != nil {
		return err
	}
	if err := w.Write(columnHeaders); err != nil {
		return err
	}
	for _, c := range sec.Columns {
		if err := w.Write(columnRow(c)); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
