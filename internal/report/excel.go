package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"proc-mapper/internal/mapping"
)

const (
	sheetDesc   = "설명"
	sheetInput  = "입력"
	sheetOutput = "출력"

	headerFill   = "DAEEF3" // 연한 하늘색
	sectionFill  = "4F81BD" // 진한 파랑
	unmappedFill = "FFCCCC" // 연분홍: 매핑 없는 행
)

type excelStyles struct {
	header   int
	section  int
	cell     int
	unmapped int
}

// WriteExcel은 output_<프로시저명>.xlsx 를 만들고 경로를 돌려준다.
func (w *Writer) WriteExcel(r *Report) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newExcelStyles(f)
	if err != nil {
		return "", fmt.Errorf("스타일 생성 실패: %w", err)
	}

	f.SetSheetName("Sheet1", sheetDesc)
	if _, err := f.NewSheet(sheetInput); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(sheetOutput); err != nil {
		return "", err
	}

	if err := writeDescSheet(f, styles, r); err != nil {
		return "", err
	}
	if err := writeMappingSheet(f, styles, sheetInput, "입력", r.Input); err != nil {
		return "", err
	}
	if err := writeMappingSheet(f, styles, sheetOutput, "출력", r.Output); err != nil {
		return "", err
	}

	f.SetActiveSheet(0)

	path := filepath.Join(w.excelDir, fmt.Sprintf("output_%s.xlsx", r.ProcName))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("Excel 저장 실패 (%s): %w", path, err)
	}
	return path, nil
}

func newExcelStyles(f *excelize.File) (*excelStyles, error) {
	borders := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border:    borders,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	section, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{sectionFill}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	cell, err := f.NewStyle(&excelize.Style{Border: borders})
	if err != nil {
		return nil, err
	}

	unmapped, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{unmappedFill}, Pattern: 1},
		Border: borders,
	})
	if err != nil {
		return nil, err
	}

	return &excelStyles{header: header, section: section, cell: cell, unmapped: unmapped}, nil
}

// writeDescSheet는 프로시저 이름, 파라미터 표, LLM 설명을 쓴다.
func writeDescSheet(f *excelize.File, st *excelStyles, r *Report) error {
	sheet := sheetDesc

	f.SetCellValue(sheet, "A1", "프로시저 이름")
	f.SetCellStyle(sheet, "A1", "A1", st.header)
	f.SetCellValue(sheet, "B1", r.ProcName)
	f.MergeCell(sheet, "B1", "D1")

	row := 3
	setRow(f, sheet, row, []string{"[파라미터]"})
	f.MergeCell(sheet, cellName(1, row), cellName(4, row))
	f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.section)
	row++

	setRow(f, sheet, row, []string{"파라미터명", "데이터타입"})
	f.SetCellStyle(sheet, cellName(1, row), cellName(2, row), st.header)
	row++

	for _, p := range r.Params {
		setRow(f, sheet, row, []string{p.Name, p.Type})
		f.SetCellStyle(sheet, cellName(1, row), cellName(2, row), st.cell)
		row++
	}

	row++ // 빈 행
	setRow(f, sheet, row, []string{"[프로시저 설명]"})
	f.MergeCell(sheet, cellName(1, row), cellName(4, row))
	f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.section)
	row++

	f.SetCellValue(sheet, cellName(1, row), r.Description)
	f.MergeCell(sheet, cellName(1, row), cellName(4, row+5))
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	f.SetCellStyle(sheet, cellName(1, row), cellName(4, row+5), wrap)
	f.SetRowHeight(sheet, row, 100)

	return f.SetColWidth(sheet, "A", "D", 20)
}

// writeMappingSheet는 [테이블 정보] / [항목 정보] 두 구역을 쓴다.
func writeMappingSheet(f *excelize.File, st *excelStyles, sheet, label string, sec Section) error {
	row := 1

	setRow(f, sheet, row, []string{fmt.Sprintf("[%s 테이블 정보]", label)})
	f.MergeCell(sheet, cellName(1, row), cellName(len(tableHeaders), row))
	f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.section)
	row++

	setRow(f, sheet, row, tableHeaders)
	f.SetCellStyle(sheet, cellName(1, row), cellName(len(tableHeaders), row), st.header)
	row++

	for _, t := range sec.Tables {
		cells := tableRow(t)
		setRow(f, sheet, row, cells)
		style := st.cell
		if t.Kind == mapping.KindUnmapped {
			style = st.unmapped
		}
		f.SetCellStyle(sheet, cellName(1, row), cellName(len(cells), row), style)
		row++
	}

	row++ // 빈 행

	setRow(f, sheet, row, []string{fmt.Sprintf("[%s 항목 정보]", label)})
	f.MergeCell(sheet, cellName(1, row), cellName(len(columnHeaders), row))
	f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.section)
	row++

	setRow(f, sheet, row, columnHeaders)
	f.SetCellStyle(sheet, cellName(1, row), cellName(len(columnHeaders), row), st.header)
	row++

	widths := newWidthTracker(columnHeaders)
	for _, c := range sec.Columns {
		cells := columnRow(c)
		setRow(f, sheet, row, cells)
		style := st.cell
		if c.Kind == mapping.KindUnmapped {
			style = st.unmapped
		}
		f.SetCellStyle(sheet, cellName(1, row), cellName(len(cells), row), style)
		widths.observe(cells)
		row++
	}

	return widths.apply(f, sheet)
}

func setRow(f *excelize.File, sheet string, row int, values []string) {
	for i, v := range values {
		f.SetCellValue(sheet, cellName(i+1, row), v)
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// widthTracker는 열 너비를 내용에 맞춘다. 한글은 2칸으로 계산하고 50칸에서 자른다.
type widthTracker struct {
	max []float64
}

func newWidthTracker(headers []string) *widthTracker {
	t := &widthTracker{max: make([]float64, len(headers))}
	t.observe(headers)
	return t
}

func (t *widthTracker) observe(cells []string) {
	for i, v := range cells {
		if i >= len(t.max) {
			break
		}
		if w := displayWidth(v); w > t.max[i] {
			t.max[i] = w
		}
	}
}

func (t *widthTracker) apply(f *excelize.File, sheet string) error {
	for i, w := range t.max {
		width := w + 2
		if width < 10 {
			width = 10
		}
		if width > 50 {
			width = 50
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func displayWidth(s string) float64 {
	var w float64
	for _, r := range s {
		if r > 127 {
			w += 2
		} else {
			w++
		}
	}
	return w
}
