package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"proc-mapper/internal/engine"
	"proc-mapper/internal/gemini"
	"proc-mapper/internal/mapping"
	"proc-mapper/internal/report"
	"proc-mapper/internal/source"
	"proc-mapper/internal/sqlparse"
)

var (
	runInputFile string
	runProcName  string
	runOutputDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "프로시저 하나를 분석해 매핑 보고서를 만든다",
	Long: `저장 프로시저를 파싱/LLM 분석하고 신구 매핑표와 대조해
Excel(설명/입력/출력)과 CSV 보고서를 만듭니다.

원문은 -i 로 파일(기본 input.txt)에서 읽거나 -p 로 운영 DB에서 직접 가져옵니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir := runOutputDir
		if outDir == "" {
			outDir = viper.GetString("output.dir")
		}

		fmt.Println("=== 프로시저 매핑 도구 ===")
		start := time.Now()

		// 1. 원문 확보
		var sqlText string
		if runProcName != "" {
			fmt.Printf("[1/5] 프로시저 정의 조회 중... (%s)\n", runProcName)
			db, err := openSourceDB()
			if err != nil {
				return err
			}
			def, err := source.NewReader(db).Definition(runProcName)
			db.Close()
			if err != nil {
				return err
			}
			sqlText = def
		} else {
			fmt.Printf("[1/5] 프로시저 파일 읽기... (%s)\n", runInputFile)
			text, err := readProcedureFile(runInputFile)
			if err != nil {
				return err
			}
			sqlText = text
		}
		if strings.TrimSpace(sqlText) == "" {
			return fmt.Errorf("프로시저 원문이 비어 있습니다")
		}

		// 2. 파서
		fmt.Println("[2/5] SQL 구조 분석 중...")
		parsed := sqlparse.Extract(sqlText)
		fmt.Printf("      프로시저: %s / 테이블 %d개 / 파라미터 %d개\n",
			parsed.ProcName, len(parsed.Tables), len(parsed.Params))
		for _, w := range parsed.Warnings {
			log.Printf("⚠️  파서: %s", w)
		}

		// 3. LLM 분석 (실패해도 파서 결과로 계속 간다)
		fmt.Println("[3/5] Gemini 분석 중...")
		analysis := analyzeWithGemini(sqlText, parsed)

		// 4. 매핑표 대조
		fmt.Println("[4/5] 매핑 정보 조회 중...")
		db, d, mcfg, err := openMappingDB()
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Printf("🏥 매핑표 연결: %s (%s)\n", mcfg.Table, mcfg.Driver)

		store := mapping.NewStore(db, d, mcfg.Table, mcfg.Columns)
		result := engine.Resolve(parsed, analysis, store)

		for _, e := range result.LookupErrors {
			log.Printf("⚠️  조회 오류: %s", e)
		}

		// 5. 보고서
		fmt.Println("[5/5] Excel/CSV 파일 생성 중...")
		w, err := report.NewWriter(outDir)
		if err != nil {
			return err
		}
		rep := buildReport(result)
		xlsxPath, err := w.WriteExcel(rep)
		if err != nil {
			return err
		}
		inCSV, outCSV, err := w.WriteCSV(rep)
		if err != nil {
			return err
		}

		fmt.Println("=== 완료 ===")
		fmt.Println("\n📊 결과 요약:")
		icon := "✓"
		status := "LLM 분석 포함"
		if !result.Analyzed {
			icon = "!"
			status = "파서 결과만 사용 (LLM 분석 실패)"
		}
		fmt.Printf("[%s] %s : %s\n", icon, result.ProcName, status)
		fmt.Printf("[✓] 입력: 테이블 %d개 / 항목 %d개\n", len(result.InputTables), len(result.InputColumns))
		fmt.Printf("[✓] 출력: 테이블 %d개 / 항목 %d개\n", len(result.OutputTables), len(result.OutputColumns))
		if len(result.Unmapped) > 0 {
			fmt.Printf("[!] 매핑 없음 %d건:\n", len(result.Unmapped))
			for _, u := range result.Unmapped {
				fmt.Printf("    └ %s\n", u)
			}
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Excel: %s\n", xlsxPath)
		fmt.Printf("CSV  : %s, %s\n", inCSV, outCSV)
		log.Printf("완료! 소요 시간: %s", time.Since(start))
		return nil
	},
}

// readProcedureFile은 프로시저 원문 파일을 읽는다. 빈 파일은 여기서 막는다.
func readProcedureFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("입력 파일 읽기 실패: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("입력 파일이 비어 있습니다: %s", path)
	}
	return string(data), nil
}

// analyzeWithGemini는 실패를 nil로 강등한다. 키가 없어도 도구는 돈다.
func analyzeWithGemini(sqlText string, parsed *sqlparse.Result) *gemini.Analysis {
	gcfg := GetGeminiConfig()
	client, err := gemini.NewClient(gemini.Config{
		Model:   gcfg.Model,
		Timeout: gcfg.TimeoutDuration(),
	})
	if err != nil {
		log.Printf("⚠️  %v (파서 결과만으로 진행)", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*gcfg.TimeoutDuration())
	defer cancel()

	analysis, err := client.Analyze(ctx, sqlText, sqlparse.Digest(parsed))
	if err != nil {
		log.Printf("⚠️  %v (파서 결과만으로 진행)", err)
		return nil
	}
	return analysis
}

func buildReport(r *engine.Result) *report.Report {
	params := make([]report.Param, 0, len(r.Params))
	for _, p := range r.Params {
		params = append(params, report.Param{Name: p.Name, Type: p.Type})
	}
	return &report.Report{
		ProcName:    r.ProcName,
		Description: r.Description,
		Params:      params,
		Input:       report.Section{Tables: r.InputTables, Columns: r.InputColumns},
		Output:      report.Section{Tables: r.OutputTables, Columns: r.OutputColumns},
	}
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runInputFile, "input", "i", "input.txt", "프로시저 원문 파일 (.sql/.txt)")
	runCmd.Flags().StringVarP(&runProcName, "proc", "p", "", "운영 DB에서 가져올 프로시저명")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "출력 디렉터리 (기본: output.dir 설정)")
}
