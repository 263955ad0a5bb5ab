package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"proc-mapper/internal/scan"
)

var (
	scanSrcDir string
	scanPrefix string
	scanOut    string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "C# 소스에서 프로시저 호출부를 찾아 CSV로 만든다",
	Long: `레거시 C# 소스 트리를 훑어 접두사가 붙은 프로시저명 문자열 리터럴을 찾고
폼명/파일경로/라인번호/호출패턴을 담은 인벤토리 CSV를 만듭니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := scanPrefix
		if prefix == "" {
			prefix = viper.GetString("scan.prefix")
		}
		out := scanOut
		if out == "" {
			out = filepath.Join(viper.GetString("output.dir"), "proc_calls.csv")
		}

		fmt.Printf("🔍 스캔 시작: %s (접두사 %s)\n", scanSrcDir, prefix)

		calls, err := scan.NewScanner(prefix).ScanDir(scanSrcDir)
		if err != nil {
			return err
		}

		if err := scan.WriteCSV(out, calls); err != nil {
			return err
		}

		summary := scan.Summarize(calls)
		fmt.Printf("\n📊 프로시저 %d종, 호출 %d건:\n", len(summary), len(calls))
		for _, s := range summary {
			fmt.Printf("[✓] %-50s %d건\n", s.Procedure, s.Count)
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("CSV: %s\n", out)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSrcDir, "src", "", "C# 소스 루트 디렉터리 (필수)")
	scanCmd.Flags().StringVar(&scanPrefix, "prefix", "", "프로시저명 접두사 (기본: scan.prefix 설정)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "결과 CSV 경로 (기본: <output.dir>/proc_calls.csv)")
	scanCmd.MarkFlagRequired("src")
}
