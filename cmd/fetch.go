package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"proc-mapper/internal/source"
)

var (
	fetchProcName string
	fetchOutFile  string
	fetchList     bool
	fetchPrefix   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "운영 DB에서 프로시저 원문을 내려받는다",
	Long: `sys.procedures / sys.sql_modules에서 프로시저 정의를 조회합니다.

-p 로 한 건을 파일로 저장하거나, --list 로 접두사별 목록을 봅니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSourceDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reader := source.NewReader(db)

		if fetchList {
			prefix := fetchPrefix
			if prefix == "" {
				prefix = viper.GetString("scan.prefix")
			}
			procs, err := reader.List(prefix)
			if err != nil {
				return err
			}
			fmt.Printf("📋 %s* 프로시저 %d개:\n", prefix, len(procs))
			for i, p := range procs {
				fmt.Printf("[%03d] %-50s %s (%d자)\n",
					i+1, p.Name, p.ModifyDate.Format("2006-01-02"), p.Length)
			}
			return nil
		}

		if fetchProcName == "" {
			return fmt.Errorf("-p <프로시저명> 또는 --list가 필요합니다")
		}

		def, err := reader.Definition(fetchProcName)
		if err != nil {
			return err
		}

		out := fetchOutFile
		if out == "" {
			out = fetchProcName + ".sql"
		}
		if err := os.WriteFile(out, []byte(def), 0o644); err != nil {
			return fmt.Errorf("파일 저장 실패 (%s): %w", out, err)
		}
		fmt.Printf("[✓] %s → %s (%d자)\n", fetchProcName, out, len(def))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchProcName, "proc", "p", "", "내려받을 프로시저명")
	fetchCmd.Flags().StringVarP(&fetchOutFile, "out", "o", "", "저장 파일명 (기본: <프로시저명>.sql)")
	fetchCmd.Flags().BoolVar(&fetchList, "list", false, "접두사로 시작하는 프로시저 목록 출력")
	fetchCmd.Flags().StringVar(&fetchPrefix, "prefix", "", "목록 조회 접두사 (기본: scan.prefix 설정)")
}
