package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "proc-mapper",
	Short: "MSSQL 저장 프로시저 테이블/컬럼 매핑 추출기",
	Long: `
  ____  ____   ___   ____   __  __    _    ____  ____  _____ ____
 |  _ \|  _ \ / _ \ / ___| |  \/  |  / \  |  _ \|  _ \| ____|  _ \
 | |_) | |_) | | | | |     | |\/| | / _ \ | |_) | |_) |  _| | |_) |
 |  __/|  _ <| |_| | |___  | |  | |/ ___ \|  __/|  __/| |___|  _ <
 |_|   |_| \_\\___/ \____| |_|  |_/_/   \_\_|   |_|   |_____|_| \_\

PROC MAPPER 🏥 - 저장 프로시저의 테이블/컬럼 사용을 분석해
신구 매핑표와 대조한 Excel/CSV 보고서를 만듭니다.
`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./proc-mapper.yaml)")

	// 설정 파일이 없어도 돌아가는 기본값
	viper.SetDefault("mapping.driver", "oracle")
	viper.SetDefault("mapping.table", "OHIS2015_SCHEMA_COMMENT")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", 60)
	viper.SetDefault("output.dir", "output")
	viper.SetDefault("scan.prefix", "UP_NBOGUN_")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			exePath := filepath.Dir(ex)
			viper.AddConfigPath(exePath)
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("proc-mapper")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
