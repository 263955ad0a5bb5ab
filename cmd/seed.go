package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"proc-mapper/internal/mapping"
)

var (
	seedCount int
	seedClean bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "개발용 매핑표를 만들어 가짜 데이터로 채운다",
	Long: `매핑표 DB에 테이블이 없으면 만들고, 보건소 도메인 어휘로
신구 매핑 행을 생성해 넣습니다. 운영 매핑표 없이 도구를 시험할 때 씁니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, d, cfg, err := openMappingDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("🏥 매핑표 연결: %s (%s)\n", cfg.Table, cfg.Driver)

		seeder := mapping.NewSeeder(db, d, cfg.Table, cfg.Columns)
		if err := seeder.EnsureTable(seedClean); err != nil {
			return err
		}

		log.Printf("%d행 생성 시작...", seedCount)
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(seedCount).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Seeding: "
		})

		inserted, err := seeder.Seed(seedCount, func(done, total int) {
			bar.Set(done)
		})

		uiprogress.Stop()

		if err != nil {
			return err
		}

		// 검증: 실제 행 수 확인
		store := mapping.NewStore(db, d, cfg.Table, cfg.Columns)
		total, err := store.Count()

		fmt.Println("\n📊 결과:")
		fmt.Printf("[✓] 삽입: %d행\n", inserted)
		if err != nil {
			fmt.Printf("[!] 검증 실패: %v\n", err)
		} else {
			fmt.Printf("[✓] 매핑표 현재 행 수: %d\n", total)
		}
		log.Printf("완료! 소요 시간: %s", time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 300, "생성할 행 수")
	seedCmd.Flags().BoolVar(&seedClean, "clean", false, "기존 행을 모두 지우고 새로 채움")
}
