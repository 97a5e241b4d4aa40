package commands

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexbeta/internal/strategyconfig"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 및 연결 점검",
	Long: `환경 설정, 전략 설정, 데이터베이스와 Redis 연결을 점검합니다.

이 명령어는:
- 환경변수 설정 로드 및 검증
- 전략 YAML 검증 및 경고 출력
- 데이터베이스 Health Check 및 풀 통계
- Redis 연결 여부

Example:
  go run ./cmd/quant check
  go run ./cmd/quant check --strategy config/strategy/index_beta.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	defer a.close()

	sc := a.strategyCfg
	PrintHeader(out, "IndexBeta Check", [][2]string{
		{"Env", a.cfg.Env},
		{"Provider", a.cfg.Provider.Source},
		{"Strategy", sc.Meta.StrategyID + " v" + sc.Meta.Version},
		{"Hash", a.snapshot.ConfigHash},
		{"Timezone", a.location.String()},
		{"Indices", fmt.Sprintf("%d", len(sc.Universe.Indices))},
		{"Unit cash", num(sc.UnitCash())},
	})

	PrintSuccess(out, "Strategy config valid")
	for _, w := range strategyconfig.Warn(sc) {
		PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	if a.db == nil {
		PrintWarning(out, "Database not configured")
	} else {
		ctx, cancel := withTimeout(5 * time.Second)
		defer cancel()

		status, err := a.db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ database %s: %w", redactURL(a.cfg.Database.URL), err)
		}
		PrintSuccess(out, fmt.Sprintf("Database %s (%v)", redactURL(a.cfg.Database.URL), status.ResponseTime))
		fmt.Fprintf(out, "   Connections: %d total, %d idle, %d acquired, %d max\n",
			status.TotalConns, status.IdleConns, status.AcquiredConns, status.MaxConns)
	}

	if a.redis.Enabled() {
		PrintSuccess(out, "Redis connected, history cache on")
	} else {
		PrintWarning(out, "Redis disabled, history cache off")
	}

	return nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
