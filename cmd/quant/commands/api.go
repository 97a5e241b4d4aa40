package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/indexbeta/internal/api"
	"github.com/wonny/indexbeta/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                              - Health check
  GET  /metrics                             - Prometheus metrics
  GET  /api/valuation/indices               - 유니버스 조회
  GET  /api/valuation/report                - 전체 분위 리포트
  GET  /api/valuation/{index}/report        - 지수 분위 리포트
  GET  /api/valuation/{index}/decision      - 포지션 결정
  GET  /api/valuation/{index}/decisions     - 저장된 결정 이력
  POST /api/valuation/percentile            - 임의 분포 분위
  POST /api/valuation/position              - 규칙 테이블 평가

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var decisions handlers.DecisionLister
	var health api.HealthChecker
	if a.db != nil {
		decisions = a.decisionRepo
		health = a.db
	}

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}

	valuationHandler := handlers.NewValuationHandler(a.indexBeta, decisions, a.strategyCfg.Universe, a.location, a.log)
	router := api.NewRouter(valuationHandler, health, metricsHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
