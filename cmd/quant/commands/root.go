package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool

	// gitCommit is stamped at build time:
	//   go build -ldflags "-X github.com/wonny/indexbeta/cmd/quant/commands.gitCommit=$(git rev-parse HEAD)"
	gitCommit = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "IndexBeta - 지수 밸류에이션 분위 기반 포지션 결정",
	Long: `IndexBeta Unified CLI

지수 PE/PB를 과거 분포의 분위로 환산하고
규칙 테이블과 Kelly 사이징으로 포지션 증감을 결정합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant valuation decide 000300.XSHG
  go run ./cmd/quant valuation report
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default is $STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
