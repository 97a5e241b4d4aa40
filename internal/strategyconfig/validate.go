package strategyconfig

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// cronParser matches the scheduler (seconds field first)
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Universe ===
	if len(cfg.Universe.Indices) == 0 {
		return ValidationError{"universe.indices", "must not be empty"}
	}
	seen := make(map[string]bool, len(cfg.Universe.Indices))
	for i, f := range cfg.Universe.Indices {
		field := fmt.Sprintf("universe.indices[%d]", i)
		if f.Index == "" {
			return ValidationError{field + ".index", "required"}
		}
		if f.Fund == "" {
			return ValidationError{field + ".fund", "required"}
		}
		if seen[f.Index] {
			return ValidationError{field + ".index", fmt.Sprintf("duplicate index %s", f.Index)}
		}
		seen[f.Index] = true
	}
	if cfg.Meta.Benchmark != "" && !seen[cfg.Meta.Benchmark] {
		return ValidationError{"meta.benchmark", "must be one of universe.indices"}
	}

	// === History ===
	if cfg.History.LookbackDays <= 0 {
		return ValidationError{"history.lookback_days", "must be > 0"}
	}
	if cfg.History.ReportLookbackDays <= 0 {
		return ValidationError{"history.report_lookback_days", "must be > 0"}
	}
	if cfg.History.Interval <= 0 {
		return ValidationError{"history.interval", "must be > 0"}
	}
	switch cfg.History.Weighting {
	case "market_cap", "equal":
	default:
		return ValidationError{"history.weighting", "must be market_cap or equal"}
	}

	// === Sizing ===
	if cfg.Sizing.RiskFreeRate <= 0 || cfg.Sizing.RiskFreeRate >= 1 {
		return ValidationError{"sizing.risk_free_rate", "must be in (0, 1)"}
	}
	if cfg.Sizing.TotalCash <= 0 {
		return ValidationError{"sizing.total_cash", "must be > 0"}
	}
	if cfg.Sizing.UnitDivisor <= 0 {
		return ValidationError{"sizing.unit_divisor", "must be > 0"}
	}
	if cfg.Sizing.MinCash < 0 {
		return ValidationError{"sizing.min_cash", "must be >= 0"}
	}

	// === Schedule ===
	if cfg.Schedule.Rebalance == "" {
		return ValidationError{"schedule.rebalance", "required"}
	}
	if _, err := cronParser.Parse(cfg.Schedule.Rebalance); err != nil {
		return ValidationError{"schedule.rebalance", err.Error()}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 3년 미만 이력은 백분위 신뢰도 낮음
	if cfg.History.LookbackDays < 3*365 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOOKBACK",
			Message: "lookback < 3 years: percentiles cover less than one market cycle",
		})
	}

	// 샘플 수가 너무 적으면 10분위 보간이 거칠어짐
	if cfg.History.Interval > 0 {
		if samples := cfg.History.LookbackDays * 5 / 7 / cfg.History.Interval; samples < 50 {
			warnings = append(warnings, Warning{
				Code:    "FEW_SAMPLES",
				Message: fmt.Sprintf("about %d samples per history: decile breakpoints will be coarse", samples),
			})
		}
	}

	if cfg.Sizing.RiskFreeRate > 0.1 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_RISK_FREE_RATE",
			Message: "risk_free_rate > 10%: earnings-yield rules will almost always sell",
		})
	}

	if cfg.UnitCash() < cfg.Sizing.MinCash {
		warnings = append(warnings, Warning{
			Code:    "UNIT_BELOW_MIN_CASH",
			Message: "unit cash is below min_cash: partial purchases are skipped",
		})
	}

	return warnings
}
