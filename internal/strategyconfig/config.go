package strategyconfig

import "time"

// Config는 지수 밸류에이션 전략의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Universe Universe `yaml:"universe" json:"universe"`
	History  History  `yaml:"history" json:"history"`
	Sizing   Sizing   `yaml:"sizing" json:"sizing"`
	Schedule Schedule `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
	Benchmark  string `yaml:"benchmark" json:"benchmark"` // index id
}

// Universe 평가 대상 지수와 추종 펀드
type Universe struct {
	Indices []IndexFund `yaml:"indices" json:"indices"`
}

// IndexFund pairs an index with the fund that tracks it
type IndexFund struct {
	Index string `yaml:"index" json:"index"`
	Fund  string `yaml:"fund" json:"fund"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
}

// FundFor returns the fund tracking index, if configured
func (u Universe) FundFor(index string) (IndexFund, bool) {
	for _, f := range u.Indices {
		if f.Index == index {
			return f, true
		}
	}
	return IndexFund{}, false
}

// IndexIDs returns the configured index ids in file order
func (u Universe) IndexIDs() []string {
	ids := make([]string, 0, len(u.Indices))
	for _, f := range u.Indices {
		ids = append(ids, f.Index)
	}
	return ids
}

// History 과거 밸류에이션 구간
type History struct {
	LookbackDays       int    `yaml:"lookback_days" json:"lookback_days"`               // decision window
	ReportLookbackDays int    `yaml:"report_lookback_days" json:"report_lookback_days"` // report window
	Interval           int    `yaml:"interval" json:"interval"`                         // trading days between samples
	Weighting          string `yaml:"weighting" json:"weighting"`                       // market_cap | equal
}

// Sizing 포지션 → 주문 금액 변환
type Sizing struct {
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"` // 10년 국채 금리
	TotalCash    float64 `yaml:"total_cash" json:"total_cash"`
	UnitDivisor  float64 `yaml:"unit_divisor" json:"unit_divisor"`
	MinCash      float64 `yaml:"min_cash" json:"min_cash"` // 이하이면 매수 생략
}

// UnitCash is the purchase amount of a full (1.0) position for one index
func (c *Config) UnitCash() float64 {
	n := len(c.Universe.Indices)
	if n == 0 || c.Sizing.UnitDivisor <= 0 {
		return 0
	}
	return c.Sizing.TotalCash / float64(n) / c.Sizing.UnitDivisor
}

// Schedule 리밸런싱 스케줄
type Schedule struct {
	Rebalance string `yaml:"rebalance" json:"rebalance"` // cron with seconds
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	GitCommit  string    `json:"git_commit"`
	CreatedAt  time.Time `json:"created_at"`
}
