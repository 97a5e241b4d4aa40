package contracts

import "time"

// Fundamentals is one constituent's point-in-time valuation data.
// Values a provider does not report are 0.
type Fundamentals struct {
	Code                 string  `json:"code"`
	PERatio              float64 `json:"pe_ratio"`
	PBRatio              float64 `json:"pb_ratio"`
	CirculatingMarketCap float64 `json:"circulating_market_cap"`
}

// ValuationSample is the aggregate valuation of an index on one date
// ⭐ SSOT: 지수 PE/PB 샘플
type ValuationSample struct {
	Date  time.Time `json:"date"`
	PE    float64   `json:"pe"`
	PB    float64   `json:"pb"`
	ROE   float64   `json:"roe"` // pb/pe, valid only when HasPE && HasPB
	HasPE bool      `json:"has_pe"`
	HasPB bool      `json:"has_pb"`
}

// Complete reports whether pe, pb and the roe proxy are all present
func (s ValuationSample) Complete() bool {
	return s.HasPE && s.HasPB
}

// ValuationHistory is a date-ordered series of complete samples
type ValuationHistory struct {
	IndexID  string            `json:"index_id"`
	Begin    time.Time         `json:"begin"`
	End      time.Time         `json:"end"`
	Interval int               `json:"interval"`
	Samples  []ValuationSample `json:"samples"`
	Failed   int               `json:"failed,omitempty"` // sample dates whose fetch errored
}

// Len returns the number of samples
func (h *ValuationHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Samples)
}

// Empty reports whether the history holds no usable samples
func (h *ValuationHistory) Empty() bool {
	return h.Len() == 0
}

// Partial reports whether any sample date was lost to a fetch failure
// rather than to missing data
func (h *ValuationHistory) Partial() bool {
	return h != nil && h.Failed > 0
}

// PEs returns the pe column
func (h *ValuationHistory) PEs() []float64 {
	return h.column(func(s ValuationSample) float64 { return s.PE })
}

// PBs returns the pb column
func (h *ValuationHistory) PBs() []float64 {
	return h.column(func(s ValuationSample) float64 { return s.PB })
}

// ROEs returns the roe proxy column
func (h *ValuationHistory) ROEs() []float64 {
	return h.column(func(s ValuationSample) float64 { return s.ROE })
}

func (h *ValuationHistory) column(get func(ValuationSample) float64) []float64 {
	out := make([]float64, 0, h.Len())
	if h == nil {
		return out
	}
	for _, s := range h.Samples {
		out = append(out, get(s))
	}
	return out
}
