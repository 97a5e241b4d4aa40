// Package valuation aggregates constituent fundamentals into index-level
// pe/pb samples and walks the trading calendar to build their history.
package valuation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/pkg/logger"
)

// Weighting selects how constituent ratios are combined
type Weighting string

const (
	// WeightingMarketCap weighs each constituent by circulating market cap
	WeightingMarketCap Weighting = "market_cap"
	// WeightingEqual weighs every constituent equally (harmonic mean)
	WeightingEqual Weighting = "equal"
)

// ParseWeighting maps a config value onto a Weighting.
// An empty string selects market cap weighting.
func ParseWeighting(s string) (Weighting, error) {
	switch Weighting(s) {
	case "", WeightingMarketCap:
		return WeightingMarketCap, nil
	case WeightingEqual:
		return WeightingEqual, nil
	default:
		return "", fmt.Errorf("%w: unknown weighting %q", contracts.ErrInvalidInput, s)
	}
}

// Sampler computes the aggregate valuation of an index on one date
// ⭐ SSOT: 지수 PE/PB 집계는 여기서만
type Sampler struct {
	constituents contracts.ConstituentProvider
	fundamentals contracts.FundamentalsProvider
	weighting    Weighting
	logger       *logger.Logger
}

// NewSampler creates a sampler
func NewSampler(constituents contracts.ConstituentProvider, fundamentals contracts.FundamentalsProvider, weighting Weighting, log *logger.Logger) *Sampler {
	if weighting == "" {
		weighting = WeightingMarketCap
	}
	return &Sampler{
		constituents: constituents,
		fundamentals: fundamentals,
		weighting:    weighting,
		logger:       log,
	}
}

// Weighting returns the sampler's weighting mode
func (s *Sampler) Weighting() Weighting {
	return s.weighting
}

// Sample returns the index valuation on date. An index without a single
// constituent reporting a positive pe yields an absent sample and no error;
// provider failures are returned.
func (s *Sampler) Sample(ctx context.Context, indexID string, date time.Time) (contracts.ValuationSample, error) {
	sample := contracts.ValuationSample{Date: date}

	codes, err := s.constituents.GetIndexConstituents(ctx, indexID, date)
	if err != nil {
		return sample, fmt.Errorf("get constituents of %s on %s: %w", indexID, date.Format("2006-01-02"), err)
	}
	if len(codes) == 0 {
		return sample, nil
	}

	funds, err := s.fundamentals.GetFundamentals(ctx, codes, date)
	if err != nil {
		return sample, fmt.Errorf("get fundamentals of %s on %s: %w", indexID, date.Format("2006-01-02"), err)
	}

	// pe-positive filter; pb is aggregated over the same set
	rows := make([]contracts.Fundamentals, 0, len(codes))
	for _, code := range codes {
		f, ok := funds[code]
		if !ok || !(f.PERatio > 0) {
			continue
		}
		rows = append(rows, f)
	}

	pe, pb := Aggregate(rows, s.weighting)

	if valid(pe) {
		sample.PE = pe
		sample.HasPE = true
	}
	if valid(pb) {
		sample.PB = pb
		sample.HasPB = true
	}
	if sample.Complete() {
		sample.ROE = sample.PB / sample.PE
	}

	s.logger.WithFields(map[string]interface{}{
		"index":        indexID,
		"date":         date.Format("2006-01-02"),
		"constituents": len(codes),
		"pe_positive":  len(rows),
		"pe":           sample.PE,
		"pb":           sample.PB,
	}).Debug("Sampled index valuation")

	return sample, nil
}

// Aggregate combines already-filtered constituent rows into index pe and
// pb. Rows with pb 0 are treated as unreported and left out of the pb
// denominator. NaN is returned for an aggregate with nothing to divide by.
func Aggregate(rows []contracts.Fundamentals, weighting Weighting) (pe, pb float64) {
	if len(rows) == 0 {
		return math.NaN(), math.NaN()
	}

	switch weighting {
	case WeightingEqual:
		var invPE, invPB float64
		for _, r := range rows {
			invPE += 1 / r.PERatio
			if r.PBRatio != 0 {
				invPB += 1 / r.PBRatio
			}
		}
		n := float64(len(rows))
		return safeDiv(n, invPE), safeDiv(n, invPB)

	default:
		var capSum, capOverPE, capOverPB float64
		for _, r := range rows {
			capSum += r.CirculatingMarketCap
			capOverPE += r.CirculatingMarketCap / r.PERatio
			if r.PBRatio != 0 {
				capOverPB += r.CirculatingMarketCap / r.PBRatio
			}
		}
		return safeDiv(capSum, capOverPE), safeDiv(capSum, capOverPB)
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// valid rejects NaN, ±Inf and non-positive aggregates
func valid(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
