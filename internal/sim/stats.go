package sim

import (
	"math"
	"sort"

	"dormtycoon/internal/game"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a batch of runs.
type Summary struct {
	Runs           int                  `json:"runs"`
	Outcomes       map[game.Outcome]int `json:"outcomes"`
	WinRate        float64              `json:"win_rate"`
	MeanAssets     float64              `json:"mean_assets"`
	StdDevAssets   float64              `json:"stddev_assets"`
	MinAssets      float64              `json:"min_assets"`
	P10Assets      float64              `json:"p10_assets"`
	MedianAssets   float64              `json:"median_assets"`
	P90Assets      float64              `json:"p90_assets"`
	MaxAssets      float64              `json:"max_assets"`
	MeanDays       float64              `json:"mean_days"`
	MeanRejected   float64              `json:"mean_rejected"`
	MeanDividends  float64              `json:"mean_dividends"`
	TotalCrashes   int                  `json:"total_crashes"`
	TotalDilemmas  int                  `json:"total_dilemmas"`
	SkillAssetCorr float64              `json:"skill_asset_corr"`
}

// Summarize computes batch statistics. SkillAssetCorr is the Pearson
// correlation between final skill and final assets, zero when either series
// is constant.
func Summarize(results []RunResult) Summary {
	s := Summary{Runs: len(results), Outcomes: map[game.Outcome]int{}}
	if len(results) == 0 {
		return s
	}

	assets := make([]float64, len(results))
	skills := make([]float64, len(results))
	days := make([]float64, len(results))
	rejected := make([]float64, len(results))
	dividends := make([]float64, len(results))
	for i, r := range results {
		s.Outcomes[r.Outcome]++
		s.TotalCrashes += r.Crashes
		s.TotalDilemmas += r.Dilemmas
		assets[i] = r.FinalAssets
		skills[i] = float64(r.FinalSkill)
		days[i] = float64(r.Days)
		rejected[i] = float64(r.Rejected)
		dividends[i] = r.Dividends
	}
	s.WinRate = float64(s.Outcomes[game.OutcomeWin]) / float64(len(results))
	s.MeanDays = stat.Mean(days, nil)
	s.MeanRejected = stat.Mean(rejected, nil)
	s.MeanDividends = stat.Mean(dividends, nil)
	if len(results) > 1 {
		s.StdDevAssets = stat.StdDev(assets, nil)
		if c := stat.Correlation(skills, assets, nil); !math.IsNaN(c) {
			s.SkillAssetCorr = c
		}
	}

	sorted := append([]float64(nil), assets...)
	sort.Float64s(sorted)
	s.MeanAssets = stat.Mean(sorted, nil)
	s.MinAssets = floats.Min(sorted)
	s.MaxAssets = floats.Max(sorted)
	s.P10Assets = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	s.MedianAssets = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P90Assets = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return s
}
