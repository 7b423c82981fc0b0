package service

import (
	"context"
	"math"
	"time"

	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// trendMinSamples is the floor below which the analyzer reports a
	// low-confidence stable trend instead of fitting a regression.
	trendMinSamples = 10

	rollingWindow = 5

	// recencyHalfLife controls how fast old observations lose weight.
	recencyHalfLife = 14 * 24 * time.Hour

	significanceP       = 0.05
	strongSignificanceP = 0.01
)

type TrendPoint struct {
	At         time.Time
	Correct    bool
	Confidence float32
}

// TrendAnalyzer derives performance trajectory from a tracker's history:
// a recency-weighted linear regression of rolling accuracy against time.
type TrendAnalyzer struct {
	tracker *TrackerService
	logger  *zap.Logger
}

func NewTrendAnalyzer(tracker *TrackerService, logger *zap.Logger) *TrendAnalyzer {
	return &TrendAnalyzer{tracker: tracker, logger: logger}
}

func (a *TrendAnalyzer) Analyze(ctx context.Context, expertID uuid.UUID, category string) (*domain.TrendReport, error) {
	points, err := a.tracker.History(ctx, expertID, category)
	if err != nil {
		return nil, err
	}
	report := AnalyzeSeries(points)
	return &report, nil
}

// AnalyzeSeries fits the weighted regression over an already-fetched series.
// Fewer than trendMinSamples points yield a low-confidence stable report,
// never an error.
func AnalyzeSeries(points []TrendPoint) domain.TrendReport {
	n := len(points)
	if n < trendMinSamples {
		return domain.TrendReport{
			Class:         domain.TrendStable,
			SampleSize:    n,
			LowConfidence: true,
		}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	ws := make([]float64, n)

	origin := points[0].At
	last := points[n-1].At
	for i, p := range points {
		xs[i] = p.At.Sub(origin).Hours() / 24
		ys[i] = rollingAccuracy(points, i)
		age := last.Sub(p.At)
		ws[i] = math.Exp2(-age.Hours() / recencyHalfLife.Hours())
	}

	slope, pValue, volatility, ok := weightedFit(xs, ys, ws)
	if !ok {
		return domain.TrendReport{
			Class:         domain.TrendStable,
			SampleSize:    n,
			LowConfidence: true,
		}
	}

	recentSlope, _, _, recentOK := weightedFit(xs[n/2:], ys[n/2:], ws[n/2:])
	momentum := 0.0
	if recentOK {
		momentum = recentSlope - slope
	}

	return domain.TrendReport{
		Class:      classifyTrend(slope, pValue),
		Slope:      slope,
		PValue:     pValue,
		Momentum:   momentum,
		Volatility: volatility,
		SampleSize: n,
	}
}

func rollingAccuracy(points []TrendPoint, i int) float64 {
	start := i - rollingWindow + 1
	if start < 0 {
		start = 0
	}
	correct := 0
	for _, p := range points[start : i+1] {
		if p.Correct {
			correct++
		}
	}
	return float64(correct) / float64(i+1-start)
}

// weightedFit returns the slope of the weighted least-squares line, a
// two-sided p-value for the slope (normal approximation of the t statistic)
// and the weighted residual standard deviation. ok is false when x carries
// no spread.
func weightedFit(xs, ys, ws []float64) (slope, pValue, volatility float64, ok bool) {
	n := len(xs)
	if n < 3 {
		return 0, 1, 0, false
	}

	var sumW, meanX, meanY float64
	for i := range xs {
		sumW += ws[i]
		meanX += ws[i] * xs[i]
		meanY += ws[i] * ys[i]
	}
	if sumW == 0 {
		return 0, 1, 0, false
	}
	meanX /= sumW
	meanY /= sumW

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += ws[i] * dx * dx
		sxy += ws[i] * dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return 0, 1, 0, false
	}

	slope = sxy / sxx
	intercept := meanY - slope*meanX

	var sse float64
	for i := range xs {
		e := ys[i] - (intercept + slope*xs[i])
		sse += ws[i] * e * e
	}
	volatility = math.Sqrt(sse / sumW)

	if n <= 2 || sse == 0 {
		// A perfect fit: significance is as strong as it gets.
		if slope == 0 {
			return slope, 1, volatility, true
		}
		return slope, 0, volatility, true
	}

	sigma2 := (sse / sumW) * float64(n) / float64(n-2)
	se := math.Sqrt(sigma2 / sxx)
	t := slope / se
	pValue = 2 * (1 - normalCDF(math.Abs(t)))

	return slope, pValue, volatility, true
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func classifyTrend(slope, pValue float64) domain.TrendClass {
	if pValue > significanceP || slope == 0 {
		return domain.TrendStable
	}
	strong := pValue <= strongSignificanceP
	if slope > 0 {
		if strong {
			return domain.TrendStronglyImproving
		}
		return domain.TrendImproving
	}
	if strong {
		return domain.TrendStronglyDeclining
	}
	return domain.TrendDeclining
}
