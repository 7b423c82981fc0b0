package domain

type TrendClass string

const (
	TrendStronglyImproving TrendClass = "strongly_improving"
	TrendImproving         TrendClass = "improving"
	TrendStable            TrendClass = "stable"
	TrendDeclining         TrendClass = "declining"
	TrendStronglyDeclining TrendClass = "strongly_declining"
)

// Score maps a trend class onto the [0,1] component used by council ranking.
func (t TrendClass) Score() float64 {
	switch t {
	case TrendStronglyImproving:
		return 1.0
	case TrendImproving:
		return 0.75
	case TrendDeclining:
		return 0.25
	case TrendStronglyDeclining:
		return 0.0
	default:
		return 0.5
	}
}

// TrendReport summarises an expert's performance trajectory in one category.
type TrendReport struct {
	Class         TrendClass `json:"class"`
	Slope         float64    `json:"slope"`
	PValue        float64    `json:"p_value"`
	Momentum      float64    `json:"momentum"`
	Volatility    float64    `json:"volatility"`
	SampleSize    int        `json:"sample_size"`
	LowConfidence bool       `json:"low_confidence"`
}
