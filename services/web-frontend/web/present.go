package web

import (
	"fmt"
	"math"

	"authentiscan/common/models"
)

// Tone is the color family a value is rendered with
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneCaution Tone = "caution"
	ToneAlert   Tone = "alert"
)

// Confidence thresholds for the gauge color
const (
	highConfidence   = 0.8
	mediumConfidence = 0.6
)

// ConfidenceTone maps a confidence in [0,1] to its color
func ConfidenceTone(confidence float64) Tone {
	switch {
	case confidence >= highConfidence:
		return ToneSuccess
	case confidence >= mediumConfidence:
		return ToneCaution
	default:
		return ToneAlert
	}
}

// LabelTone maps a classification label to its badge color
func LabelTone(label string) Tone {
	switch label {
	case models.LabelOriginal:
		return ToneSuccess
	case models.LabelFake:
		return ToneAlert
	default:
		return ToneCaution
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func percentOf(v float64) int {
	return int(math.Round(clampUnit(v) * 100))
}

// FormatPercent renders a fraction as a whole percentage, e.g. 0.92 -> "92%"
func FormatPercent(v float64) string {
	return fmt.Sprintf("%d%%", percentOf(v))
}

// FormatBytes renders a byte count for display
func FormatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatDuration renders a processing time given in milliseconds
func FormatDuration(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.0f ms", ms)
}

// Badge is the label badge component
type Badge struct {
	Label string
	Tone  Tone
}

// Gauge is the confidence indicator component
type Gauge struct {
	Percent string
	Width   int
	Tone    Tone
}

// ProbabilityRow is one line of the probability breakdown
type ProbabilityRow struct {
	Label   string
	Percent string
	Width   int
}

// ResultView is a classification prepared for rendering
type ResultView struct {
	RequestID        string
	Badge            Badge
	Gauge            Gauge
	Probabilities    []ProbabilityRow
	Explanations     []string
	LowConfidence    bool
	HeatmapAvailable bool
	ProcessingTime   string
}

// NewResultView prepares a classification for the results page
func NewResultView(r models.ClassificationResponse) ResultView {
	return ResultView{
		RequestID: r.RequestID,
		Badge:     Badge{Label: r.Label, Tone: LabelTone(r.Label)},
		Gauge: Gauge{
			Percent: FormatPercent(r.Confidence),
			Width:   percentOf(r.Confidence),
			Tone:    ConfidenceTone(r.Confidence),
		},
		Probabilities: []ProbabilityRow{
			{Label: models.LabelOriginal, Percent: FormatPercent(r.Probabilities.Original), Width: percentOf(r.Probabilities.Original)},
			{Label: models.LabelFake, Percent: FormatPercent(r.Probabilities.Fake), Width: percentOf(r.Probabilities.Fake)},
		},
		Explanations:     r.Explanations,
		LowConfidence:    r.LowConfidenceWarning,
		HeatmapAvailable: r.HeatmapAvailable,
		ProcessingTime:   FormatDuration(r.ProcessingTimeMS),
	}
}
