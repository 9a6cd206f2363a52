// Package report assembles the final analysis report.
package report

import (
	"sort"

	"github.com/keagan/shotlist/internal/models"
)

// Aggregate builds the report from model-grounded records only. Duration is
// the latest frame timestamp.
func Aggregate(title, sourceURL string, shots []models.ShotAnalysis, style models.OverallStyle, frames []models.Frame) *models.Report {
	ordered := make([]models.ShotAnalysis, len(shots))
	copy(ordered, shots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	var duration float64
	for _, f := range frames {
		if f.Timestamp > duration {
			duration = f.Timestamp
		}
	}

	return &models.Report{
		Title:        title,
		SourceURL:    sourceURL,
		Duration:     duration,
		OverallStyle: style,
		Shots:        ordered,
	}
}
