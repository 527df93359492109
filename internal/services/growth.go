package services

import "github.com/terraincognita07/nestling/internal/models"

// GrowthPercentile has no reference growth data behind it and always reports
// that the percentile is unknown.
func GrowthPercentile(models.GrowthDetails) (float64, bool) {
	return 0, false
}
