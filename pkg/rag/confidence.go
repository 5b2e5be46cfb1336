package rag

// MaxConfidence caps the reported confidence so an answer is never shown
// as certain. It is a display clamp, not a property of the scores.
const MaxConfidence = 95.0

// EstimateConfidence returns the mean score of results, or 0 when there
// are none.
func EstimateConfidence(results []SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

// ScaleConfidence maps a mean score onto 0-MaxConfidence.
func ScaleConfidence(mean float64) float64 {
	return max(0, min(mean*100, MaxConfidence))
}
