package classifier

// Source weights multiply the blended score by provenance.
const (
	SourceOfficialReports = "official_reports"
	SourceInternalData    = "internal_data"
	SourceManualUpload    = "manual_upload"
	SourceWebScraped      = "web_scraped"

	defaultSourceWeight = 1.0
)

// DefaultSourceWeights returns the built-in provenance table.
func DefaultSourceWeights() map[string]float64 {
	return map[string]float64{
		SourceOfficialReports: 1.2,
		SourceInternalData:    1.15,
		SourceManualUpload:    1.0,
		SourceWebScraped:      0.85,
	}
}

// SourceWeights resolves the multiplier for a source label.
type SourceWeights struct {
	weights map[string]float64
}

// NewSourceWeights layers overrides on top of the defaults.
func NewSourceWeights(overrides map[string]float64) SourceWeights {
	w := DefaultSourceWeights()
	for name, v := range overrides {
		if v > 0 {
			w[name] = v
		}
	}
	return SourceWeights{weights: w}
}

// For returns the weight for source, 1.0 when unknown.
func (s SourceWeights) For(source string) float64 {
	if w, ok := s.weights[source]; ok {
		return w
	}
	return defaultSourceWeight
}
