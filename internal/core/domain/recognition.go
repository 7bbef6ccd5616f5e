package domain

// RecognitionMode selects which recognition backend serves a request.
type RecognitionMode string

const (
	ModeOnDevice          RecognitionMode = "on-device"
	ModeCloudLowFidelity  RecognitionMode = "cloud-low"
	ModeCloudHighFidelity RecognitionMode = "cloud-high"
)

// RecognizedLine is one recognized text line with its bounding box in
// image coordinates.
type RecognizedLine struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// RecognizedText is the structured result of a recognition backend call.
// Backend records which mode actually served the request, which can
// differ from the requested mode when quota routing falls back.
type RecognizedText struct {
	Text    string           `json:"text"`
	Lines   []RecognizedLine `json:"lines,omitempty"`
	Backend RecognitionMode  `json:"backend,omitempty"`
}

// RecognizeOptions control backend selection and spell normalization for
// one recognition call. The mode is evaluated once per call, never cached.
type RecognizeOptions struct {
	Mode              RecognitionMode `json:"mode"`
	SpellcheckEnabled bool            `json:"spellcheck_enabled"`
}
