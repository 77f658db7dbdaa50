// Package lingua provides an offline language detector used as a fast
// path before the LLM detector.
package lingua

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector wraps a lingua language detector. Building the detector
// loads language models, so construct once and reuse.
type Detector struct {
	det lingua.LanguageDetector

	// minConfidence below which the result is discarded and the remote
	// detector is consulted instead.
	minConfidence float64
}

// New builds a detector over all supported languages.
func New() *Detector {
	return &Detector{
		det: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build(),
		minConfidence: 0.7,
	}
}

// Detect returns the language name ("English", "French", ...) and
// whether the detection is confident enough to use. Very short strings
// rarely clear the confidence bar, which is intended: they fall through
// to the remote detector.
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	lang, exists := d.det.DetectLanguageOf(text)
	if !exists {
		return "", false
	}
	if d.det.ComputeLanguageConfidence(text, lang) < d.minConfidence {
		return "", false
	}
	return lang.String(), true
}
