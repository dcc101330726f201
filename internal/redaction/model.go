// Package redaction produces PII redaction suggestions for representation text.
package redaction

import "fmt"

// Marker replaces every character of a redacted span
const Marker = '█'

// Entity is a detected PII span. Offset and Length count Unicode code points.
type Entity struct {
	Text            string  `json:"text"`
	Category        string  `json:"category"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Suggestion is the result of a successful detection run. It is never persisted.
type Suggestion struct {
	Entities     []Entity `json:"entities"`
	RedactedText string   `json:"redactedText"`
}

// Document is one unit of text sent for detection
type Document struct {
	ID   string
	Text string
}

// DocumentError is a detection failure reported for a single document
type DocumentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DocumentResult holds the detection outcome of one document
type DocumentResult struct {
	ID       string
	Entities []Entity
	Err      *DocumentError
}

// DetectOptions are passed through to the detection service
type DetectOptions struct {
	Language   string
	Categories []string
}
