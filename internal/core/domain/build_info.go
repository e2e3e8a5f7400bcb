package domain

import "time"

// BuildInfo records the fingerprints of a generated file so unchanged inputs can skip regeneration.
type BuildInfo struct {
	// Key identifies the generated output, e.g. "requirements/prod.txt".
	Key        string    `json:"key,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}
