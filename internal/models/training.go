package models

import (
	"strings"
)

// Metrics maps metric names to either raw values or "<n.nn>%" strings once
// normalized.
type Metrics map[string]interface{}

type TrainingRequest struct {
	Algorithm     string     `json:"algorithm"`
	Parameters    Parameters `json:"parameters"`
	Dataset       string     `json:"dataset"`
	DatasetFormat string     `json:"dataset_format,omitempty"`
}

// Format returns the dataset extension, csv unless json was requested.
func (r *TrainingRequest) Format() string {
	if strings.EqualFold(strings.TrimSpace(r.DatasetFormat), "json") {
		return "json"
	}
	return "csv"
}

type TrainingResult struct {
	JobID      string     `json:"job_id,omitempty"`
	Metrics    Metrics    `json:"metrics"`
	Parameters Parameters `json:"parameters"`
	Image      string     `json:"image,omitempty"`
}

type SaveFeaturesRequest struct {
	Features string `json:"features"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
