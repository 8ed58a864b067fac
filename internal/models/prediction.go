package models

type PredictRequest struct {
	Features  string `json:"features"`
	Algorithm string `json:"algorithm"`
	K         *int   `json:"k,omitempty"`
	JobID     string `json:"job_id,omitempty"`
}

type PredictionValue struct {
	Prediction interface{} `json:"prediction"`
}

type PredictResponse struct {
	Prediction *PredictionValue `json:"prediction,omitempty"`
}
