package handlers

import (
	"net/http"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/services"
)

type PredictionHandler struct {
	service      services.IPredictionService
	maxBodyBytes int64
}

func NewPredictionHandler(service services.IPredictionService, maxBodyBytes int64) *PredictionHandler {
	return &PredictionHandler{service: service, maxBodyBytes: maxBodyBytes}
}

// Predict handles POST /predict.
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Predict(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveFeatures handles POST /save-features.
func (h *PredictionHandler) SaveFeatures(w http.ResponseWriter, r *http.Request) {
	var req models.SaveFeaturesRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.service.SaveFeatures(r.Context(), &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Features saved"})
}
