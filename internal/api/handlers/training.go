package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/theblitlabs/tinyml-runner/internal/api/middleware"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/services"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

type TrainingHandler struct {
	service      services.ITrainingService
	maxBodyBytes int64
}

func NewTrainingHandler(service services.ITrainingService, maxBodyBytes int64) *TrainingHandler {
	return &TrainingHandler{service: service, maxBodyBytes: maxBodyBytes}
}

// Train handles POST /train. The response is held until the job finishes.
func (h *TrainingHandler) Train(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	var req models.TrainingRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		log.Warn().Err(err).Msg("Failed to decode training request")
		writeError(w, err)
		return
	}

	result, err := h.service.Train(r.Context(), &req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("request_id", middleware.RequestID(r.Context())).
			Str("subject", middleware.Subject(r.Context())).
			Str("algorithm", req.Algorithm).
			Msg("Training request failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListJobs handles GET /jobs?limit=&offset=.
func (h *TrainingHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := h.service.ListJobs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*models.TrainingJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *TrainingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "training job not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
