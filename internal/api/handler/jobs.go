package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/perchlabs/perch/internal/api/response"
	"github.com/perchlabs/perch/internal/jobs"
)

// NewListJobsHandler returns the handler for GET /api/v1/jobs.
func NewListJobsHandler(tracker *jobs.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, tracker.Recent())
	}
}

// NewActiveJobsHandler returns the handler for GET /api/v1/jobs/active. The
// web client polls this endpoint to drive its progress badge.
func NewActiveJobsHandler(tracker *jobs.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, tracker.Active())
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(tracker *jobs.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be an integer", nil)
			return
		}

		job, ok := tracker.Get(id)
		if !ok {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job not found", nil)
			return
		}

		response.JSON(w, job)
	}
}
