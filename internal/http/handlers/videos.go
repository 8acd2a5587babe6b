package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/reconcile"
)

type videoStatusResponse struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	State          string    `json:"state"`
	ResultLocation string    `json:"result_location,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Progress       *int      `json:"progress,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type outcomeResponse struct {
	JobID         string `json:"job_id"`
	Outcome       string `json:"outcome"`
	PreviousState string `json:"previous_state"`
	NewState      string `json:"new_state"`
	Updated       bool   `json:"updated"`
	Error         string `json:"error,omitempty"`
}

type recoverResponse struct {
	TotalChecked  int               `json:"total_checked"`
	Updated       int               `json:"updated"`
	StillInFlight int               `json:"still_in_flight"`
	Unresolvable  int               `json:"unresolvable"`
	Errored       int               `json:"errored"`
	Results       []outcomeResponse `json:"results"`
}

// VideoStatus returns the stored record plus a synthetic progress percent
// while the job is in flight. The percent is derived from elapsed time only
// and is never persisted.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Store.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	resp := videoStatusResponse{
		ID:             job.ID,
		Provider:       job.Provider,
		State:          string(job.State),
		ResultLocation: presentableLocation(job),
		ErrorMessage:   job.ErrorMessage,
		SubmittedAt:    job.SubmittedAt,
		UpdatedAt:      job.UpdatedAt,
	}
	if job.InFlight() {
		percent := a.Estimator.EstimateAt(job.SubmittedAt, time.Now())
		resp.Progress = &percent
	}
	a.json(w, http.StatusOK, resp)
}

// VideoCheck reconciles one job against its provider on demand.
func (a *App) VideoCheck(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	outcome, err := a.Reconciler.CheckOne(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("videos: check failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to check job")
		return
	}
	a.json(w, http.StatusOK, presentOutcome(outcome))
}

// VideosRecover runs a bulk recovery pass over all in-flight jobs.
func (a *App) VideosRecover(w http.ResponseWriter, r *http.Request) {
	result, err := a.Reconciler.RecoverAll(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("videos: recovery pass failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to recover jobs")
		return
	}
	resp := recoverResponse{
		TotalChecked:  result.TotalChecked,
		Updated:       result.Updated,
		StillInFlight: result.StillInFlight,
		Unresolvable:  result.Unresolvable,
		Errored:       result.Errored,
		Results:       make([]outcomeResponse, 0, len(result.Results)),
	}
	for _, outcome := range result.Results {
		resp.Results = append(resp.Results, presentOutcome(outcome))
	}
	a.json(w, http.StatusOK, resp)
}

func presentOutcome(outcome reconcile.Outcome) outcomeResponse {
	resp := outcomeResponse{
		JobID:         outcome.JobID,
		Outcome:       string(outcome.Kind),
		PreviousState: string(outcome.PreviousState),
		NewState:      string(outcome.NewState),
		Updated:       outcome.Updated,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	return resp
}

// presentableLocation hides the sentinel placeholder from consumers: an
// unmigrated pending row has no real result location yet.
func presentableLocation(job *domain.GenerationJob) string {
	if _, ok := reconcile.SentinelLocation(job.ResultLocation); ok {
		return ""
	}
	return job.ResultLocation
}
