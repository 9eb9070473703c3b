package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/fmsuplink/internal/auth"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/middleware"
	"infinite-experiment/fmsuplink/internal/models/dtos"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
	"infinite-experiment/fmsuplink/internal/models/entities"
	"infinite-experiment/fmsuplink/internal/services"
)

// maxOFPBytes bounds a posted OFP document
const maxOFPBytes = 8 << 20

// Uplinker is the route reconstruction service
type Uplinker interface {
	Classify(doc *dtos.OFPDocument) extract.RouteSummary
	Uplink(ctx context.Context, pilotID string, opts services.UplinkOptions) (*services.UplinkResult, error)
	UplinkDocument(ctx context.Context, doc *dtos.OFPDocument, opts services.UplinkOptions) (*services.UplinkResult, error)
}

// JobQueue tracks asynchronous uplink runs
type JobQueue interface {
	Enqueue(ctx context.Context, pilotID string, procedures bool, requestedBy string) (*responses.UplinkJobResponse, error)
	Get(jobID string) (*responses.UplinkJobResponse, error)
}

// HistoryReader lists past uplink runs
type HistoryReader interface {
	ListByPilot(ctx context.Context, pilotID string, limit int) ([]entities.UplinkHistory, error)
	GetByID(ctx context.Context, id string) (*entities.UplinkHistory, error)
}

// NavCachePurger drops cached nav database lookups
type NavCachePurger interface {
	Purge()
}

func decodeOFP(w http.ResponseWriter, r *http.Request) (*dtos.OFPDocument, bool) {
	var doc dtos.OFPDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOFPBytes)).Decode(&doc); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid OFP document: "+err.Error())
		return nil, false
	}
	return &doc, true
}

// proceduresParam reads ?procedures=. Absent means the server default.
func proceduresParam(r *http.Request) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("procedures"))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func uplinkOptions(w http.ResponseWriter, r *http.Request) (services.UplinkOptions, bool) {
	procedures, err := proceduresParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "procedures must be true or false")
		return services.UplinkOptions{}, false
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return services.UplinkOptions{Procedures: procedures, SkipCache: refresh}, true
}

// respondWithRun writes an uplink outcome. A failed run still carries the
// partial route.
func respondWithRun(w http.ResponseWriter, result *services.UplinkResult, err error) {
	if result == nil {
		status, msg := statusForError(err)
		respondWithError(w, status, msg)
		return
	}

	resp := services.UplinkResponse(result, err)
	if err != nil {
		status, msg := statusForError(err)
		respondWithFailure(w, status, msg, resp)
		return
	}
	respondWithSuccess(w, http.StatusOK, resp)
}

// ClassifyHandler handles POST /api/v1/navlog/classify
//
// @Summary Classify a navigation log
// @Description Groups the navlog of a posted OFP into route chunks without touching the nav database.
// @Tags Navlog
// @Accept json
// @Produce json
// @Success 200 {object} responses.ClassifyResponse
// @Failure 400 {object} responses.APIResponse[any]
// @Router /api/v1/navlog/classify [post]
func ClassifyHandler(svc Uplinker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := decodeOFP(w, r)
		if !ok {
			return
		}
		summary := svc.Classify(doc)
		respondWithSuccess(w, http.StatusOK, services.ClassifyResponse(summary))
	}
}

// UplinkDocumentHandler handles POST /api/v1/navlog/uplink
//
// @Summary Build a route from a posted OFP
// @Tags Navlog
// @Accept json
// @Produce json
// @Param procedures query bool false "Attach departure and arrival procedures"
// @Success 200 {object} responses.UplinkResponse
// @Failure 422 {object} responses.UplinkResponse
// @Router /api/v1/navlog/uplink [post]
func UplinkDocumentHandler(svc Uplinker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, ok := uplinkOptions(w, r)
		if !ok {
			return
		}
		doc, ok := decodeOFP(w, r)
		if !ok {
			return
		}

		result, err := svc.UplinkDocument(r.Context(), doc, opts)
		if err != nil {
			logging.Warn("Posted OFP uplink failed", "error", err, "caller", auth.SubjectOf(r.Context()))
		}
		respondWithRun(w, result, err)
	}
}

// UplinkHandler handles POST /api/v1/uplink/{pilot_id}
//
// @Summary Uplink the pilot's latest OFP
// @Description Fetches the latest OFP of a pilot and rebuilds its route against the nav database.
// @Tags Uplink
// @Produce json
// @Param pilot_id path string true "Username or numeric pilot ID"
// @Param procedures query bool false "Attach departure and arrival procedures"
// @Param refresh query bool false "Bypass the OFP cache"
// @Success 200 {object} responses.UplinkResponse
// @Failure 404 {object} responses.APIResponse[any]
// @Failure 422 {object} responses.UplinkResponse
// @Failure 502 {object} responses.APIResponse[any]
// @Router /api/v1/uplink/{pilot_id} [post]
func UplinkHandler(svc Uplinker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pilotID := chi.URLParam(r, "pilot_id")
		opts, ok := uplinkOptions(w, r)
		if !ok {
			return
		}

		log := logging.WithRequest(middleware.RequestIDFrom(r.Context()), pilotID, r.URL.Path)
		result, err := svc.Uplink(r.Context(), pilotID, opts)
		if err != nil {
			log.Warnw("Uplink failed", "error", err)
		} else {
			log.Infow("Uplink done", "legs", result.Plan.Len(), "duration_ms", result.Duration.Milliseconds())
		}
		respondWithRun(w, result, err)
	}
}

// EnqueueUplinkHandler handles POST /api/v1/uplink/{pilot_id}/jobs
//
// @Summary Queue an uplink
// @Tags Uplink
// @Produce json
// @Param pilot_id path string true "Username or numeric pilot ID"
// @Param procedures query bool false "Attach departure and arrival procedures"
// @Success 202 {object} responses.UplinkJobResponse
// @Failure 503 {object} responses.APIResponse[any]
// @Router /api/v1/uplink/{pilot_id}/jobs [post]
func EnqueueUplinkHandler(jobs JobQueue, defaultProcedures bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pilotID := strings.TrimSpace(chi.URLParam(r, "pilot_id"))
		if pilotID == "" {
			respondWithError(w, http.StatusBadRequest, constants.MsgPilotIDRequired)
			return
		}
		procedures, err := proceduresParam(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "procedures must be true or false")
			return
		}
		if procedures == nil {
			procedures = &defaultProcedures
		}

		job, err := jobs.Enqueue(r.Context(), pilotID, *procedures, auth.SubjectOf(r.Context()))
		if err != nil {
			status, msg := statusForError(err)
			logging.Error("Failed to queue uplink", "pilot_id", pilotID, "error", err)
			respondWithError(w, status, msg)
			return
		}
		respondWithSuccess(w, http.StatusAccepted, job)
	}
}

// GetUplinkJobHandler handles GET /api/v1/uplink/jobs/{job_id}
//
// @Summary Get a queued uplink
// @Tags Uplink
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} responses.UplinkJobResponse
// @Failure 404 {object} responses.APIResponse[any]
// @Router /api/v1/uplink/jobs/{job_id} [get]
func GetUplinkJobHandler(jobs JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobs.Get(chi.URLParam(r, "job_id"))
		if err != nil {
			status, msg := statusForError(err)
			respondWithError(w, status, msg)
			return
		}
		if job == nil {
			respondWithError(w, http.StatusNotFound, constants.StatusJobNotFound)
			return
		}
		respondWithSuccess(w, http.StatusOK, job)
	}
}

// UplinkHistoryHandler handles GET /api/v1/uplink/{pilot_id}/history
func UplinkHistoryHandler(history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			respondWithError(w, http.StatusServiceUnavailable, constants.MsgHistoryNotEnabled)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondWithError(w, http.StatusBadRequest, "limit must be a positive number")
				return
			}
			limit = n
		}

		rows, err := history.ListByPilot(r.Context(), chi.URLParam(r, "pilot_id"), limit)
		if err != nil {
			logging.Error("Failed to list uplink history", "error", err)
			respondWithError(w, http.StatusInternalServerError, constants.StatusError)
			return
		}
		entries := services.HistoryEntryResponses(rows)
		respondWithSuccess(w, http.StatusOK, &entries)
	}
}

// GetHistoryEntryHandler handles GET /api/v1/uplink/history/{id}
func GetHistoryEntryHandler(history HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			respondWithError(w, http.StatusServiceUnavailable, constants.MsgHistoryNotEnabled)
			return
		}
		row, err := history.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			logging.Error("Failed to load uplink history", "error", err)
			respondWithError(w, http.StatusInternalServerError, constants.StatusError)
			return
		}
		if row == nil {
			respondWithError(w, http.StatusNotFound, "History entry not found")
			return
		}
		entry := services.HistoryEntryResponse(*row)
		respondWithSuccess(w, http.StatusOK, &entry)
	}
}

// PurgeNavCacheHandler handles POST /api/v1/admin/navdb/purge
func PurgeNavCacheHandler(cache NavCachePurger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache.Purge()
		logging.Info("Nav database cache purged", "caller", auth.SubjectOf(r.Context()))
		respondWithSuccess(w, http.StatusOK, &map[string]string{"message": "Nav database cache purged"})
	}
}
