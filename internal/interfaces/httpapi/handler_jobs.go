package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/volleyball-league/internal/usecase"
)

type backfillJobRequest struct {
	League string `json:"league" validate:"omitempty,max=50"`
}

func (h *Handler) RunImportCurrentJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunImportCurrentJob")
	defer span.End()

	result, err := h.importService.ImportCurrent(ctx, usecase.TriggerJob)
	if err != nil {
		h.logger.WarnContext(ctx, "run import current job failed", "run_id", result.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

// RunBackfillJob backfills one league when the body names it, every catalog
// league otherwise.
func (h *Handler) RunBackfillJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBackfillJob")
	defer span.End()

	var req backfillJobRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.League = strings.TrimSpace(req.League)
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if req.League != "" {
		result, err := h.importService.BackfillHistorical(ctx, req.League, usecase.TriggerJob)
		if err != nil {
			h.logger.WarnContext(ctx, "run backfill job failed", "league", req.League, "error", err)
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, result)
		return
	}

	result, err := h.standingService.BackfillAll(ctx, usecase.TriggerJob)
	if err != nil {
		h.logger.WarnContext(ctx, "run backfill all job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetImportRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetImportRun")
	defer span.End()

	if _, ok := principalFromContext(ctx); !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing principal", usecase.ErrUnauthorized))
		return
	}

	run, err := h.standingService.GetRun(ctx, r.PathValue("runID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toImportRunDTO(run))
}
