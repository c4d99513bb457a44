package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/volleyball-league/internal/domain/standingsource"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
)

const messageImportForbidden = "You do not have permission to import teams"

// ImportTeams runs a current-directory import. It always answers with the
// import payload, whatever the outcome.
func (h *Handler) ImportTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ImportTeams")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok || !principal.CanImport() {
		writeJSON(ctx, w, http.StatusForbidden, importTeamsResponse{
			Message: messageImportForbidden,
			Results: []string{},
		})
		return
	}

	result, err := h.importService.ImportCurrent(ctx, usecase.TriggerHTTP)
	resp := importTeamsResponse{
		Success: err == nil,
		Message: result.Message,
		Results: result.Results,
		Count:   result.Count(),
		RunID:   result.RunID,
	}
	if resp.Results == nil {
		resp.Results = []string{}
	}
	if resp.Message == "" && err != nil {
		resp.Message = err.Error()
	}

	status := http.StatusOK
	if err != nil {
		status = importStatus(ctx, err)
		h.logger.WarnContext(ctx, "import teams failed",
			"user_id", principal.UserID,
			"status", status,
			"error", err,
		)
	}
	writeJSON(ctx, w, status, resp)
}

func importStatus(ctx context.Context, err error) int {
	var fetchErr *standingsource.FetchError
	switch {
	case errors.Is(err, usecase.ErrConfig),
		errors.Is(err, usecase.ErrNoValidData),
		errors.Is(err, standingsource.ErrMalformedListing):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &fetchErr):
		return http.StatusInternalServerError
	default:
		return mapError(ctx, err).HTTPStatus
	}
}

// GetTeams returns the stored rows of a league, and optionally one of its
// sub-leagues, for the latest import day.
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeams")
	defer span.End()

	leagueName := cleanPathSegment(r.PathValue("league"))
	subLeague := cleanPathSegment(r.PathValue("subleague"))
	if leagueName == "" {
		writeError(ctx, w, fmt.Errorf("%w: league is required", usecase.ErrInvalidInput))
		return
	}

	rows, err := h.standingService.RowsFor(ctx, leagueName, subLeague)
	if err != nil {
		h.logger.ErrorContext(ctx, "get teams failed", "league", leagueName, "subleague", subLeague, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, toTeamRowDTOs(rows))
}
