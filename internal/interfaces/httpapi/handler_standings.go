package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
)

func (h *Handler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagues")
	defer span.End()

	items, err := h.standingService.ListLeagues(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list leagues failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toLeagueDTOs(items))
}

func (h *Handler) ListSubLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSubLeagues")
	defer span.End()

	leagueName := cleanPathSegment(r.PathValue("league"))
	items, err := h.standingService.ListSubLeagues(ctx, leagueName)
	if err != nil {
		h.logger.WarnContext(ctx, "list sub-leagues failed", "league", leagueName, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

// GetStandings renders the display records of a league. Nested leagues
// default to their first sub-league.
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStandings")
	defer span.End()

	leagueName := cleanPathSegment(r.PathValue("league"))
	subLeague := cleanPathSegment(r.URL.Query().Get("subleague"))

	view, err := h.standingService.Standings(ctx, leagueName, subLeague)
	if err != nil {
		h.logger.WarnContext(ctx, "get standings failed", "league", leagueName, "subleague", subLeague, "error", err)
		writeError(ctx, w, err)
		return
	}

	var subLeagues []string
	if league.IsNestedLeague(view.League) {
		subLeagues, err = h.standingService.ListSubLeagues(ctx, view.League)
		if err != nil {
			h.logger.WarnContext(ctx, "list sub-leagues for standings failed", "league", view.League, "error", err)
			writeError(ctx, w, err)
			return
		}
	}

	writeSuccess(ctx, w, http.StatusOK, toStandingsDTO(view, subLeagues))
}

type trendQuery struct {
	Type      string `validate:"omitempty,oneof=position points"`
	Range     string `validate:"omitempty,max=32"`
	SubLeague string `validate:"omitempty,max=50"`
}

func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTrends")
	defer span.End()

	query := r.URL.Query()
	req := trendQuery{
		Type:      strings.ToLower(strings.TrimSpace(query.Get("type"))),
		Range:     strings.TrimSpace(query.Get("range")),
		SubLeague: cleanPathSegment(query.Get("subleague")),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueName := cleanPathSegment(r.PathValue("league"))
	result, err := h.standingService.Trends(ctx, usecase.TrendInput{
		League:    leagueName,
		SubLeague: req.SubLeague,
		Metric:    req.Type,
		Range:     req.Range,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "get trends failed", "league", leagueName, "type", req.Type, "range", req.Range, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toTrendDTO(result))
}
