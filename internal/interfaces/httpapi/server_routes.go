package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

// registerStandingsRoutes keeps the bare payload contract consumed by the
// existing standings widgets.
func registerStandingsRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /volleyball/v1/import-teams", RequireAuth(verifier, http.HandlerFunc(handler.ImportTeams)))
	mux.HandleFunc("GET /volleyball/v1/teams/{league}", handler.GetTeams)
	mux.HandleFunc("GET /volleyball/v1/teams/{league}/{subleague}", handler.GetTeams)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues", handler.ListLeagues)
	mux.HandleFunc("GET /v1/leagues/{league}/subleagues", handler.ListSubLeagues)
	mux.HandleFunc("GET /v1/leagues/{league}/standings", handler.GetStandings)
	mux.HandleFunc("GET /v1/leagues/{league}/trends", handler.GetTrends)
	mux.HandleFunc("GET /v1/settings/display", handler.GetDisplaySettings)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/import-runs/{runID}", RequireAuth(verifier, http.HandlerFunc(handler.GetImportRun)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/import-current", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunImportCurrentJob)))
	mux.Handle("POST /v1/internal/jobs/backfill-all", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBackfillJob)))
}
