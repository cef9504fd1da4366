package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches", handler.GetMatches)
	mux.HandleFunc("GET /v1/matches/monthly", handler.GetMatchesMonthly)
	mux.HandleFunc("GET /v1/matches/live", handler.GetLiveMatches)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/sync/run",
		RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSync)))
}
