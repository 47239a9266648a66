package http

import (
	"net/http"

	"github.com/cwrk-planet/textroom/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(RequestLogger)
	r.Use(middlewareChi.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// WS endpoint
	r.Get("/ws/rooms/{id}", wsServer.HandleWS)

	r.Route("/rooms", func(pr chi.Router) {
		pr.Get("/by-code/{code}", h.GetRoomByCode)
		pr.Get("/{id}/members", h.GetMembers)
		pr.Get("/{id}/messages", h.GetMessages)
	})

	return r
}
