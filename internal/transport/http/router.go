package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/metrics"
	"github.com/cwrk-planet/chat-service/internal/transport/httputil"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler        *Handler
	Identity       httpmw.IdentityResolver
	WS             http.HandlerFunc
	Ready          func(ctx context.Context) error // ping хранилища для /readyz
	AllowedOrigins []string
	APITimeout     time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.RequestLogger)

	apiTimeout := d.APITimeout
	if apiTimeout <= 0 {
		apiTimeout = 30 * time.Second
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httputil.HeaderRequestID},
		ExposedHeaders:   []string{httputil.HeaderRequestID},
		AllowCredentials: len(d.AllowedOrigins) > 0,
		MaxAge:           300,
	}))

	// WS endpoint: токен проверяет сам ws.Server до апгрейда
	r.Get("/ws", d.WS)

	// Все маршруты требуют Bearer access token
	r.Route("/api", func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(d.Identity))
		pr.Use(middlewareChi.Timeout(apiTimeout))

		pr.Get("/me", d.Handler.Me)
		pr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", d.Handler.ListRooms)
			rm.Post("/", d.Handler.CreateRoom)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", d.Handler.GetRoom)
				rr.Get("/users", d.Handler.RoomUsers)
			})
		})
		pr.Get("/messages/{room_id}", d.Handler.History)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				httputil.JSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, StatusResponse{Status: "ready"})
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
