package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rackup-app/messaging/internal/auth"
	"github.com/rackup-app/messaging/internal/handlers"
	"github.com/rackup-app/messaging/internal/middleware"
	"github.com/rackup-app/messaging/internal/observability"
	"github.com/rackup-app/messaging/internal/ws"
)

func New(
	listingH *handlers.ListingHandler,
	convH *handlers.ConversationHandler,
	msgH *handlers.MessageHandler,
	wsH *ws.Handler,
	verifier *auth.Verifier,
	serviceName string,
) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(serviceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RateLimit(300, time.Minute))

	r.Get("/health/live", observability.HealthLiveHandler)

	// The websocket endpoint authenticates via the token query parameter
	// because browsers cannot set headers on a WebSocket handshake.
	r.Handle("/api/ws/chat", wsH)

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(verifier))

		p.Get("/api/listings/{id}", listingH.GetListing)

		p.Post("/api/conversations", convH.ResolveConversation)
		p.Get("/api/conversations/{id}/messages", msgH.ListMessages)
		p.Post("/api/conversations/{id}/messages", msgH.SendMessage)
	})

	return otelhttp.NewHandler(r, serviceName)
}
