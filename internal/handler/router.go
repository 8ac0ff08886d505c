package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentloop/internal/handler/api"
	"rentloop/internal/handler/middleware"
	"rentloop/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	authHandler *api.AuthHandler,
	bookingHandler *api.BookingHandler,
	paymentHandler *api.PaymentHandler,
	disputeHandler *api.DisputeHandler,
	webhookHandler *api.WebhookHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, authHandler, bookingHandler, paymentHandler, disputeHandler, webhookHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	authHandler *api.AuthHandler,
	bookingHandler *api.BookingHandler,
	paymentHandler *api.PaymentHandler,
	disputeHandler *api.DisputeHandler,
	webhookHandler *api.WebhookHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	// Processor webhooks authenticate by signature, not by bearer token.
	engine.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	apiGroup := engine.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			addRoutes(auth, []route{
				{Method: http.MethodPost, Path: "/login", Handler: authHandler.Login},
			})

			authRequired := auth.Group("")
			authRequired.Use(authMiddleware.RequireAuth())
			addRoutes(authRequired, []route{
				{Method: http.MethodPost, Path: "/logout", Handler: authHandler.Logout},
				{Method: http.MethodGet, Path: "/me", Handler: authHandler.Me},
			})
		}

		listings := apiGroup.Group("/listings")
		listings.Use(authMiddleware.RequireAuth())
		{
			addRoutes(listings, []route{
				{Method: http.MethodGet, Path: "/:id/availability", Handler: bookingHandler.CheckAvailability},
			})
		}

		bookings := apiGroup.Group("/bookings")
		bookings.Use(authMiddleware.RequireAuth())
		{
			addRoutes(bookings, []route{
				{Method: http.MethodPost, Path: "", Handler: bookingHandler.CreateBooking},
				{Method: http.MethodGet, Path: "", Handler: bookingHandler.GetUserBookings},
				{Method: http.MethodGet, Path: "/:id", Handler: bookingHandler.GetBooking},
				{Method: http.MethodPost, Path: "/:id/approve", Handler: bookingHandler.ApproveBooking},
				{Method: http.MethodPost, Path: "/:id/reject", Handler: bookingHandler.RejectBooking},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: bookingHandler.CancelBooking},
				{Method: http.MethodPost, Path: "/:id/checkout", Handler: bookingHandler.CheckOutBooking},
				{Method: http.MethodPost, Path: "/:id/complete", Handler: bookingHandler.CompleteBooking},
				{Method: http.MethodPost, Path: "/:id/payment-intent", Handler: paymentHandler.CreatePaymentIntent},
				{Method: http.MethodPost, Path: "/:id/refund", Handler: paymentHandler.RefundBooking},
				{Method: http.MethodGet, Path: "/:id/transaction", Handler: paymentHandler.GetBookingTransaction},
			})
		}

		disputes := apiGroup.Group("/disputes")
		disputes.Use(authMiddleware.RequireAuth())
		{
			addRoutes(disputes, []route{
				{Method: http.MethodPost, Path: "", Handler: disputeHandler.OpenDispute},
				{Method: http.MethodGet, Path: "/:id", Handler: disputeHandler.GetDispute},
				{Method: http.MethodPost, Path: "/:id/messages", Handler: disputeHandler.AddMessage},
				{Method: http.MethodGet, Path: "/:id/messages", Handler: disputeHandler.ListMessages},
			})

			adminOnly := disputes.Group("")
			adminOnly.Use(authMiddleware.RequireAdmin())
			addRoutes(adminOnly, []route{
				{Method: http.MethodPost, Path: "/:id/review", Handler: disputeHandler.StartReview},
				{Method: http.MethodPost, Path: "/:id/escalate", Handler: disputeHandler.Escalate},
				{Method: http.MethodPost, Path: "/:id/resolve", Handler: disputeHandler.Resolve},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
