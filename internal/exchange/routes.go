package exchange

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the exchange API. Every route requires an
// authenticated caller; list routes are declared before the :id routes so
// "incoming" and "outgoing" are not swallowed by the id parameter.
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/exchange")
	api.Use(authMiddleware)

	api.Get("/incoming", h.Incoming)
	api.Get("/outgoing", h.Outgoing)

	api.Post("/", h.CreateProposal)
	// Alias kept for older SPA builds that still call /exchange/propose.
	api.Post("/propose", h.CreateProposal)

	api.Get("/:id", h.GetProposal)
	api.Get("/:id/address", h.Address)
	api.Post("/:id/accept", h.Accept)
	api.Post("/:id/reject", h.Reject)
	api.Post("/:id/cancel", h.Cancel)
	api.Post("/:id/counter", h.Counter)
}
