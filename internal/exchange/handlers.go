package exchange

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/db"
)

// Handler exposes the negotiation service over HTTP. It does request
// parsing and error mapping only; who-may-act decisions belong to the
// service.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// CreateProposal handles POST /exchange.
func (h *Handler) CreateProposal(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)

	var req struct {
		ToUserID      int64   `json:"toUserId" validate:"required"`
		ProductFromID []int64 `json:"productFromId" validate:"required,min=1,dive,gt=0"`
		ProductToID   []int64 `json:"productToId" validate:"required,min=1,dive,gt=0"`
	}
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("decode create proposal request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := h.svc.Propose(ctx, actorID, req.ToUserID, req.ProductFromID, req.ProductToID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetProposal handles GET /exchange/:id.
func (h *Handler) GetProposal(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	view, err := h.svc.GetView(ctx, proposalID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// Accept handles POST /exchange/:id/accept. The response carries the
// recipient's shipping address so the proposer knows where to ship.
func (h *Handler) Accept(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, addr, err := h.svc.Accept(ctx, proposalID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"proposal":        p,
		"shippingAddress": addr,
	})
}

// Reject handles POST /exchange/:id/reject.
func (h *Handler) Reject(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := h.svc.Reject(ctx, proposalID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// Cancel handles POST /exchange/:id/cancel.
func (h *Handler) Cancel(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	p, err := h.svc.Cancel(ctx, proposalID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// Counter handles POST /exchange/:id/counter and returns the reversed
// proposal created in place of the original.
func (h *Handler) Counter(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		CounterProductID []int64 `json:"counterProductId" validate:"required,min=1,dive,gt=0"`
	}
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("decode counter proposal request: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	counter, err := h.svc.Counter(ctx, proposalID, actorID, req.CounterProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(counter)
}

// Address handles GET /exchange/:id/address.
func (h *Handler) Address(c fiber.Ctx) error {
	actorID := c.Locals("userID").(int64)
	proposalID, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	addr, err := h.svc.Address(ctx, proposalID, actorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(addr)
}

// Incoming handles GET /exchange/incoming.
func (h *Handler) Incoming(c fiber.Ctx) error {
	return h.list(c, DirectionIncoming)
}

// Outgoing handles GET /exchange/outgoing.
func (h *Handler) Outgoing(c fiber.Ctx) error {
	return h.list(c, DirectionOutgoing)
}

func (h *Handler) list(c fiber.Ctx, dir Direction) error {
	actorID := c.Locals("userID").(int64)

	page, err := strconv.Atoi(c.Query("page", "0"))
	if err != nil || page < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid page"})
	}
	size, err := strconv.Atoi(c.Query("size", "10"))
	if err != nil || size < 1 || size > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid size"})
	}
	sort := ParseSortOrder(c.Query("sort"))

	ctx, cancel := db.GetContext()
	defer cancel()

	result, err := h.svc.List(ctx, actorID, dir, page, size, sort)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func parseID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.Validation("invalid proposal id %q", c.Params("id"))
	}
	return id, nil
}

// respondError maps an error kind to its HTTP status. Anything unclassified
// is an internal error and gets logged, not leaked.
func respondError(c fiber.Ctx, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindOwnership:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case apperrors.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case apperrors.KindAuthorization:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case apperrors.KindInvalidState, apperrors.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
