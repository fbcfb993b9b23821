package handlers

import (
	"dailyscrum/internal/middleware"
	"dailyscrum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TitleRequest represents the request body for creating a title.
type TitleRequest struct {
	Title  string   `json:"title" form:"title" validate:"required"`
	Member []string `json:"member" form:"member"`
}

// TitleUpdateRequest represents a partial title update. Omitted keys are left alone.
type TitleUpdateRequest struct {
	Title  *string   `json:"title" form:"title"`
	Member *[]string `json:"member" form:"member"`
}

// TitleHandler handles HTTP requests for titles.
type TitleHandler struct {
	service  *services.TitleService
	validate *validator.Validate
}

// NewTitleHandler creates a new TitleHandler.
func NewTitleHandler(service *services.TitleService) *TitleHandler {
	return &TitleHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the title routes. requireAuth guards the mutating ones.
func (h *TitleHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	titles := router.Group("/title")
	titles.Get("/", h.HandleListTitles)
	titles.Post("/", requireAuth, h.HandleCreateTitle)
	titles.Get("/user", requireAuth, h.HandleListUserTitles)
	titles.Get("/:id", h.HandleGetTitle)
	titles.Put("/:id", requireAuth, h.HandleUpdateTitle)
	titles.Delete("/:id", requireAuth, h.HandleDeleteTitle)
}

func (h *TitleHandler) HandleCreateTitle(c *fiber.Ctx) error {
	var req TitleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if ok, err := validateRequest(c, h.validate, req); !ok {
		return err
	}

	title, err := h.service.CreateTitle(c.UserContext(), middleware.Identity(c), services.CreateTitleInput{
		Name:    req.Title,
		Members: req.Member,
	})
	if err != nil {
		return respondError(c, err, "Could not create title")
	}
	return respond(c, fiber.StatusCreated, "Title created successfully", "title", title)
}

// HandleListTitles lists titles, optionally filtered by ?title=.
func (h *TitleHandler) HandleListTitles(c *fiber.Ctx) error {
	titles, err := h.service.ListTitles(c.UserContext(), c.Query("title"))
	if err != nil {
		return respondError(c, err, "Could not list titles")
	}
	return respond(c, fiber.StatusOK, "Titles retrieved successfully", "titles", titles)
}

// HandleListUserTitles lists the titles the caller owns or belongs to.
func (h *TitleHandler) HandleListUserTitles(c *fiber.Ctx) error {
	titles, err := h.service.ListUserTitles(c.UserContext(), middleware.Identity(c).ID)
	if err != nil {
		return respondError(c, err, "Could not list titles")
	}
	return respond(c, fiber.StatusOK, "Titles retrieved successfully", "titles", titles)
}

func (h *TitleHandler) HandleGetTitle(c *fiber.Ctx) error {
	title, err := h.service.GetTitle(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not get title")
	}
	return respond(c, fiber.StatusOK, "Title retrieved successfully", "title", title)
}

func (h *TitleHandler) HandleUpdateTitle(c *fiber.Ctx) error {
	var req TitleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	title, err := h.service.UpdateTitle(c.UserContext(), middleware.Identity(c), c.Params("id"), services.TitlePatch{
		Name:    req.Title,
		Members: req.Member,
	})
	if err != nil {
		return respondError(c, err, "Could not update title")
	}
	return respond(c, fiber.StatusOK, "Title updated successfully", "title", title)
}

func (h *TitleHandler) HandleDeleteTitle(c *fiber.Ctx) error {
	if err := h.service.DeleteTitle(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete title")
	}
	return respond(c, fiber.StatusOK, "Title deleted successfully", "", nil)
}
