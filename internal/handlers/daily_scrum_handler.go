package handlers

import (
	"dailyscrum/internal/middleware"
	"dailyscrum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the validated form of a new post.
type CreatePostRequest struct {
	Title   string `validate:"required"`
	Daily   string
	Problem string
	Todo    string
}

// DailyScrumHandler handles HTTP requests for daily scrum posts and their reviews.
type DailyScrumHandler struct {
	service        *services.DailyScrumService
	validate       *validator.Validate
	maxUploadFiles int
}

// NewDailyScrumHandler creates a new DailyScrumHandler.
func NewDailyScrumHandler(service *services.DailyScrumService, maxUploadFiles int) *DailyScrumHandler {
	return &DailyScrumHandler{
		service:        service,
		validate:       validator.New(),
		maxUploadFiles: maxUploadFiles,
	}
}

// RegisterRoutes registers the daily scrum routes. requireAuth guards the mutating ones.
func (h *DailyScrumHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	posts := router.Group("/daily-scrum")
	posts.Get("/", h.HandleListPosts)
	posts.Post("/", requireAuth, h.HandleCreatePost)
	posts.Get("/user", requireAuth, h.HandleListUserPosts)
	posts.Get("/:id", h.HandleGetPost)
	posts.Patch("/:id", requireAuth, h.HandleUpdatePost)
	posts.Delete("/:id", requireAuth, h.HandleDeletePost)
	posts.Delete("/:id/file", requireAuth, h.HandleDeleteFile)

	reviews := posts.Group("/:id/review")
	reviews.Get("/", h.HandleListReviews)
	reviews.Post("/", requireAuth, h.HandleAddReview)
	reviews.Get("/:reviewId", h.HandleGetReview)
	reviews.Patch("/:reviewId", requireAuth, h.HandleUpdateReview)
	reviews.Delete("/:reviewId", requireAuth, h.HandleDeleteReview)
}

// HandleCreatePost creates a post from a multipart or JSON body.
func (h *DailyScrumHandler) HandleCreatePost(c *fiber.Ctx) error {
	fields, err := bodyFields(c)
	if err != nil {
		return badRequest(c, err)
	}
	req := CreatePostRequest{
		Title:   fields["title"],
		Daily:   fields["daily"],
		Problem: fields["problem"],
		Todo:    fields["todo"],
	}
	if ok, err := validateRequest(c, h.validate, req); !ok {
		return err
	}
	createdAt, err := parseDate(optional(fields, "createdAt", "created_at"))
	if err != nil {
		return badRequest(c, err)
	}
	files, err := uploadedFiles(c, h.maxUploadFiles)
	if err != nil {
		return badRequest(c, err)
	}

	view, err := h.service.CreatePost(c.UserContext(), middleware.Identity(c), services.CreatePostInput{
		Title:     req.Title,
		Daily:     req.Daily,
		Problem:   req.Problem,
		Todo:      req.Todo,
		CreatedAt: createdAt,
	}, files)
	if err != nil {
		return respondError(c, err, "Could not create daily scrum post")
	}
	return respond(c, fiber.StatusCreated, "Daily scrum post created successfully", "dailyScrum", view)
}

// HandleUpdatePost applies the fields present in the body and appends any uploads.
func (h *DailyScrumHandler) HandleUpdatePost(c *fiber.Ctx) error {
	fields, err := bodyFields(c)
	if err != nil {
		return badRequest(c, err)
	}
	createdAt, err := parseDate(optional(fields, "createdAt", "created_at"))
	if err != nil {
		return badRequest(c, err)
	}
	files, err := uploadedFiles(c, h.maxUploadFiles)
	if err != nil {
		return badRequest(c, err)
	}

	view, err := h.service.UpdatePost(c.UserContext(), middleware.Identity(c), c.Params("id"), services.PostPatch{
		Title:     optional(fields, "title"),
		Daily:     optional(fields, "daily"),
		Problem:   optional(fields, "problem"),
		Todo:      optional(fields, "todo"),
		CreatedAt: createdAt,
	}, files)
	if err != nil {
		return respondError(c, err, "Could not update daily scrum post")
	}
	return respond(c, fiber.StatusOK, "Daily scrum post updated successfully", "dailyScrum", view)
}

// HandleListPosts lists posts, optionally filtered by ?title=.
func (h *DailyScrumHandler) HandleListPosts(c *fiber.Ctx) error {
	posts, err := h.service.ListPosts(c.UserContext(), c.Query("title"))
	if err != nil {
		return respondError(c, err, "Could not list daily scrum posts")
	}
	return respond(c, fiber.StatusOK, "Daily scrum posts retrieved successfully", "dailyScrumPosts", posts)
}

// HandleListUserPosts lists the caller's own posts.
func (h *DailyScrumHandler) HandleListUserPosts(c *fiber.Ctx) error {
	posts, err := h.service.ListUserPosts(c.UserContext(), middleware.Identity(c).ID)
	if err != nil {
		return respondError(c, err, "Could not list daily scrum posts")
	}
	return respond(c, fiber.StatusOK, "Daily scrum posts retrieved successfully", "dailyScrumPosts", posts)
}

func (h *DailyScrumHandler) HandleGetPost(c *fiber.Ctx) error {
	view, err := h.service.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not get daily scrum post")
	}
	return respond(c, fiber.StatusOK, "Daily scrum post retrieved successfully", "dailyScrum", view)
}

func (h *DailyScrumHandler) HandleDeletePost(c *fiber.Ctx) error {
	if err := h.service.DeletePost(c.UserContext(), middleware.Identity(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete daily scrum post")
	}
	return respond(c, fiber.StatusOK, "Daily scrum post deleted successfully", "", nil)
}

// HandleDeleteFile detaches one file, named by ?file= or a "file" body field.
func (h *DailyScrumHandler) HandleDeleteFile(c *fiber.Ctx) error {
	key := c.Query("file")
	if key == "" {
		fields, err := bodyFields(c)
		if err != nil {
			return badRequest(c, err)
		}
		key = fields["file"]
	}
	if key == "" {
		return respondError(c, services.ErrValidation, "File name is required")
	}

	view, err := h.service.DeleteFile(c.UserContext(), middleware.Identity(c), c.Params("id"), key)
	if err != nil {
		return respondError(c, err, "Could not delete file")
	}
	return respond(c, fiber.StatusOK, "File deleted successfully", "dailyScrum", view)
}
