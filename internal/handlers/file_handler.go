package handlers

import (
	"fmt"
	"net/url"
	"path/filepath"

	"dailyscrum/internal/services"

	"github.com/gofiber/fiber/v2"
)

// FileHandler serves stored attachments.
type FileHandler struct {
	service *services.FileService
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(service *services.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// RegisterRoutes registers the file routes. Listing requires a token, downloads do not.
func (h *FileHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	files := router.Group("/api/files")
	files.Get("/", requireAuth, h.HandleListFiles)
	files.Get("/:filename", h.HandleGetFile)
}

// HandleGetFile redirects to a remote locator or streams a local file.
func (h *FileHandler) HandleGetFile(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return respondError(c, fmt.Errorf("malformed file name: %w", services.ErrNotFound), "File not available")
	}
	download, err := h.service.Fetch(c.UserContext(), name)
	if err != nil {
		return respondError(c, err, "File not available")
	}
	if download.RedirectURL != "" {
		return c.Redirect(download.RedirectURL, fiber.StatusFound)
	}
	if ext := filepath.Ext(name); ext != "" {
		c.Type(ext)
	}
	return c.SendStream(download.Body)
}

func (h *FileHandler) HandleListFiles(c *fiber.Ctx) error {
	files, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not list files")
	}
	return respond(c, fiber.StatusOK, "Files retrieved successfully", "files", files)
}
