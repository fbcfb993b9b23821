package handlers

import (
	"dailyscrum/internal/middleware"
	"dailyscrum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	userRoutes := router.Group("/user")
	userRoutes.Post("/register", h.HandleRegister)
	userRoutes.Post("/login", h.HandleLogin)
	userRoutes.Post("/logout", requireAuth, h.HandleLogout)
	userRoutes.Get("/info", requireAuth, h.HandleInfo)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if ok, err := validateRequest(c, h.validate, req); !ok {
		return err
	}

	user, err := h.authService.RegisterUser(c.UserContext(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err, "Registration failed")
	}
	return respond(c, fiber.StatusCreated, "User registered successfully", "user", user)
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if ok, err := validateRequest(c, h.validate, req); !ok {
		return err
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err, "Authentication failed")
	}
	return respond(c, fiber.StatusOK, "Login successful", "token", token)
}

// HandleLogout acknowledges a logout; the client discards its token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.Identity(c).ID); err != nil {
		return respondError(c, err, "Logout failed")
	}
	return respond(c, fiber.StatusOK, "Logout successful", "", nil)
}

// HandleInfo returns the caller's profile.
func (h *AuthHandler) HandleInfo(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(c.UserContext(), middleware.Identity(c).ID)
	if err != nil {
		return respondError(c, err, "Could not get user info")
	}
	return respond(c, fiber.StatusOK, "User info retrieved successfully", "info", user)
}
