package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vendorrisk/internal/middleware"
	"vendorrisk/internal/response"
	"vendorrisk/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthCookie mirrors the bearer token for the dashboard route guard.
const AuthCookie = "auth-token"

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// RegisterRoutes registers the authentication routes. authRequired guards
// the profile endpoint.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", authRequired, h.HandleMe)
}

// CredentialsRequest represents the request body for registration and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var errInvalidBody = errors.New("invalid request body")

// missingFieldsError lists the credential fields left blank.
type missingFieldsError []string

func (e missingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e, ", ")
}

func parseCredentials(c *fiber.Ctx) (CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	req.Email = strings.TrimSpace(req.Email)
	if missing := missingFields(req); len(missing) > 0 {
		return req, missingFieldsError(missing)
	}
	return req, nil
}

// rejectCredentials writes the 400 response for a parseCredentials error.
func (h *AuthHandler) rejectCredentials(c *fiber.Ctx, err error) error {
	var missing missingFieldsError
	if errors.As(err, &missing) {
		return response.ValidationFailed(c, missing.Error(), nil)
	}
	h.logger.Debug("error parsing credentials body", zap.Error(err))
	return response.Fail(c, fiber.StatusBadRequest, "Invalid request body", err)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return h.rejectCredentials(c, err)
	}

	result, err := h.authService.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			return response.ValidationFailed(c, "Invalid email format", nil)
		case errors.Is(err, services.ErrPasswordTooShort):
			return response.ValidationFailed(c, "Password must be at least 6 characters long", nil)
		case errors.Is(err, services.ErrEmailTaken):
			return response.Fail(c, fiber.StatusConflict, "User with this email already exists", nil)
		}
		h.logger.Error("error registering user", zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "Internal server error during registration", err)
	}

	h.setAuthCookie(c, result.Token)
	return response.Success(c, fiber.StatusCreated, "User registered successfully", result)
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return h.rejectCredentials(c, err)
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.Info("login failed", zap.String("email", services.NormalizeEmail(req.Email)))
			return response.Fail(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
		}
		h.logger.Error("error during login", zap.Error(err))
		return response.Fail(c, fiber.StatusInternalServerError, "Internal server error during login", err)
	}

	h.setAuthCookie(c, result.Token)
	return response.Success(c, fiber.StatusOK, "Login successful", result)
}

// HandleLogout clears the mirrored cookie. Tokens stay valid until expiry.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.Success(c, fiber.StatusOK, "Logged out successfully", nil)
}

// HandleMe returns the user attached by the auth middleware.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return response.Fail(c, fiber.StatusUnauthorized, "Access token is missing", nil)
	}
	return response.Success(c, fiber.StatusOK, "User profile retrieved successfully", fiber.Map{"user": user})
}

func (h *AuthHandler) setAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     AuthCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authService.TokenTTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
