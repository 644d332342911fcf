package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=50"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"omitempty,oneof=user admin"` // defaults to user
}

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	User      UserResponse `json:"user"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new user
// @Description Creates a new user account. Role defaults to user.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} UserResponse "User created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email or username already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	// Bind JSON request body and perform validation based on `binding` tags
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrHashingFailed) {
			h.log.Error("Registration failed", "error", err)
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
			return
		}
		respondError(c, h.log, err)
		return
	}

	// Return the created user details (without password hash)
	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates a user and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrTokenGeneration) {
			h.log.Error("Login failed", "error", err)
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "bearer",
		User:      MapUserToResponse(user),
	})
}

// Me returns the resolved caller.
func (h *AuthHandler) Me(c *gin.Context) {
	identity := identityFromContext(c)
	c.JSON(http.StatusOK, gin.H{"userId": identity.UserID, "email": identity.Email, "role": identity.Role})
}

// MapUserToResponse converts a domain UserProfile to a UserResponse DTO.
func MapUserToResponse(user *domain.UserProfile) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		UserID:    user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
