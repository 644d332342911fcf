package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// ProfileHandler serves onboarding details, memories and account deletion.
type ProfileHandler struct {
	profileService service.ProfileService
	log            *logger.Logger
}

func NewProfileHandler(profileService service.ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

// --- Request/Response Structs ---

type UserDetailsRequest struct {
	PersonalInfo   map[string]any `json:"personalInfo"`
	FitnessProfile map[string]any `json:"fitnessProfile"`
	HealthInfo     map[string]any `json:"healthInfo"`
	Lifestyle      map[string]any `json:"lifestyle"`
	Memories       []string       `json:"memories"`
}

// UpdateFieldRequest sets one whitelisted dotted field, e.g. "personal_info.age".
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

type AddMemoryRequest struct {
	Memory string `json:"memory" binding:"required,max=500"`
}

// --- Handler Methods ---

// CreateUserDetails godoc
// @Summary Store onboarding details
// @Tags Profile
// @Accept json
// @Produce json
// @Param details body UserDetailsRequest true "Onboarding details"
// @Success 201 {object} domain.UserDetails
// @Failure 400 {object} gin.H "Details already exist or invalid input"
// @Router /user/details [post]
func (h *ProfileHandler) CreateUserDetails(c *gin.Context) {
	var req UserDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	details, err := h.profileService.CreateUserDetails(c.Request.Context(), identityFromContext(c), &domain.UserDetails{
		PersonalInfo:   req.PersonalInfo,
		FitnessProfile: req.FitnessProfile,
		HealthInfo:     req.HealthInfo,
		Lifestyle:      req.Lifestyle,
		Memories:       req.Memories,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, details)
}

func (h *ProfileHandler) GetUserDetails(c *gin.Context) {
	details, err := h.profileService.GetUserDetails(c.Request.Context(), identityFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ProfileHandler) UpdateUserDetailsField(c *gin.Context) {
	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Value == nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: value is required")
		return
	}
	details, err := h.profileService.UpdateUserDetailsField(c.Request.Context(), identityFromContext(c), req.Field, req.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ProfileHandler) AddMemory(c *gin.Context) {
	var req AddMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	details, err := h.profileService.AddMemory(c.Request.Context(), identityFromContext(c), req.Memory)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ProfileHandler) RemoveMemory(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Memory index must be an integer")
		return
	}
	details, err := h.profileService.RemoveMemory(c.Request.Context(), identityFromContext(c), index)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// DeleteUserProfile godoc
// @Summary Delete a user and everything they own
// @Description Users may delete themselves; admins may delete anyone.
// @Tags Profile
// @Param userId path string true "User ID"
// @Success 204
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "User not found"
// @Router /user/{userId} [delete]
func (h *ProfileHandler) DeleteUserProfile(c *gin.Context) {
	if err := h.profileService.DeleteUserProfile(c.Request.Context(), identityFromContext(c), c.Param("userId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
