package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// PlanHandler exposes weekly plan generation and the per-day workout operations.
type PlanHandler struct {
	planService service.PlanService
	log         *logger.Logger
}

func NewPlanHandler(planService service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{planService: planService, log: log}
}

// --- Request/Response Structs ---

type StatusUpdateRequest struct {
	Date   string   `json:"date" binding:"required,isodate"`
	Status []string `json:"status" binding:"required,min=1,dive,oneof=pending done skipped partial"`
}

type JournalSummaryRequest struct {
	Date   string `json:"date" binding:"required,isodate"`
	ChatID string `json:"chat_id" binding:"required"`
}

type LogWorkoutRequest struct {
	Date          string `json:"date" binding:"required,isodate"`
	ChatID        string `json:"chat_id" binding:"required"`
	ShouldReplace bool   `json:"should_replace"`
}

type QuickWorkoutRequest struct {
	Date    string `json:"date" binding:"required,isodate"`
	Request string `json:"request" binding:"required,max=2000"`
}

type RegenerateWorkoutRequest struct {
	Date     string `json:"date" binding:"required,isodate"`
	Feedback string `json:"feedback" binding:"required,max=2000"`
}

// --- Handler Methods ---

// GenerateWeeklyPlan godoc
// @Summary Generate the caller's next weekly plan
// @Description Uses the onboarding chat on first generation and plan history afterwards.
// @Tags Plans
// @Produce json
// @Param chat_id query string false "Onboarding chat ID"
// @Success 200 {object} service.GeneratedPlan
// @Failure 400 {object} gin.H "Already generated or generation in progress"
// @Failure 404 {object} gin.H "Not onboarded"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /plans/generate [get]
func (h *PlanHandler) GenerateWeeklyPlan(c *gin.Context) {
	result, err := h.planService.GenerateWeeklyPlan(c.Request.Context(), identityFromContext(c), c.Query("chat_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlanHandler) GetWeeklyPlan(c *gin.Context) {
	plan, err := h.planService.GetWeeklyPlanForDate(c.Request.Context(), identityFromContext(c), c.Query("date"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) GetDailyWorkout(c *gin.Context) {
	day, err := h.planService.GetDailyWorkout(c.Request.Context(), identityFromContext(c), c.Param("weekId"), c.Query("date"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// UpdateExerciseStatus godoc
// @Summary Set the status of every exercise of a day
// @Tags Plans
// @Accept json
// @Produce json
// @Param weekId path string true "Week ID"
// @Param update body StatusUpdateRequest true "Statuses in exercise order"
// @Success 200 {object} domain.DailyWorkout
// @Failure 400 {object} gin.H "Invalid status list"
// @Failure 404 {object} gin.H "Week or day not found"
// @Router /plans/{weekId}/status [put]
func (h *PlanHandler) UpdateExerciseStatus(c *gin.Context) {
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	day, err := h.planService.UpdateExerciseStatus(c.Request.Context(), identityFromContext(c), c.Param("weekId"),
		service.StatusUpdate{Date: req.Date, Status: req.Status})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *PlanHandler) SummarizeJournal(c *gin.Context) {
	var req JournalSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	summary, err := h.planService.SummarizeJournal(c.Request.Context(), identityFromContext(c), req.Date, req.ChatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": req.Date, "summary": summary})
}

func (h *PlanHandler) LogWorkout(c *gin.Context) {
	var req LogWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	day, err := h.planService.LogWorkout(c.Request.Context(), identityFromContext(c), service.LogWorkoutRequest{
		Date:          req.Date,
		ChatID:        req.ChatID,
		ShouldReplace: req.ShouldReplace,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *PlanHandler) QuickWorkout(c *gin.Context) {
	var req QuickWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	day, err := h.planService.QuickWorkout(c.Request.Context(), identityFromContext(c), req.Date, req.Request)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *PlanHandler) RegenerateWorkout(c *gin.Context) {
	var req RegenerateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	day, err := h.planService.RegenerateWorkout(c.Request.Context(), identityFromContext(c), req.Date, req.Feedback)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// ReconcileWeekIndex repairs a user's week index. Admin only.
func (h *PlanHandler) ReconcileWeekIndex(c *gin.Context) {
	report, err := h.planService.ReconcileWeekIndex(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
