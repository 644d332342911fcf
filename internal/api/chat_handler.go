package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

const ndjsonContentType = "application/x-ndjson"

// ChatHandler streams assistant turns and serves stored transcripts.
type ChatHandler struct {
	chatService service.ChatService
	log         *logger.Logger
}

func NewChatHandler(chatService service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log}
}

// --- Request/Response Structs ---

type ChatRequest struct {
	ChatID      string         `json:"chat_id"`
	Message     string         `json:"message" binding:"max=4000"`
	Purpose     domain.Purpose `json:"purpose" binding:"required"`
	PurposeData struct {
		WorkoutDate string `json:"workout_date" binding:"omitempty,isodate"`
	} `json:"purpose_data"`
}

// --- Handler Methods ---

// Chat godoc
// @Summary Run one chat turn
// @Description Streams one JSON object per line as the assistant reply is produced.
// @Description Anonymous callers may only use the onboarding purpose.
// @Tags Chat
// @Accept json
// @Produce application/x-ndjson
// @Param turn body ChatRequest true "Chat turn"
// @Success 200 {object} service.ChatChunk "One object per line"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Sign-in required for this purpose"
// @Failure 403 {object} gin.H "Chat belongs to another user"
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	streaming := false
	enc := json.NewEncoder(c.Writer)
	emit := func(chunk service.ChatChunk) error {
		if !streaming {
			c.Header("Content-Type", ndjsonContentType)
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			streaming = true
		}
		if err := enc.Encode(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	chatID, err := h.chatService.Chat(c.Request.Context(), identityFromContext(c), service.ChatRequest{
		ChatID:      req.ChatID,
		Message:     req.Message,
		Purpose:     req.Purpose,
		PurposeData: domain.PurposeParams{WorkoutDate: req.PurposeData.WorkoutDate},
	}, emit)
	if err == nil {
		return
	}
	if !streaming {
		respondError(c, h.log, err)
		return
	}

	// Headers are gone; report the failure in-band.
	h.log.Warn("Chat stream aborted", "chat_id", chatID, "error", err)
	msg := "stream interrupted"
	if statusFor(err) != http.StatusInternalServerError {
		msg = err.Error()
	}
	_ = enc.Encode(gin.H{"error": msg, "chat_id": chatID})
	c.Writer.Flush()
}

func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	history, err := h.chatService.GetChatHistory(c.Request.Context(), identityFromContext(c), c.Param("chatId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ListChatSessions godoc
// @Summary List the caller's chat sessions
// @Description Defaults to the last 30 days, newest first.
// @Tags Chat
// @Produce json
// @Param from query string false "RFC 3339 timestamp or YYYY-MM-DD"
// @Param to query string false "RFC 3339 timestamp or YYYY-MM-DD"
// @Param page query int false "Page, starting at 1"
// @Param page_size query int false "Page size, at most 100"
// @Success 200 {object} service.SessionPage
// @Router /chat [get]
func (h *ChatHandler) ListChatSessions(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"), false)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "from must be an RFC 3339 timestamp or YYYY-MM-DD")
		return
	}
	to, err := parseTimeParam(c.Query("to"), true)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "to must be an RFC 3339 timestamp or YYYY-MM-DD")
		return
	}
	page, err := intParam(c.Query("page"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "page must be an integer")
		return
	}
	pageSize, err := intParam(c.Query("page_size"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	result, err := h.chatService.ListChatSessions(c.Request.Context(), identityFromContext(c), from, to, page, pageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare "to" date covers the whole day.
func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

// intParam returns 0 for an absent parameter so the service default applies.
func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
