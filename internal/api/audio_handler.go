package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// AudioHandler accepts voice notes for transcription.
type AudioHandler struct {
	audioService service.AudioService
	log          *logger.Logger
}

func NewAudioHandler(audioService service.AudioService, log *logger.Logger) *AudioHandler {
	return &AudioHandler{audioService: audioService, log: log}
}

// Transcribe godoc
// @Summary Transcribe a voice note
// @Description Accepts a multipart "file" field. The clip is archived when storage is configured.
// @Tags Audio
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio clip (mp3, mp4, m4a, wav, webm, mpeg, mpga)"
// @Success 200 {object} service.TranscriptionResult
// @Failure 400 {object} gin.H "Missing, empty, oversized or unsupported file"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /audio/transcribe [post]
func (h *AudioHandler) Transcribe(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "A multipart file field named 'file' is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.audioService.Transcribe(c.Request.Context(), identityFromContext(c), fileHeader.Filename, file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
