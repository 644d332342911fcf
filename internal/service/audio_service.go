package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/storage"
)

// allowedAudioTypes are the extensions the transcription API accepts.
var allowedAudioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".wav":  "audio/wav",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
}

// TranscriptionResult is a transcribed voice note.
type TranscriptionResult struct {
	Transcript  string              `json:"transcript"`
	Upload      *domain.AudioUpload `json:"upload"`
	PlaybackURL string              `json:"playbackUrl,omitempty"`
}

// --- Service Interface ---
type AudioService interface {
	Transcribe(ctx context.Context, caller domain.Identity, fileName string, audio io.Reader) (*TranscriptionResult, error)
}

// --- Service Implementation ---

type audioService struct {
	uploads     repository.AudioUploadRepository
	storage     storage.FileStorage // nil disables archiving
	transcriber *assistant.Transcriber
	maxBytes    int64
	log         *logger.Logger
	opts        options
}

func NewAudioService(uploads repository.AudioUploadRepository, fileStorage storage.FileStorage, transcriber *assistant.Transcriber, maxSizeMB int64, log *logger.Logger, opts ...Option) AudioService {
	return &audioService{
		uploads:     uploads,
		storage:     fileStorage,
		transcriber: transcriber,
		maxBytes:    maxSizeMB << 20,
		log:         log.With("service", "audio"),
		opts:        applyOptions(opts),
	}
}

func allowedExtensions() string {
	exts := make([]string, 0, len(allowedAudioTypes))
	for ext := range allowedAudioTypes {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

func (s *audioService) Transcribe(ctx context.Context, caller domain.Identity, fileName string, audio io.Reader) (*TranscriptionResult, error) {
	// 1. Validate type and size
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := allowedAudioTypes[ext]
	if !ok {
		return nil, validationf("unsupported file type, allowed types are: %s", allowedExtensions())
	}
	data, err := io.ReadAll(io.LimitReader(audio, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", ErrValidation, err)
	}
	if len(data) == 0 {
		return nil, validationf("audio file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, validationf("audio file exceeds %d MB", s.maxBytes>>20)
	}

	upload := &domain.AudioUpload{
		UserID:      caller.UserID,
		FileName:    filepath.Base(fileName),
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  s.opts.now().UTC(),
	}
	log := s.log.With("user_id", caller.UserID, "file", upload.FileName, "size", upload.Size)

	// 2. Archive the clip
	if s.storage != nil {
		upload.ObjectKey = fmt.Sprintf("audio/%s/%s%s", caller.UserID, uuid.NewString(), ext)
		if err := s.storage.PutObject(ctx, upload.ObjectKey, contentType, data); err != nil {
			return nil, upstream(log, "archive audio", err, "key", upload.ObjectKey)
		}
	}

	// 3. Transcribe
	text, err := s.transcriber.Transcribe(ctx, upload.FileName, bytes.NewReader(data))
	if err != nil {
		s.discard(upload.ObjectKey)
		return nil, upstream(log, "transcribe audio", err)
	}
	upload.Transcript = text

	// 4. Metadata
	if err := s.uploads.Create(ctx, upload); err != nil {
		s.discard(upload.ObjectKey)
		return nil, upstream(log, "store audio metadata", err)
	}

	result := &TranscriptionResult{Transcript: text, Upload: upload}
	if upload.ObjectKey != "" {
		url, err := s.storage.GeneratePresignedDownloadURL(ctx, upload.ObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			// The transcript is the point of the call; playback is optional.
			log.Warn("Failed to presign playback URL", "key", upload.ObjectKey, "error", err)
		} else {
			result.PlaybackURL = url
		}
	}
	log.Info("Voice note transcribed", "chars", len(text))
	return result, nil
}

// discard removes an archived clip whose upload failed later on.
func (s *audioService) discard(key string) {
	if key == "" || s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.DeleteObject(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("Failed to remove orphaned audio object", "key", key, "error", err)
	}
}
