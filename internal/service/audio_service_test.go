package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/assistant"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/prompts"
	"alcyxob/fitness-coach/internal/storage"
)

// newTestAudioService builds a service with a 1 MB limit. A nil files disables archiving.
func newTestAudioService(h *harness, files *fakeStorage) AudioService {
	log := logger.NewNop()
	transcriber := assistant.NewTranscriber(h.llm, prompts.NewStore(""), log)
	var archive storage.FileStorage
	if files != nil {
		archive = files
	}
	return NewAudioService(h.repos.Uploads, archive, transcriber, 1, log, WithClock(h.clock.Now))
}

func TestAudioService_Transcribe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	files := newFakeStorage()
	svc := newTestAudioService(h, files)
	h.llm.TranscribeText = "i did three sets of squads"
	h.llm.Replies = []string{"I did three sets of squats."}

	result, err := svc.Transcribe(ctx, alice, "note.M4A", strings.NewReader("fake audio"))
	require.NoError(t, err)
	assert.Equal(t, "I did three sets of squats.", result.Transcript)
	assert.Equal(t, "audio/mp4", result.Upload.ContentType)
	assert.EqualValues(t, len("fake audio"), result.Upload.Size)
	assert.True(t, strings.HasPrefix(result.Upload.ObjectKey, "audio/u-alice/"))
	assert.True(t, strings.HasSuffix(result.Upload.ObjectKey, ".m4a"))
	assert.Equal(t, "https://files.example.com/"+result.Upload.ObjectKey, result.PlaybackURL)
	assert.Equal(t, []byte("fake audio"), files.objects[result.Upload.ObjectKey])
	assert.True(t, result.Upload.UploadedAt.Equal(monday))

	uploads, err := h.repos.Uploads.ListByUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "I did three sets of squats.", uploads[0].Transcript)
}

func TestAudioService_WithoutArchive(t *testing.T) {
	h := newHarness(t)
	svc := newTestAudioService(h, nil)
	h.llm.TranscribeText = "rest day"
	h.llm.Replies = []string{"Rest day."}

	result, err := svc.Transcribe(context.Background(), alice, "note.mp3", strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "Rest day.", result.Transcript)
	assert.Empty(t, result.Upload.ObjectKey)
	assert.Empty(t, result.PlaybackURL)
}

func TestAudioService_Rejects(t *testing.T) {
	h := newHarness(t)
	files := newFakeStorage()
	svc := newTestAudioService(h, files)

	cases := []struct {
		name string
		file string
		data []byte
	}{
		{"unsupported type", "note.txt", []byte("abc")},
		{"no extension", "note", []byte("abc")},
		{"empty", "note.wav", nil},
		{"too large", "note.wav", bytes.Repeat([]byte{1}, 1<<20+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transcribe(context.Background(), alice, tc.file, bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, files.objects)
	assert.Empty(t, h.llm.Calls())
}

func TestAudioService_TranscriptionFailureDiscardsClip(t *testing.T) {
	h := newHarness(t)
	files := newFakeStorage()
	svc := newTestAudioService(h, files)
	h.llm.TranscribeErr = errors.New("api http 503")

	_, err := svc.Transcribe(context.Background(), alice, "note.webm", strings.NewReader("abc"))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, files.objects)
	require.Len(t, files.deleted, 1)

	uploads, err := h.repos.Uploads.ListByUser(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}
