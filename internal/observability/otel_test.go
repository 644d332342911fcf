package observability

import (
	"context"
	"testing"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestInitOTel_Disabled(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.NewNop(), config.OtelConfig{Enabled: false}, "test")
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
