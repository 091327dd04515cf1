package recognize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationConfig_DeterministicPinsTemperatureZero(t *testing.T) {
	cfg := generationConfig(Options{Deterministic: true})
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
}

func TestGenerationConfig_SamplingLeftToModelDefault(t *testing.T) {
	cfg := generationConfig(Options{Deterministic: false})
	assert.Nil(t, cfg.Temperature)
}
