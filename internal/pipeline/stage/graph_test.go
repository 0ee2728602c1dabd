package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage/internal/pipeline/models"
	dErrors "passage/pkg/domain-errors"
)

func TestGraph_Order(t *testing.T) {
	g := New(Providers{})

	got := g.Order()
	require.Len(t, got, 6)
	assert.Equal(t, models.StageRegistered, got[0])
	assert.Equal(t, models.StageDeparted, got[len(got)-1])

	// Returned slice is a copy; callers cannot reorder the pipeline.
	got[0] = models.StageDeparted
	assert.Equal(t, models.StageRegistered, g.Order()[0])
}

func TestGraph_Next(t *testing.T) {
	g := New(Providers{})

	t.Run("walks the full pipeline in order", func(t *testing.T) {
		current := models.StageRegistered
		var walked []models.Stage
		for {
			next, ok, err := g.Next(current)
			require.NoError(t, err)
			if !ok {
				break
			}
			walked = append(walked, next)
			current = next
		}
		assert.Equal(t, []models.Stage{
			models.StageVerified,
			models.StageApplied,
			models.StageOfferAccepted,
			models.StageVisaProcessing,
			models.StageDeparted,
		}, walked)
	})

	t.Run("terminal stage has no next", func(t *testing.T) {
		_, ok, err := g.Next(models.StageDeparted)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown stage is a configuration error", func(t *testing.T) {
		_, _, err := g.Next(models.Stage("limbo"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func TestGraph_IndexOf(t *testing.T) {
	g := New(Providers{})

	i, err := g.IndexOf(models.StageRegistered)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = g.IndexOf(models.StageDeparted)
	require.NoError(t, err)
	assert.Equal(t, 5, i)

	_, err = g.IndexOf(models.Stage(""))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestGraph_IsAtLeast(t *testing.T) {
	g := New(Providers{})

	atLeast, err := g.IsAtLeast(models.StageApplied, models.StageVerified)
	require.NoError(t, err)
	assert.True(t, atLeast)

	atLeast, err = g.IsAtLeast(models.StageVerified, models.StageApplied)
	require.NoError(t, err)
	assert.False(t, atLeast)

	atLeast, err = g.IsAtLeast(models.StageVerified, models.StageVerified)
	require.NoError(t, err)
	assert.True(t, atLeast)

	_, err = g.IsAtLeast(models.Stage("limbo"), models.StageVerified)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestGraph_IsTerminal(t *testing.T) {
	g := New(Providers{})
	assert.True(t, g.IsTerminal(models.StageDeparted))
	assert.False(t, g.IsTerminal(models.StageRegistered))
	assert.False(t, g.IsTerminal(models.Stage("limbo")))
}

func TestGraph_GuardUnknownStage(t *testing.T) {
	g := New(Providers{})
	_, err := g.Guard(models.Stage("limbo"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}
