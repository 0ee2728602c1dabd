package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActorDefaultsToSystem(t *testing.T) {
	assert.Equal(t, "system", Actor(context.Background()))

	ctx := WithActor(context.Background(), "recruiter-1")
	assert.Equal(t, "recruiter-1", Actor(ctx))
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
}

func TestNow(t *testing.T) {
	frozen := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), frozen)
	assert.Equal(t, frozen, Now(ctx))

	// Without a stamped time, Now falls back to the wall clock.
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}
