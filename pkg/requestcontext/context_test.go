package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowFallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}

func TestWithTimePinsNow(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	assert.Equal(t, fixed, Now(ctx))
}

func TestAdminScope(t *testing.T) {
	ctx := WithAdmin(context.Background(), "ops@example", []string{"g1", "g2"})
	assert.Equal(t, "ops@example", AdminSubject(ctx))
	assert.Equal(t, []string{"g1", "g2"}, AdminGuilds(ctx))
	assert.Empty(t, AdminSubject(context.Background()))
	assert.Nil(t, AdminGuilds(context.Background()))
}
