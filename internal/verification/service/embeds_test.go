package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gatekeeper/internal/verification/models"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0 seconds", formatDuration(0))
	assert.Equal(t, "5 minutes", formatDuration(5*time.Minute))
	assert.Equal(t, "1 hour", formatDuration(time.Hour))
	assert.Equal(t, "2 days, 3 hours", formatDuration(51*time.Hour))
	assert.Equal(t, "1 day, 1 minute, 1 second", formatDuration(24*time.Hour+61*time.Second))
}

func TestAccountAge(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "unknown", accountAge(nil, now))
	m := &models.Member{User: models.User{CreatedAt: now.Add(-50 * time.Hour)}}
	assert.Equal(t, "50 hours", accountAge(m, now))
}

func TestResolvedRecordWithoutEmbeds(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	embeds := resolvedRecord(&models.PostedMessage{}, "", models.ActionApprove, "Approved by <@m>", now)

	assert.Len(t, embeds, 1)
	assert.Equal(t, "Manual Verification", embeds[0].Title)
	assert.Equal(t, []models.EmbedField{{Name: "Resolution", Value: "Approved by <@m>"}}, embeds[0].Fields)
}
