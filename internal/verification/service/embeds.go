package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/verification/models"
)

const embedFooter = "Gatekeeper verification"

// Embed colors per action.
const (
	colorInfo    = 0x2ecc71
	colorQueue   = 0xffa500
	colorReject  = 0xe74c3c
	colorRecheck = 0x3498db
	colorExpired = 0x95a5a6
	colorKick    = 0xe67e22
)

var actionColors = map[models.ActionType]int{
	models.ActionQueue:         colorQueue,
	models.ActionApprove:       colorInfo,
	models.ActionReject:        colorReject,
	models.ActionRecheck:       colorRecheck,
	models.ActionReviewExpired: colorExpired,
	models.ActionKick:          colorKick,
}

func colorFor(action models.ActionType) int {
	if c, ok := actionColors[action]; ok {
		return c
	}
	return colorInfo
}

const (
	codeImageName    = "captcha.png"
	contextImageName = "context.png"
)

func codeChallengeMessage(sessionID string, png []byte, now time.Time) models.OutboundMessage {
	return models.OutboundMessage{
		Embeds: []models.Embed{{
			Title: "Verification Challenge",
			Description: "Look for the **thin, lighter characters** running across the center of the image. " +
				"Ignore the **bold characters** near the edges, those are decoys.\n\n" +
				"Click **Submit Answer** to enter the code.\n\n" +
				"This challenge expires in 5 minutes.",
			Color:     colorInfo,
			ImageName: codeImageName,
			Footer:    embedFooter,
			Timestamp: now,
		}},
		Buttons: []models.Button{
			{CustomID: models.AnswerID(sessionID), Label: "Submit Answer", Style: models.ButtonPrimary},
			{CustomID: models.StartID(), Label: "New Challenge", Style: models.ButtonSecondary},
		},
		Files: []models.Attachment{{Name: codeImageName, ContentType: "image/png", Data: png}},
	}
}

func contextChallengeMessage(sessionID, hint string, png []byte, now time.Time) models.OutboundMessage {
	return models.OutboundMessage{
		Embeds: []models.Embed{{
			Title: "Verification: Identity Check",
			Description: "CAPTCHA passed! Now answer this question from the image below.\n\n" +
				hint + "\n\nThis challenge expires in 5 minutes.",
			Color:     colorInfo,
			ImageName: contextImageName,
			Footer:    embedFooter,
			Timestamp: now,
		}},
		Buttons: []models.Button{
			{CustomID: models.ContextAnswerID(sessionID), Label: "Submit Answer", Style: models.ButtonPrimary},
		},
		Files: []models.Attachment{{Name: contextImageName, ContentType: "image/png", Data: png}},
	}
}

// RetryButton is offered next to failure replies.
func RetryButton() models.Button {
	return models.Button{CustomID: models.StartID(), Label: "Retry Verification", Style: models.ButtonSecondary}
}

type reviewRecord struct {
	userID      string
	accountAge  string
	riskScore   int
	triggeredBy string
	reasons     []string
}

func reviewRecordMessage(r reviewRecord, now time.Time) models.OutboundMessage {
	reasonText := "- Manual review required."
	if len(r.reasons) > 0 {
		lines := make([]string, len(r.reasons))
		for i, reason := range r.reasons {
			lines[i] = "- " + reason
		}
		reasonText = strings.Join(lines, "\n")
	}
	triggeredBy := r.triggeredBy
	if triggeredBy == "" {
		triggeredBy = "System"
	}

	return models.OutboundMessage{
		Embeds: []models.Embed{{
			Title: "Manual Verification Required",
			Color: colorQueue,
			Fields: []models.EmbedField{
				{Name: "Member", Value: mention(r.userID) + " (" + r.userID + ")"},
				{Name: "Account Age", Value: r.accountAge, Inline: true},
				{Name: "Risk Score", Value: strconv.Itoa(r.riskScore), Inline: true},
				{Name: "Triggered By", Value: triggeredBy, Inline: true},
				{Name: "Reasons", Value: reasonText},
			},
			Footer:    embedFooter,
			Timestamp: now,
		}},
		Buttons: []models.Button{
			{CustomID: models.ReviewID(models.DecisionApprove, r.userID), Label: "Approve", Style: models.ButtonSuccess},
			{CustomID: models.ReviewID(models.DecisionReject, r.userID), Label: "Reject", Style: models.ButtonDanger},
			{CustomID: models.ReviewID(models.DecisionRecheck, r.userID), Label: "Request Recheck", Style: models.ButtonSecondary},
		},
	}
}

// resolvedRecord returns the record's embeds with a resolution line appended.
// A record whose embeds are gone gets a minimal replacement.
func resolvedRecord(posted *models.PostedMessage, title string, action models.ActionType, resolution string, now time.Time) []models.Embed {
	var base models.Embed
	if posted != nil && len(posted.Embeds) > 0 {
		base = posted.Embeds[0]
		base.Fields = append([]models.EmbedField(nil), base.Fields...)
	} else {
		base = models.Embed{Title: "Manual Verification"}
	}
	if title != "" {
		base.Title = title
	}
	base.Color = colorFor(action)
	base.Fields = append(base.Fields, models.EmbedField{Name: "Resolution", Value: resolution})
	base.Footer = embedFooter
	base.Timestamp = now
	return []models.Embed{base}
}

func panelMessage(now time.Time) models.OutboundMessage {
	return models.OutboundMessage{
		Embeds: []models.Embed{{
			Title: "Community Verification",
			Description: "Click the button below to start verification.\n\n" +
				"If automated checks fail, your request is queued for manual moderator review.",
			Color:     colorInfo,
			Footer:    embedFooter,
			Timestamp: now,
		}},
		Buttons: []models.Button{
			{CustomID: models.StartID(), Label: "Start Verification", Style: models.ButtonPrimary},
		},
	}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func accountAge(member *models.Member, now time.Time) string {
	if member == nil || member.User.CreatedAt.IsZero() {
		return "unknown"
	}
	hours := int(now.Sub(member.User.CreatedAt) / time.Hour)
	return fmt.Sprintf("%d hours", hours)
}

// formatDuration renders d as "2 days, 3 hours" with zero units omitted.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0 seconds"
	}
	units := []struct {
		name string
		size time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}

	var parts []string
	for _, u := range units {
		n := int(d / u.size)
		if n == 0 {
			continue
		}
		d -= time.Duration(n) * u.size
		label := u.name
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	return strings.Join(parts, ", ")
}
