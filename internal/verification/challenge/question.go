package challenge

import (
	"fmt"
	"strconv"
	"time"

	"gatekeeper/internal/verification/models"
)

// QuestionType names the fact a context question asks the actor to recall.
type QuestionType string

const (
	QuestionServerJoin     QuestionType = "server_join"
	QuestionAccountCreated QuestionType = "account_created"
	QuestionInviteCode     QuestionType = "invite_code"
)

const (
	DateLayout    = "Jan 2, 2006"
	dateOptions   = 4
	maxFakeOffset = 180
)

// Question is a rendered-ready context question with its expected answer.
type Question struct {
	Type   QuestionType
	Lines  []string
	Hint   string
	Answer string
}

// NewQuestion picks a context question the actor can answer only from their
// own membership. The invite question is offered only when an invite was
// attributed at arrival.
func (g *Generator) NewQuestion(member *models.Member, inviteCode string, now time.Time) Question {
	r := g.stream()

	types := []QuestionType{QuestionServerJoin, QuestionAccountCreated}
	if inviteCode != "" {
		types = append(types, QuestionInviteCode)
	}

	switch types[r.IntN(len(types))] {
	case QuestionInviteCode:
		return Question{
			Type:   QuestionInviteCode,
			Lines:  []string{"What invite code did you use", "to join this server?"},
			Hint:   "Type the **exact invite code** (e.g. `aBcDeFg`).",
			Answer: inviteCode,
		}
	case QuestionAccountCreated:
		return g.dateQuestion(QuestionAccountCreated, "When was your Discord account created?", member.User.CreatedAt)
	default:
		joined := member.JoinedAt
		if joined.IsZero() {
			joined = now
		}
		return g.dateQuestion(QuestionServerJoin, "When did you join this server?", joined)
	}
}

func (g *Generator) dateQuestion(kind QuestionType, prompt string, real time.Time) Question {
	r := g.stream()
	options := g.fakeDates(real, dateOptions-1)
	pos := r.IntN(len(options) + 1)
	options = append(options, "")
	copy(options[pos+1:], options[pos:])
	options[pos] = real.Format(DateLayout)

	lines := make([]string, 0, len(options)+2)
	lines = append(lines, prompt, "")
	for i, o := range options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, o))
	}
	return Question{
		Type:   kind,
		Lines:  lines,
		Hint:   fmt.Sprintf("Type the **number** (1–%d) of the correct date.", len(options)),
		Answer: strconv.Itoa(pos + 1),
	}
}

// fakeDates returns up to count distinct dates within ±180 days of real that
// never format identically to real. The attempt budget bounds the loop.
func (g *Generator) fakeDates(real time.Time, count int) []string {
	r := g.stream()
	want := real.Format(DateLayout)
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)

	for attempt := 0; len(out) < count && attempt < count*10; attempt++ {
		offset := between(r, 1, maxFakeOffset)
		if r.IntN(2) == 0 {
			offset = -offset
		}
		fake := real.AddDate(0, 0, offset).Format(DateLayout)
		if fake == want {
			continue
		}
		if _, dup := seen[fake]; dup {
			continue
		}
		seen[fake] = struct{}{}
		out = append(out, fake)
	}
	return out
}
