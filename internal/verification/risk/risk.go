// Package risk scores how likely an arriving actor is to be an automated or
// throwaway account. Evaluation is a pure function of the actor and the rules.
package risk

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gatekeeper/internal/verification/models"
)

const (
	ReasonBot         = "Discord marks this account as a bot user."
	ReasonNoAvatar    = "Account has no avatar."
	ReasonDigitRun    = "Username contains a long numeric sequence."
	ReasonKeyword     = "Username contains suspicious keyword patterns."
	reasonAgeTemplate = "Account is only %dh old (minimum %dh)."
)

// Rules are the weights and thresholds of the heuristic. Scoring is additive
// and order-independent except for the bot short-circuit.
type Rules struct {
	BotScore        int
	YoungAccount    int
	NoAvatar        int
	DigitRun        int
	DigitRunLength  int
	Keyword         int
	Keywords        []string
	ManualThreshold int
}

func DefaultRules() Rules {
	return Rules{
		BotScore:        100,
		YoungAccount:    2,
		NoAvatar:        1,
		DigitRun:        1,
		DigitRunLength:  5,
		Keyword:         1,
		Keywords:        []string{"free", "nitro", "airdrop", "crypto", "support", "admin", "mod"},
		ManualThreshold: 3,
	}
}

// Evaluator applies a fixed rule set. The compiled patterns are built once.
type Evaluator struct {
	rules    Rules
	digitRun *regexp.Regexp
	keywords *regexp.Regexp
}

func New(rules Rules) *Evaluator {
	e := &Evaluator{rules: rules}
	if rules.DigitRunLength > 0 {
		e.digitRun = regexp.MustCompile(fmt.Sprintf(`\d{%d,}`, rules.DigitRunLength))
	}
	if len(rules.Keywords) > 0 {
		quoted := make([]string, 0, len(rules.Keywords))
		for _, k := range rules.Keywords {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(k)))
		}
		e.keywords = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	}
	return e
}

var defaultEvaluator = New(DefaultRules())

// Evaluate scores an actor with the default rules.
func Evaluate(user models.User, minAccountAgeHours int, now time.Time) models.RiskAssessment {
	return defaultEvaluator.Evaluate(user, minAccountAgeHours, now)
}

func (e *Evaluator) Evaluate(user models.User, minAccountAgeHours int, now time.Time) models.RiskAssessment {
	if user.Bot {
		return models.RiskAssessment{
			Score:          e.rules.BotScore,
			Reasons:        []string{ReasonBot},
			ManualRequired: true,
		}
	}

	var (
		score   int
		reasons []string
	)

	ageHours := AccountAgeHours(user.CreatedAt, now)
	if ageHours < minAccountAgeHours {
		score += e.rules.YoungAccount
		reasons = append(reasons, fmt.Sprintf(reasonAgeTemplate, ageHours, minAccountAgeHours))
	}

	if user.AvatarHash == "" {
		score += e.rules.NoAvatar
		reasons = append(reasons, ReasonNoAvatar)
	}

	if e.digitRun != nil && e.anyName(user, e.digitRun) {
		score += e.rules.DigitRun
		reasons = append(reasons, ReasonDigitRun)
	}

	if e.keywords != nil && e.anyName(user, e.keywords) {
		score += e.rules.Keyword
		reasons = append(reasons, ReasonKeyword)
	}

	return models.RiskAssessment{
		Score:          score,
		Reasons:        reasons,
		ManualRequired: score >= e.rules.ManualThreshold,
	}
}

func (e *Evaluator) anyName(user models.User, re *regexp.Regexp) bool {
	return re.MatchString(user.Username) || (user.DisplayName != "" && re.MatchString(user.DisplayName))
}

// AccountAgeHours is the whole number of hours since the account was created.
func AccountAgeHours(createdAt, now time.Time) int {
	if createdAt.IsZero() || now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / time.Hour)
}
