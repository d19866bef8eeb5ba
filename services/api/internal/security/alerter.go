package security

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Audit outcomes that rules can match.
const (
	OutcomeFail        = "fail"
	OutcomeRejected    = "rejected"
	OutcomeForbidden   = "forbidden"
	OutcomeRateLimited = "rate_limited"
)

var alertCounterScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Rule fires when Threshold matching events from one client IP land in the
// same Window. Empty Events matches every event.
type Rule struct {
	Name      string
	Events    []string
	Outcomes  []string
	Threshold int64
	Window    time.Duration
}

func (r Rule) matches(event, outcome string) bool {
	if len(r.Events) > 0 && !slices.Contains(r.Events, event) {
		return false
	}
	return slices.Contains(r.Outcomes, outcome)
}

// DefaultRules are checked in order; an event counts toward the first rule
// it matches only.
var DefaultRules = []Rule{
	{Name: "rate_limit_pressure", Outcomes: []string{OutcomeRateLimited}, Threshold: 20, Window: time.Minute},
	{Name: "password_guessing", Events: []string{"auth.signin"}, Outcomes: []string{OutcomeFail}, Threshold: 10, Window: 5 * time.Minute},
	{Name: "signup_abuse", Events: []string{"auth.signup"}, Outcomes: []string{OutcomeFail}, Threshold: 10, Window: 5 * time.Minute},
	{Name: "token_probing", Events: []string{"auth.session", "auth.signout", "auth.authorize"}, Outcomes: []string{OutcomeFail}, Threshold: 15, Window: 5 * time.Minute},
	{Name: "chat_scraping", Events: []string{"chat.access"}, Outcomes: []string{OutcomeForbidden}, Threshold: 10, Window: 10 * time.Minute},
	{Name: "upload_junk", Events: []string{"document.upload"}, Outcomes: []string{OutcomeRejected}, Threshold: 15, Window: 10 * time.Minute},
	{Name: "malformed_pdfs", Events: []string{"document.parse"}, Outcomes: []string{OutcomeFail}, Threshold: 5, Window: 10 * time.Minute},
}

// AlertResult contains alert evaluation output.
type AlertResult struct {
	Rule      string
	Triggered bool
	Count     int64
	Threshold int64
	Window    time.Duration
}

// AuditAlerter counts audit events per client IP against a rule table.
type AuditAlerter struct {
	client *redis.Client
	prefix string
	rules  []Rule
	now    func() time.Time
}

// NewAuditAlerter returns nil when client is nil; a nil alerter observes
// nothing. Without rules DefaultRules apply.
func NewAuditAlerter(client *redis.Client, prefix string, rules ...Rule) *AuditAlerter {
	if client == nil {
		return nil
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "careerbot:alerts"
	}
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &AuditAlerter{client: client, prefix: prefix, rules: rules, now: time.Now}
}

// Observe counts the event under its rule and reports whether the rule fired.
func (a *AuditAlerter) Observe(ctx context.Context, event, outcome, ip string) (AlertResult, error) {
	if a == nil || a.client == nil {
		return AlertResult{}, nil
	}
	rule, ok := a.ruleFor(strings.TrimSpace(event), strings.TrimSpace(outcome))
	if !ok {
		return AlertResult{}, nil
	}
	windowMs := rule.Window.Milliseconds()
	slot := a.now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%s:%d", a.prefix, rule.Name, sanitizeSegment(ip), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := alertCounterScript.Run(ctx, a.client, []string{key}, windowMs).Int64()
	if err != nil {
		return AlertResult{}, err
	}
	return AlertResult{
		Rule:      rule.Name,
		Triggered: count >= rule.Threshold,
		Count:     count,
		Threshold: rule.Threshold,
		Window:    rule.Window,
	}, nil
}

func (a *AuditAlerter) ruleFor(event, outcome string) (Rule, bool) {
	for _, r := range a.rules {
		if r.Threshold > 0 && r.Window >= time.Millisecond && r.matches(event, outcome) {
			return r, true
		}
	}
	return Rule{}, false
}

func sanitizeSegment(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}
	return strings.NewReplacer(":", "_", "|", "_", " ", "_").Replace(in)
}
