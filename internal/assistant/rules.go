package assistant

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Actions are the deterministic, non-AI operations a rule can trigger. Each
// returns the text to show the user and never fails.
type Actions interface {
	PlayMusic(ctx context.Context) string
	OpenWebsite(ctx context.Context, url, name string) string
	SearchReference(ctx context.Context, query string) string
	OpenApplication(ctx context.Context, name string) string
	CloseApplication(ctx context.Context, name string) string
}

// Rule binds literal phrases to an action. A rule matches when the
// lowercased utterance contains any of its phrases.
type Rule struct {
	Name    string
	Phrases []string
	Handle  func(ctx context.Context, query string) string
}

func (r Rule) Matches(query string) bool {
	for _, p := range r.Phrases {
		if p != "" && strings.Contains(query, p) {
			return true
		}
	}
	return false
}

// Match returns the first rule in rules that matches query.
func Match(rules []Rule, query string) (Rule, bool) {
	for _, r := range rules {
		if r.Matches(query) {
			return r, true
		}
	}
	return Rule{}, false
}

// ValidateRules checks a rule table: phrases must be non-empty lowercase
// literals, and no phrase may contain a phrase of an earlier rule, since the
// earlier rule would always win.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if r.Handle == nil {
			return fmt.Errorf("rule %q: nil handler", r.Name)
		}
		if len(r.Phrases) == 0 {
			return fmt.Errorf("rule %q: no phrases", r.Name)
		}
		for _, p := range r.Phrases {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("rule %q: empty phrase", r.Name)
			}
			if p != strings.ToLower(p) {
				return fmt.Errorf("rule %q: phrase %q is not lowercase", r.Name, p)
			}
			for _, earlier := range rules[:i] {
				for _, e := range earlier.Phrases {
					if strings.Contains(p, e) {
						return fmt.Errorf("rule %q: phrase %q is shadowed by %q of rule %q", r.Name, p, e, earlier.Name)
					}
				}
			}
		}
	}
	return nil
}

func reply(text string) func(context.Context, string) string {
	return func(context.Context, string) string { return text }
}

type site struct {
	phrase string
	url    string
	name   string
}

type app struct {
	key  string
	name string
}

var (
	sites = []site{
		{"open google", "https://www.google.com/", "Google"},
		{"open github", "https://github.com/", "GitHub"},
		{"open facebook", "https://www.facebook.com/", "Facebook"},
	}

	apps = []app{
		{"calendar", "Calendar"},
		{"calculator", "Calculator"},
		{"terminal", "Terminal"},
	}
)

// DefaultRules is the built-in command table, ordered from narrow to broad
// phrases.
func DefaultRules(a Actions, now func() time.Time) []Rule {
	rules := []Rule{
		{Name: "name", Phrases: []string{"your name"},
			Handle: reply("My name is Jarvis, your personal assistant. How can I help you today?")},
		{Name: "wellbeing", Phrases: []string{"how are you"},
			Handle: reply("I am functioning at full capacity sir!")},
		{Name: "creator", Phrases: []string{"who made you"},
			Handle: reply("I was created by Anwar, a Data Science Learner!")},
		{Name: "thanks", Phrases: []string{"thank you"},
			Handle: reply("It's my pleasure, sir. Always happy to help.")},
		{Name: "music", Phrases: []string{"play music", "play song"},
			Handle: func(ctx context.Context, _ string) string { return a.PlayMusic(ctx) }},
		{Name: "wikipedia", Phrases: []string{"search wikipedia", "wikipedia"},
			Handle: func(ctx context.Context, q string) string {
				topic := referenceTopic(q)
				if topic == "" {
					return "Please tell me what you want to search on Wikipedia."
				}
				return a.SearchReference(ctx, topic)
			}},
		{Name: "youtube", Phrases: []string{"open youtube"},
			Handle: func(ctx context.Context, q string) string {
				search := strings.TrimSpace(afterPhrase(q, "open youtube"))
				if search == "" {
					return a.OpenWebsite(ctx, "https://www.youtube.com/", "YouTube")
				}
				return a.OpenWebsite(ctx,
					"https://www.youtube.com/results?search_query="+url.QueryEscape(search),
					"YouTube for "+search)
			}},
	}

	for _, s := range sites {
		rules = append(rules, Rule{
			Name:    s.phrase,
			Phrases: []string{s.phrase},
			Handle: func(ctx context.Context, _ string) string {
				return a.OpenWebsite(ctx, s.url, s.name)
			},
		})
	}

	for _, ap := range apps {
		phrases := []string{"open " + ap.key}
		if ap.key == "calendar" {
			phrases = append(phrases, "open my calendar")
		}
		rules = append(rules, Rule{
			Name:    "open " + ap.key,
			Phrases: phrases,
			Handle: func(ctx context.Context, _ string) string {
				return a.OpenApplication(ctx, ap.name)
			},
		})
	}

	for _, ap := range apps {
		rules = append(rules, Rule{
			Name:    "close " + ap.key,
			Phrases: []string{"close " + ap.key},
			Handle: func(ctx context.Context, _ string) string {
				return a.CloseApplication(ctx, ap.name)
			},
		})
	}

	rules = append(rules, Rule{
		Name:    "time",
		Phrases: []string{"time"},
		Handle: func(context.Context, string) string {
			return "Sir, the time is " + now().Format("15:04:05")
		},
	})

	return rules
}

func afterPhrase(q, phrase string) string {
	_, after, _ := strings.Cut(q, phrase)
	return after
}

func referenceTopic(q string) string {
	q = strings.ReplaceAll(q, "search wikipedia", "")
	q = strings.ReplaceAll(q, "wikipedia", "")
	q = strings.TrimSpace(q)
	for _, prefix := range []string{"for ", "about ", "on "} {
		q = strings.TrimPrefix(q, prefix)
	}
	return strings.TrimSpace(q)
}
