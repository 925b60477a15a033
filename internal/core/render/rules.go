package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sorters-club/sorters/internal/core/digest"
)

// DefaultDisplayLimit is how many entries of one category are listed before
// the rest collapse into "and N more".
const DefaultDisplayLimit = 5

// Rule is the presentation of one digest category. A line reads
// "<emoji> <verb> <item>, <item> and N more".
//
// Path is the internal link of an entry. It may reference {username}, {key}
// (the url-escaped identity key) and {id} (the entity id, when present).
type Rule struct {
	Category digest.Category
	Emoji    string
	Verb     string
	Path     string
}

// Rules is an ordered rule table. Order is the order lines appear in for one user.
type Rules []Rule

// HomeRules is the presentation table of the home feed.
func HomeRules() Rules {
	return Rules{
		{Category: "created-goal", Emoji: "🎯", Verb: "set a goal to", Path: "/u/{username}/goals"},
		{Category: "doing-goal", Emoji: "💪", Verb: "started working on", Path: "/u/{username}/goals"},
		{Category: "done-goal", Emoji: "🏆", Verb: "achieved", Path: "/u/{username}/goals"},
		{Category: category(digest.FlagUpdatedGoals), Emoji: "🎯", Verb: "updated their goals", Path: "/u/{username}/goals"},

		{Category: "created-read", Emoji: "📚", Verb: "wants to read", Path: "/u/{username}/reads"},
		{Category: "doing-read", Emoji: "📖", Verb: "is reading", Path: "/u/{username}/reads"},
		{Category: "done-read", Emoji: "✅", Verb: "finished reading", Path: "/u/{username}/reads"},
		{Category: category(digest.FlagUpdatedReading), Emoji: "📚", Verb: "updated their reading list", Path: "/u/{username}/reads"},

		{Category: "created-topic", Emoji: "💡", Verb: "wants to talk about", Path: "/u/{username}/topics"},
		{Category: category(digest.FlagUpdatedTopics), Emoji: "💡", Verb: "updated their topics", Path: "/u/{username}/topics"},

		{Category: "created-entry", Emoji: "📓", Verb: "journaled about", Path: "/u/{username}/entries/{id}"},
		{Category: "created-essay", Emoji: "✍️", Verb: "wrote", Path: "/u/{username}/essays/{id}"},
		{Category: "created-speech", Emoji: "🎤", Verb: "spoke on", Path: "/u/{username}/speeches/{id}"},
		{Category: "created-conversation", Emoji: "💬", Verb: "started a conversation on", Path: "/conversations/{id}"},

		{Category: digest.CategoryUpdatedProfile, Emoji: "👤", Verb: "updated their", Path: "/u/{username}"},
		{Category: digest.CategoryCompletedProgram, Emoji: "🎓", Verb: "completed", Path: "/programs/{key}"},
	}
}

// NewsRules is the presentation table of the legacy news feed, with its
// older icon set.
func NewsRules() Rules {
	return Rules{
		{Category: "created-goal", Emoji: "➕", Verb: "set a goal to", Path: "/u/{username}/goals"},
		{Category: "doing-goal", Emoji: "⏳", Verb: "started working on", Path: "/u/{username}/goals"},
		{Category: "done-goal", Emoji: "✔️", Verb: "achieved", Path: "/u/{username}/goals"},
		{Category: category(digest.FlagUpdatedGoals), Emoji: "✏️", Verb: "updated their goals", Path: "/u/{username}/goals"},

		{Category: "created-read", Emoji: "➕", Verb: "wants to read", Path: "/u/{username}/reads"},
		{Category: "doing-read", Emoji: "⏳", Verb: "is reading", Path: "/u/{username}/reads"},
		{Category: "done-read", Emoji: "✔️", Verb: "finished reading", Path: "/u/{username}/reads"},
		{Category: category(digest.FlagUpdatedReading), Emoji: "✏️", Verb: "updated their reading list", Path: "/u/{username}/reads"},
		{Category: "wrote-about-read", Emoji: "📝", Verb: "wrote about", Path: "/u/{username}/reads"},
		{Category: "spoke-about-read", Emoji: "🗣️", Verb: "spoke about", Path: "/u/{username}/reads"},

		{Category: "created-topic", Emoji: "➕", Verb: "wants to talk about", Path: "/u/{username}/topics"},
		{Category: category(digest.FlagUpdatedTopics), Emoji: "✏️", Verb: "updated their topics", Path: "/u/{username}/topics"},

		{Category: "created-entry", Emoji: "📓", Verb: "journaled about", Path: "/u/{username}/entries/{id}"},
		{Category: "created-essay", Emoji: "📝", Verb: "wrote", Path: "/u/{username}/essays/{id}"},
		{Category: "created-speech", Emoji: "🗣️", Verb: "spoke on", Path: "/u/{username}/speeches/{id}"},

		{Category: digest.CategoryUpdatedProfile, Emoji: "✏️", Verb: "updated their", Path: "/u/{username}"},
		{Category: digest.CategoryCompletedProgram, Emoji: "🎓", Verb: "completed", Path: "/programs/{key}"},
	}
}

func category(f digest.Flag) digest.Category { return digest.Category(f) }

// CheckRules reports categories the config can produce but rules cannot
// render, duplicated rules and rules without a verb. A category without a
// rule would silently never show up in the feed.
func CheckRules(cfg digest.Config, rules Rules) error {
	byCategory := make(map[digest.Category]bool, len(rules))
	for _, r := range rules {
		if r.Category == "" {
			return fmt.Errorf("%s rules: rule without category", cfg.Name)
		}
		if byCategory[r.Category] {
			return fmt.Errorf("%s rules: duplicate rule for %q", cfg.Name, r.Category)
		}
		if strings.TrimSpace(r.Verb) == "" {
			return fmt.Errorf("%s rules: %q has no verb", cfg.Name, r.Category)
		}
		byCategory[r.Category] = true
	}

	var orphaned []string
	for _, cat := range cfg.Categories() {
		if !byCategory[cat] {
			orphaned = append(orphaned, string(cat))
		}
	}
	if len(orphaned) > 0 {
		sort.Strings(orphaned)
		return fmt.Errorf("%s rules: no presentation rule for %s", cfg.Name, strings.Join(orphaned, ", "))
	}
	return nil
}
