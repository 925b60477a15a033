package digest

import (
	"fmt"
	"sort"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
)

// Strategy is how a digest folds one event type into a bucket.
type Strategy uint8

const (
	// StrategyIgnored drops the event silently.
	StrategyIgnored Strategy = iota
	// StrategySingleton sets a boolean flag on the bucket.
	StrategySingleton
	// StrategyProgram marks a catalog program as completed.
	StrategyProgram
	// StrategyKeyed files the event under its identity key, last write wins.
	StrategyKeyed
	// StrategyProfileUpdate merges the touched profile fields into a set.
	StrategyProfileUpdate
)

// Identity selects the field a keyed event is deduplicated on.
type Identity uint8

const (
	IdentityTitle Identity = iota
	IdentityEntity
)

// Flag names a singleton fact on a bucket.
type Flag string

const (
	FlagUpdatedGoals   Flag = "updatedGoals"
	FlagUpdatedReading Flag = "updatedReading"
	FlagUpdatedTopics  Flag = "updatedTopics"
)

// Category names one renderable slot of a bucket. Keyed categories are the
// event type tag, singleton categories are the flag name.
type Category string

const (
	CategoryCompletedProgram Category = "completed-program"
	CategoryUpdatedProfile   Category = "updated-profile"
)

// Rule is the digest treatment of one event type.
type Rule struct {
	Strategy Strategy
	Flag     Flag
	Identity Identity
}

func Ignored() Rule                { return Rule{Strategy: StrategyIgnored} }
func Singleton(flag Flag) Rule     { return Rule{Strategy: StrategySingleton, Flag: flag} }
func Program() Rule                { return Rule{Strategy: StrategyProgram} }
func Keyed(identity Identity) Rule { return Rule{Strategy: StrategyKeyed, Identity: identity} }
func ProfileUpdate() Rule          { return Rule{Strategy: StrategyProfileUpdate} }

// Category returns the slot a rule writes into for event type t, or "" for
// ignored types.
func (r Rule) Category(t v1.EventType) Category {
	switch r.Strategy {
	case StrategySingleton:
		return Category(r.Flag)
	case StrategyProgram:
		return CategoryCompletedProgram
	case StrategyKeyed:
		return Category(t.String())
	case StrategyProfileUpdate:
		return CategoryUpdatedProfile
	default:
		return ""
	}
}

// DefaultProfileFields are the profile fields an updated-profile event may name.
var DefaultProfileFields = []string{"fullName", "bio", "location", "website", "twitter", "avatar"}

// Config parameterizes one feed. Rules is the closed table of handled event
// types; a type missing from it fails the digest.
type Config struct {
	Name          string
	Rules         map[v1.EventType]Rule
	Programs      Catalog
	ProfileFields []string
	Location      *time.Location
}

// WithLocation returns a copy of c bucketing days in loc.
func (c Config) WithLocation(loc *time.Location) Config {
	c.Location = loc
	return c
}

// WithPrograms returns a copy of c validating programs against catalog.
func (c Config) WithPrograms(catalog Catalog) Config {
	c.Programs = catalog
	return c
}

// Validate checks the rule table is internally consistent.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("digest config name is required")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("digest config %q has no rules", c.Name)
	}
	for t, rule := range c.Rules {
		if t == v1.EventTypeUnknown {
			return fmt.Errorf("digest config %q maps the unknown event type", c.Name)
		}
		switch rule.Strategy {
		case StrategySingleton:
			if rule.Flag == "" {
				return fmt.Errorf("digest config %q: %s singleton has no flag", c.Name, t)
			}
		case StrategyIgnored, StrategyProgram, StrategyKeyed, StrategyProfileUpdate:
		default:
			return fmt.Errorf("digest config %q: %s has unsupported strategy %d", c.Name, t, rule.Strategy)
		}
	}
	return nil
}

// Categories returns the distinct render slots the config can produce, sorted.
func (c Config) Categories() []Category {
	seen := make(map[Category]bool)
	for t, rule := range c.Rules {
		if cat := rule.Category(t); cat != "" {
			seen[cat] = true
		}
	}
	out := make([]Category, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) profileFieldSet() map[string]bool {
	fields := c.ProfileFields
	if fields == nil {
		fields = DefaultProfileFields
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
