package render

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/sorters-club/sorters/internal/core/digest"
)

// Item is one linked entry of a line.
type Item struct {
	Label    string `json:"label"`
	Href     string `json:"href"`
	External bool   `json:"external,omitempty"`
}

// Line is one rendered category of a user's day.
type Line struct {
	Category digest.Category `json:"category"`
	Emoji    string          `json:"emoji"`
	Verb     string          `json:"verb"`
	// Href links singleton lines, which carry no items.
	Href  string `json:"href,omitempty"`
	Items []Item `json:"items,omitempty"`
	// More counts entries hidden past the display limit.
	More int    `json:"more,omitempty"`
	Text string `json:"text"`
}

// UserView is one user's rendered day.
type UserView struct {
	User  v1.User   `json:"user"`
	Date  time.Time `json:"date"`
	Lines []Line    `json:"lines"`
}

// DayView is one rendered day of the feed.
type DayView struct {
	Key   string     `json:"key"`
	Date  time.Time  `json:"date"`
	Users []UserView `json:"users"`
}

type keyedCategory struct {
	eventType v1.EventType
	identity  digest.Identity
}

// Renderer turns digested days into display lines for one feed.
type Renderer struct {
	rules    Rules
	programs digest.Catalog
	limit    int

	keyed map[digest.Category]keyedCategory
	flags map[digest.Category]digest.Flag
}

// NewRenderer binds rules to the feed config cfg. It fails when cfg can
// produce a category that has no rule.
func NewRenderer(cfg digest.Config, rules Rules) (*Renderer, error) {
	if err := CheckRules(cfg, rules); err != nil {
		return nil, err
	}

	r := &Renderer{
		rules:    rules,
		programs: cfg.Programs,
		limit:    DefaultDisplayLimit,
		keyed:    make(map[digest.Category]keyedCategory),
		flags:    make(map[digest.Category]digest.Flag),
	}
	for t, rule := range cfg.Rules {
		switch rule.Strategy {
		case digest.StrategyKeyed:
			r.keyed[rule.Category(t)] = keyedCategory{eventType: t, identity: rule.Identity}
		case digest.StrategySingleton:
			r.flags[rule.Category(t)] = rule.Flag
		}
	}
	return r, nil
}

// WithDisplayLimit returns a copy of r listing at most n entries per line.
func (r *Renderer) WithDisplayLimit(n int) *Renderer {
	cp := *r
	if n > 0 {
		cp.limit = n
	}
	return &cp
}

// Render renders every day, preserving digest order.
func (r *Renderer) Render(days []digest.Day) []DayView {
	out := make([]DayView, 0, len(days))
	for _, day := range days {
		view := DayView{Key: day.Key, Date: day.Date, Users: make([]UserView, 0, len(day.Buckets))}
		for _, b := range day.Buckets {
			view.Users = append(view.Users, r.renderBucket(b))
		}
		out = append(out, view)
	}
	return out
}

func (r *Renderer) renderBucket(b *digest.Bucket) UserView {
	view := UserView{User: b.User, Date: b.Date}
	for _, rule := range r.rules {
		line, ok := r.renderLine(rule, b)
		if !ok {
			continue
		}
		line.Text = lineText(line)
		view.Lines = append(view.Lines, line)
	}
	return view
}

func (r *Renderer) renderLine(rule Rule, b *digest.Bucket) (Line, bool) {
	line := Line{Category: rule.Category, Emoji: rule.Emoji, Verb: rule.Verb}
	username := b.User.Username

	switch rule.Category {
	case digest.CategoryCompletedProgram:
		if len(b.Programs) == 0 {
			return line, false
		}
		items := make([]Item, 0, len(b.Programs))
		for _, id := range sortedKeys(b.Programs) {
			name, ok := r.programs.Lookup(id)
			if !ok {
				name = id
			}
			items = append(items, Item{Label: name, Href: expand(rule.Path, username, id, "")})
		}
		r.truncate(&line, items)
		return line, true

	case digest.CategoryUpdatedProfile:
		if len(b.UpdatedProfile) == 0 {
			return line, false
		}
		items := make([]Item, 0, len(b.UpdatedProfile))
		for _, field := range sortedKeys(b.UpdatedProfile) {
			items = append(items, Item{Label: field, Href: expand(rule.Path, username, field, "")})
		}
		r.truncate(&line, items)
		return line, true
	}

	if flag, ok := r.flags[rule.Category]; ok {
		if !b.Flags[flag] {
			return line, false
		}
		line.Href = expand(rule.Path, username, "", "")
		return line, true
	}

	kc, ok := r.keyed[rule.Category]
	if !ok {
		return line, false
	}
	entries := b.Keyed[kc.eventType]
	if len(entries) == 0 {
		return line, false
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, keyedItem(rule, username, key, entries[key], kc.identity))
	}
	r.truncate(&line, items)
	return line, true
}

func keyedItem(rule Rule, username, key string, evt *v1.Event, identity digest.Identity) Item {
	switch identity {
	case digest.IdentityEntity:
		item := Item{Label: key}
		if evt.Entity != nil && evt.Entity.Title != "" {
			item.Label = evt.Entity.Title
		}
		if evt.Entity != nil && evt.Entity.URL != "" {
			item.Href, item.External = evt.Entity.URL, true
			return item
		}
		item.Href = expand(rule.Path, username, key, key)
		return item
	default:
		if evt.URL != "" {
			return Item{Label: key, Href: evt.URL, External: true}
		}
		return Item{Label: key, Href: expand(rule.Path, username, key, "")}
	}
}

func (r *Renderer) truncate(line *Line, items []Item) {
	if len(items) > r.limit {
		line.More = len(items) - r.limit
		items = items[:r.limit]
	}
	line.Items = items
}

func lineText(line Line) string {
	var sb strings.Builder
	if line.Emoji != "" {
		sb.WriteString(line.Emoji)
		sb.WriteByte(' ')
	}
	sb.WriteString(line.Verb)
	if len(line.Items) > 0 {
		labels := make([]string, len(line.Items))
		for i, item := range line.Items {
			labels[i] = item.Label
		}
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(labels, ", "))
	}
	if line.More > 0 {
		fmt.Fprintf(&sb, " and %d more", line.More)
	}
	return sb.String()
}

func expand(path, username, key, id string) string {
	return strings.NewReplacer(
		"{username}", url.PathEscape(username),
		"{key}", url.PathEscape(key),
		"{id}", url.PathEscape(id),
	).Replace(path)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
