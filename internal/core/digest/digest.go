package digest

import (
	"fmt"
	"sort"
	"time"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
)

// DayKeyLayout formats the calendar day a bucket belongs to.
const DayKeyLayout = "20060102"

// UnknownProgramError reports a completed-program event naming a program
// missing from the catalog.
type UnknownProgramError struct {
	Program string
}

func (e *UnknownProgramError) Error() string {
	return fmt.Sprintf("unknown program %q", e.Program)
}

// Bucket is everything one user did on one calendar day, folded together.
type Bucket struct {
	User v1.User
	// Date is the latest event date merged into the bucket.
	Date time.Time

	Flags          map[Flag]bool
	Programs       map[string]bool
	Keyed          map[v1.EventType]map[string]*v1.Event
	UpdatedProfile map[string]bool
}

// IsStub reports whether nothing beyond the seed user and date was merged.
func (b *Bucket) IsStub() bool {
	return len(b.Flags) == 0 &&
		len(b.Programs) == 0 &&
		len(b.Keyed) == 0 &&
		len(b.UpdatedProfile) == 0
}

// Day is one calendar day of the digest.
type Day struct {
	Key     string
	Date    time.Time
	Buckets []*Bucket
}

type bucketKey struct {
	day    string
	userID string
}

// Digest folds events into days (most recent first) of per-user buckets (most
// recently active first). Input order only matters for last-write-wins on
// repeated keys and for tie-breaking users with equal dates.
//
// An event type the config does not handle, or a program missing from the
// catalog, aborts the whole digest.
func Digest(events []*v1.Event, cfg Config) ([]Day, error) {
	loc := cfg.location()
	profileFields := cfg.profileFieldSet()

	buckets := make(map[bucketKey]*Bucket)
	byDay := make(map[string][]*Bucket)

	for _, evt := range events {
		if evt == nil || evt.User.Username == "" {
			continue
		}

		rule, ok := cfg.Rules[evt.Type]
		if !ok {
			return nil, &v1.UnrecognizedEventTypeError{Type: evt.Type.String()}
		}

		day := evt.Date.In(loc).Format(DayKeyLayout)
		key := bucketKey{day: day, userID: evt.User.ID}
		b, exists := buckets[key]
		if !exists {
			b = &Bucket{User: evt.User, Date: evt.Date}
			buckets[key] = b
			byDay[day] = append(byDay[day], b)
		}

		if err := merge(b, evt, rule, cfg.Programs, profileFields); err != nil {
			return nil, err
		}

		if evt.Date.After(b.Date) {
			b.Date = evt.Date
		}
	}

	dayKeys := make([]string, 0, len(byDay))
	for day := range byDay {
		dayKeys = append(dayKeys, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dayKeys)))

	days := make([]Day, 0, len(dayKeys))
	for _, dayKey := range dayKeys {
		kept := make([]*Bucket, 0, len(byDay[dayKey]))
		for _, b := range byDay[dayKey] {
			if !b.IsStub() {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			continue
		}

		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Date.After(kept[j].Date)
		})

		date, err := time.ParseInLocation(DayKeyLayout, dayKey, loc)
		if err != nil {
			return nil, fmt.Errorf("parse day key %q: %w", dayKey, err)
		}
		days = append(days, Day{Key: dayKey, Date: date, Buckets: kept})
	}

	return days, nil
}

func merge(b *Bucket, evt *v1.Event, rule Rule, programs Catalog, profileFields map[string]bool) error {
	switch rule.Strategy {
	case StrategyIgnored:
		return nil

	case StrategySingleton:
		if b.Flags == nil {
			b.Flags = make(map[Flag]bool)
		}
		b.Flags[rule.Flag] = true

	case StrategyProgram:
		if _, ok := programs.Lookup(evt.Name); !ok {
			return &UnknownProgramError{Program: evt.Name}
		}
		if b.Programs == nil {
			b.Programs = make(map[string]bool)
		}
		b.Programs[evt.Name] = true

	case StrategyKeyed:
		identity := identityKey(evt, rule.Identity)
		if identity == "" {
			return nil // unaddressable
		}
		if b.Keyed == nil {
			b.Keyed = make(map[v1.EventType]map[string]*v1.Event)
		}
		slot := b.Keyed[evt.Type]
		if slot == nil {
			slot = make(map[string]*v1.Event)
			b.Keyed[evt.Type] = slot
		}
		slot[identity] = evt

	case StrategyProfileUpdate:
		for _, field := range evt.Values {
			if !profileFields[field] {
				continue
			}
			if b.UpdatedProfile == nil {
				b.UpdatedProfile = make(map[string]bool)
			}
			b.UpdatedProfile[field] = true
		}

	default:
		return fmt.Errorf("event type %s: unsupported strategy %d", evt.Type, rule.Strategy)
	}
	return nil
}

// identityKey returns the deduplication key of a keyed event, or "" when the
// event lacks it.
func identityKey(evt *v1.Event, identity Identity) string {
	switch identity {
	case IdentityEntity:
		if evt.Entity == nil {
			return ""
		}
		return evt.Entity.ID
	default:
		return evt.Title
	}
}
