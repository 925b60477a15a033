package v1

import "fmt"

// EventType is the closed vocabulary of user actions.
// Raw strings only enter the system through ParseEventType (or the JSON/text
// unmarshalers built on it); everything downstream switches on the enum.
type EventType uint8

const (
	EventTypeUnknown EventType = iota

	CreatedGoal
	DoingGoal
	DoneGoal
	UpdatedGoals

	CreatedRead
	DoingRead
	DoneRead
	UpdatedReading
	WroteAboutRead
	SpokeAboutRead

	CreatedTopic
	UpdatedTopics

	CreatedEntry
	UpdatedEntry
	DeletedEntry

	CreatedEssay
	UpdatedEssay
	DeletedEssay

	CreatedSpeech
	UpdatedSpeech
	DeletedSpeech

	CreatedConversation
	UpdatedConversation
	DeletedConversation

	UpdatedProfile
	CompletedProgram

	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	EventTypeUnknown:    "",
	CreatedGoal:         "created-goal",
	DoingGoal:           "doing-goal",
	DoneGoal:            "done-goal",
	UpdatedGoals:        "updated-goals",
	CreatedRead:         "created-read",
	DoingRead:           "doing-read",
	DoneRead:            "done-read",
	UpdatedReading:      "updated-reading",
	WroteAboutRead:      "wrote-about-read",
	SpokeAboutRead:      "spoke-about-read",
	CreatedTopic:        "created-topic",
	UpdatedTopics:       "updated-topics",
	CreatedEntry:        "created-entry",
	UpdatedEntry:        "updated-entry",
	DeletedEntry:        "deleted-entry",
	CreatedEssay:        "created-essay",
	UpdatedEssay:        "updated-essay",
	DeletedEssay:        "deleted-essay",
	CreatedSpeech:       "created-speech",
	UpdatedSpeech:       "updated-speech",
	DeletedSpeech:       "deleted-speech",
	CreatedConversation: "created-conversation",
	UpdatedConversation: "updated-conversation",
	DeletedConversation: "deleted-conversation",
	UpdatedProfile:      "updated-profile",
	CompletedProgram:    "completed-program",
}

var eventTypesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeNames))
	for t := EventTypeUnknown + 1; t < eventTypeCount; t++ {
		m[eventTypeNames[t]] = t
	}
	return m
}()

// UnrecognizedEventTypeError reports a type tag outside the vocabulary, or one
// that a digest configuration does not handle. Either way the producers and
// the consumers are out of sync and the operation must fail.
type UnrecognizedEventTypeError struct {
	Type string
}

func (e *UnrecognizedEventTypeError) Error() string {
	return fmt.Sprintf("unrecognized event type %q", e.Type)
}

// ParseEventType maps a wire tag to its EventType.
func ParseEventType(s string) (EventType, error) {
	t, ok := eventTypesByName[s]
	if !ok {
		return EventTypeUnknown, &UnrecognizedEventTypeError{Type: s}
	}
	return t, nil
}

// AllEventTypes returns every known type in declaration order.
func AllEventTypes() []EventType {
	out := make([]EventType, 0, eventTypeCount-1)
	for t := EventTypeUnknown + 1; t < eventTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

func (t EventType) String() string {
	if t >= eventTypeCount {
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
	return eventTypeNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	if t == EventTypeUnknown || t >= eventTypeCount {
		return nil, fmt.Errorf("cannot marshal invalid event type %d", uint8(t))
	}
	return []byte(eventTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
