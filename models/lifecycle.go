package models

// Kind names an entity type.
type Kind string

const (
	KindBand          Kind = "band"
	KindGenre         Kind = "genre"
	KindLocation      Kind = "location"
	KindEvent         Kind = "event"
	KindFestival      Kind = "festival"
	KindFestivalEvent Kind = "festivalEvent"
	KindFeedback      Kind = "feedback"
	KindBugReport     Kind = "bugReport"
)

// Label is the capitalised name used in markers and messages.
func (k Kind) Label() string {
	switch k {
	case KindBand:
		return "Band"
	case KindGenre:
		return "Genre"
	case KindLocation:
		return "Location"
	case KindEvent:
		return "Event"
	case KindFestival:
		return "Festival"
	case KindFestivalEvent:
		return "Festival event"
	case KindFeedback:
		return "Feedback"
	case KindBugReport:
		return "Bug report"
	}
	return string(k)
}

// Lifecycle is the moderation state of a document. Each state lives in its
// own collection.
type Lifecycle string

const (
	Validated   Lifecycle = "validated"
	Unvalidated Lifecycle = "unvalidated"
	Archived    Lifecycle = "archived"
)

// Canceled is the cancellation state of a festival event or event.
type Canceled int

const (
	NotCanceled Canceled = iota
	FullyCanceled
	PartiallyCanceled
)

func (c Canceled) Valid() bool {
	return c >= NotCanceled && c <= PartiallyCanceled
}
