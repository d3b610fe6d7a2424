// Package entry defines the journal entry value stored for every reflection
// session.
package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JournalType tags how an entry was written.
type JournalType string

const (
	Guided JournalType = "guided"
	Free   JournalType = "free"
)

// MaxPrompts is the number of prompt slots a guided session offers.
const MaxPrompts = 3

// JournalEntry is one saved journaling session. ID is assigned client-side
// before the first remote write and never changes.
type JournalEntry struct {
	ID              string      `json:"id"`
	Date            time.Time   `json:"date"`
	Mood            string      `json:"mood"`
	Text            string      `json:"text"`
	ColorTag        string      `json:"colorTag,omitempty"`
	Prompts         []string    `json:"prompts"`
	PromptQuestions []string    `json:"promptQuestions"`
	IsFavorited     bool        `json:"isFavorited"`
	IsPinned        bool        `json:"isPinned"`
	JournalType     JournalType `json:"journalType"`
	BackgroundImage string      `json:"backgroundImage,omitempty"`
	TextColor       string      `json:"textColor,omitempty"`
}

// Draft carries what the UI submits when a session finishes.
type Draft struct {
	Mood            string
	Prompts         []string
	PromptQuestions []string
	Text            string
	JournalType     JournalType
	BackgroundImage string
	TextColor       string
}

var (
	ErrMoodRequired   = errors.New("entry: mood required")
	ErrTooManyPrompts = fmt.Errorf("entry: at most %d prompts", MaxPrompts)
	ErrPromptMismatch = errors.New("entry: prompts and questions differ in length")
	ErrUnknownJournal = errors.New("entry: unknown journal type")
)

// Validate checks the draft shape. Empty prompt answers are valid.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Mood) == "" {
		return ErrMoodRequired
	}
	if len(d.Prompts) > MaxPrompts {
		return ErrTooManyPrompts
	}
	if len(d.PromptQuestions) > 0 && len(d.PromptQuestions) != len(d.Prompts) {
		return ErrPromptMismatch
	}
	switch d.JournalType {
	case "", Guided, Free:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJournal, d.JournalType)
	}
	return nil
}

// New builds an entry from a draft with a fresh id. ColorTag and the
// background pair are left to the caller to stamp.
func New(d Draft, now time.Time) JournalEntry {
	jt := d.JournalType
	if jt == "" {
		jt = Guided
	}
	return JournalEntry{
		ID:              uuid.NewString(),
		Date:            now,
		Mood:            strings.TrimSpace(d.Mood),
		Text:            d.Text,
		Prompts:         cloneStrings(d.Prompts),
		PromptQuestions: cloneStrings(d.PromptQuestions),
		JournalType:     jt,
		BackgroundImage: d.BackgroundImage,
		TextColor:       d.TextColor,
	}
}

// Clone returns a deep copy.
func (e JournalEntry) Clone() JournalEntry {
	e.Prompts = cloneStrings(e.Prompts)
	e.PromptQuestions = cloneStrings(e.PromptQuestions)
	return e
}

func (e JournalEntry) String() string {
	return fmt.Sprintf("%s %s %q", e.Date.Format(time.RFC3339), e.Mood, e.Text)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
