// Package review defines the code review domain types: sessions, drafts,
// conversation messages and the closed enumerations sent to the backend.
package review

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Language is the language tag of a reviewed snippet.
// ENUM(python, javascript, sql).
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageSQL        Language = "sql"
)

// Languages returns every supported language in display order.
func Languages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageSQL}
}

// ParseLanguage normalizes s into a Language. Case and surrounding space are
// ignored and the common short forms "py" and "js" are accepted.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return LanguagePython, nil
	case "javascript", "js":
		return LanguageJavaScript, nil
	case "sql":
		return LanguageSQL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
	}
}

// IsValid reports whether l is one of the supported languages.
func (l Language) IsValid() bool {
	return slices.Contains(Languages(), l)
}

func (l Language) String() string { return string(l) }

// MarshalText returns the wire value. Unknown values are rejected rather than
// passed through to the backend.
func (l Language) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, string(l))
	}
	return []byte(l), nil
}

func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Persona is the review style requested from the backend.
// ENUM(Standard, Beginner, Security, Performance).
type Persona string

const (
	PersonaStandard    Persona = "Standard"
	PersonaBeginner    Persona = "Beginner"
	PersonaSecurity    Persona = "Security"
	PersonaPerformance Persona = "Performance"
)

// Personas returns every supported persona in display order.
func Personas() []Persona {
	return []Persona{PersonaStandard, PersonaBeginner, PersonaSecurity, PersonaPerformance}
}

// ParsePersona normalizes s into a Persona, ignoring case and surrounding space.
func ParsePersona(s string) (Persona, error) {
	needle := strings.TrimSpace(s)
	for _, p := range Personas() {
		if strings.EqualFold(needle, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPersona, s)
}

// IsValid reports whether p is one of the supported personas.
func (p Persona) IsValid() bool {
	return slices.Contains(Personas(), p)
}

func (p Persona) String() string { return string(p) }

func (p Persona) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, string(p))
	}
	return []byte(p), nil
}

func (p *Persona) UnmarshalText(text []byte) error {
	parsed, err := ParsePersona(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Role identifies the author of a conversation message.
// ENUM(user, assistant).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return []byte(r), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role := Role(strings.ToLower(strings.TrimSpace(string(text))))
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(text))
	}
	*r = role
	return nil
}

// Message is one turn of a follow-up conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage returns a message authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns a message authored by the backend.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ArtifactKind names a derived artifact computed from a reviewed session.
// ENUM(fix, tests).
type ArtifactKind string

const (
	ArtifactFix   ArtifactKind = "fix"
	ArtifactTests ArtifactKind = "tests"
)

// ParseArtifactKind accepts "fix" and "tests" (also "generate-tests").
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fix", "fix-code":
		return ArtifactFix, nil
	case "tests", "generate-tests":
		return ArtifactTests, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", s)
	}
}

func (k ArtifactKind) IsValid() bool {
	return k == ArtifactFix || k == ArtifactTests
}

// Draft is the editable, not yet reviewed input.
type Draft struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Persona  Persona  `json:"persona"`
}

// DefaultDraft returns an empty draft using the backend's default language
// and persona.
func DefaultDraft() Draft {
	return Draft{Language: LanguagePython, Persona: PersonaStandard}
}

// Validate checks that the draft only carries known enum values.
func (d Draft) Validate() error {
	if !d.Language.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, string(d.Language))
	}
	if !d.Persona.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, string(d.Persona))
	}
	return nil
}

// Session is one reviewed snippet and everything derived from it.
//
// Code, Language, Persona and Review are fixed when the session is created.
// Conversation only ever grows.
type Session struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Language     Language  `json:"language"`
	Persona      Persona   `json:"persona"`
	Review       string    `json:"review"`
	Conversation []Message `json:"conversation"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewSession builds a session from the draft that was reviewed.
func NewSession(id string, draft Draft, reviewText string, now time.Time) Session {
	return Session{
		ID:           id,
		Code:         draft.Code,
		Language:     draft.Language,
		Persona:      draft.Persona,
		Review:       reviewText,
		Conversation: []Message{},
		CreatedAt:    now,
	}
}

// Draft returns the draft the session was created from.
func (s *Session) Draft() Draft {
	return Draft{Code: s.Code, Language: s.Language, Persona: s.Persona}
}

// Clone returns a deep copy so callers can't mutate the conversation of a
// stored session.
func (s Session) Clone() Session {
	s.Conversation = slices.Clone(s.Conversation)
	if s.Conversation == nil {
		s.Conversation = []Message{}
	}
	return s
}

// Validate checks a session loaded from storage.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("session id is empty")
	}
	if strings.TrimSpace(s.Review) == "" {
		return fmt.Errorf("session %s: %w", s.ID, ErrEmptyReview)
	}
	if !s.Language.IsValid() {
		return fmt.Errorf("session %s: %w: %q", s.ID, ErrUnknownLanguage, string(s.Language))
	}
	if !s.Persona.IsValid() {
		return fmt.Errorf("session %s: %w: %q", s.ID, ErrUnknownPersona, string(s.Persona))
	}
	for i, m := range s.Conversation {
		if !m.Role.IsValid() {
			return fmt.Errorf("session %s: message %d: %w: %q", s.ID, i, ErrUnknownRole, string(m.Role))
		}
	}
	return nil
}

// Title returns a short single-line label for listings: the first non-blank
// line of the reviewed code, truncated to width runes.
func (s *Session) Title(width int) string {
	for line := range strings.Lines(s.Code) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if width > 1 && len(runes) > width {
			return string(runes[:width-1]) + "…"
		}
		return line
	}
	return "(empty)"
}
