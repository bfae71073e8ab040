package domain

// Role identifies the author of a message turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// StyleDirective selects the narrative tone used for generation.
type StyleDirective string

const (
	StyleBalanced    StyleDirective = "balanced"
	StyleDramatic    StyleDirective = "dramatic"
	StyleHumorous    StyleDirective = "humorous"
	StyleUnchained   StyleDirective = "unchained"
	StyleDescriptive StyleDirective = "descriptive"
	StyleAction      StyleDirective = "action"
	StyleAngst       StyleDirective = "angst"
	StyleHorror      StyleDirective = "horror"

	DefaultStyle = StyleBalanced
)

// Styles lists every selectable style in display order.
var Styles = []StyleDirective{
	StyleBalanced,
	StyleDramatic,
	StyleHumorous,
	StyleUnchained,
	StyleDescriptive,
	StyleAction,
	StyleAngst,
	StyleHorror,
}

// ValidStyle reports whether s is one of the eight known styles.
func ValidStyle(s StyleDirective) bool {
	for _, known := range Styles {
		if s == known {
			return true
		}
	}
	return false
}

// Message is one turn in a story thread. Timestamp is set at creation and
// never updated, including on content edits.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Story is a single authored thread. ID is immutable for the story's
// lifetime, and Messages keep insertion order; edits happen in place.
type Story struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Universe   string         `json:"universe"`
	Style      StyleDirective `json:"style"`
	Messages   []Message      `json:"messages"`
	UpdatedAt  int64          `json:"updatedAt"`
	AuthorName string         `json:"authorName,omitempty"`
}

// Clone returns a deep copy of the story so callers cannot alias the
// store-owned message slice.
func (s Story) Clone() Story {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// UserProfile is the optional local identity. It only affects attribution
// on newly created and published stories.
type UserProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Theme, Language, FontFamily and FontSize enumerate preference values.
type (
	Theme      string
	Language   string
	FontFamily string
	FontSize   string
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	LangPT Language = "pt"
	LangEN Language = "en"

	FontSans  FontFamily = "sans"
	FontSerif FontFamily = "serif"
	FontMono  FontFamily = "mono"

	SizeSM   FontSize = "sm"
	SizeBase FontSize = "base"
	SizeLG   FontSize = "lg"
	SizeXL   FontSize = "xl"
	Size2XL  FontSize = "2xl"
)

// Preferences hold process-wide interface settings, persisted
// independently of any story.
type Preferences struct {
	Theme      Theme      `json:"theme"`
	Language   Language   `json:"language"`
	FontFamily FontFamily `json:"fontFamily"`
	FontSize   FontSize   `json:"fontSize"`
}

// DefaultPreferences returns the startup fallback values.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:      ThemeLight,
		Language:   LangPT,
		FontFamily: FontSans,
		FontSize:   SizeBase,
	}
}

// Normalize replaces unknown enum values with defaults. Used on load so a
// corrupt preferences record degrades instead of failing.
func (p Preferences) Normalize() Preferences {
	d := DefaultPreferences()
	switch p.Theme {
	case ThemeLight, ThemeDark:
	default:
		p.Theme = d.Theme
	}
	switch p.Language {
	case LangPT, LangEN:
	default:
		p.Language = d.Language
	}
	switch p.FontFamily {
	case FontSans, FontSerif, FontMono:
	default:
		p.FontFamily = d.FontFamily
	}
	switch p.FontSize {
	case SizeSM, SizeBase, SizeLG, SizeXL, Size2XL:
	default:
		p.FontSize = d.FontSize
	}
	return p
}

// PromptIdea is a curated writing prompt shown in the idea bank.
type PromptIdea struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}
