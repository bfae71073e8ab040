// Package export renders a story into downloadable document formats.
// Every renderer is a pure transform of the story snapshot it is given.
package export

import (
	"fmt"
	"strings"

	"chatfic/pkg/domain"
)

// Format selects an export rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPrint    Format = "print"
)

// ValidFormat reports whether f is a known export format.
func ValidFormat(f Format) bool {
	switch f {
	case FormatText, FormatMarkdown, FormatPrint:
		return true
	}
	return false
}

// ContentType returns the MIME type for a format.
func ContentType(f Format) string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render dispatches to the format's renderer.
func Render(story domain.Story, f Format) (string, error) {
	switch f {
	case FormatText:
		return Text(story), nil
	case FormatMarkdown:
		return Markdown(story), nil
	case FormatPrint:
		return Print(story), nil
	default:
		return "", fmt.Errorf("unknown export format: %s", f)
	}
}

// Text renders the full thread as plain text with an uppercase title
// header and a labeled section per message.
func Text(story domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\nUNIVERSE: %s\n\n", strings.ToUpper(story.Title), story.Universe)
	sections := make([]string, 0, len(story.Messages))
	for _, msg := range story.Messages {
		label := "IA"
		if msg.Role == domain.RoleUser {
			label = "AUTOR"
		}
		sections = append(sections, fmt.Sprintf("[%s]:\n%s\n", label, msg.Content))
	}
	b.WriteString(strings.Join(sections, "\n"))
	return b.String()
}

// Markdown renders the thread with a level-1 title heading, the universe
// line, and a level-2 section per message in order.
func Markdown(story domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n**Universo:** %s\n\n", story.Title, story.Universe)
	for _, msg := range story.Messages {
		label := "IA"
		if msg.Role == domain.RoleUser {
			label = "Autor"
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", label, msg.Content)
	}
	return b.String()
}

// Print renders a paginated reading copy: a title page, then only the
// model-authored chapters, one per page, separated by form feeds.
func Print(story domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", strings.ToUpper(story.Title), story.Universe)
	if story.AuthorName != "" {
		fmt.Fprintf(&b, "por %s\n", story.AuthorName)
	}
	for _, msg := range story.Messages {
		if msg.Role != domain.RoleModel {
			continue
		}
		b.WriteString("\f")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Filename builds a sanitized download filename for the format.
func Filename(story domain.Story, f Format) string {
	name := strings.TrimSpace(story.Title)
	if name == "" {
		name = "story"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", "\"", "", "\n", " ", "\r", " ")
	name = replacer.Replace(name)
	switch f {
	case FormatMarkdown:
		return name + ".md"
	default:
		return name + ".txt"
	}
}
