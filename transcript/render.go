// Package transcript renders conversation windows as sanitized HTML or
// plain text, for debugging UIs and exported conversation logs.
package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/youssefsiam38/windowpg/types"
)

// Renderer converts turn content (Markdown) into sanitized HTML.
// Safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer with GitHub-flavored Markdown and a
// user-generated-content sanitization policy
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// RenderTurnHTML renders a single turn as a sanitized HTML fragment.
// Turn content is treated as untrusted Markdown.
func (r *Renderer) RenderTurnHTML(turn types.Turn) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(turn.Content), &buf); err != nil {
		return "", fmt.Errorf("rendering turn %s: %w", turn.ID, err)
	}
	body := r.policy.SanitizeBytes(buf.Bytes())

	classes := "turn turn-" + string(turn.Role)
	if turn.IsSummary {
		classes += " turn-summary"
	}
	if turn.IsPinned {
		classes += " turn-pinned"
	}

	return fmt.Sprintf("<div class=%q data-sequence=\"%d\">\n%s</div>\n",
		classes, turn.SequenceIndex, body), nil
}

// RenderHTML renders a conversation window as a sanitized HTML fragment,
// one div per turn in order
func (r *Renderer) RenderHTML(turns []types.Turn) (string, error) {
	var sb strings.Builder
	for _, turn := range turns {
		fragment, err := r.RenderTurnHTML(turn)
		if err != nil {
			return "", err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}

// RenderText renders a conversation window as plain text with role labels,
// one turn per block
func RenderText(turns []types.Turn) string {
	var sb strings.Builder
	for i, turn := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[")
		sb.WriteString(string(turn.Role))
		if turn.IsSummary {
			sb.WriteString(", summary")
		}
		sb.WriteString("] ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
