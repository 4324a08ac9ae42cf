package packager

import (
	"fmt"
	"strings"
	"time"

	"bookforge/internal/book"
	"bookforge/internal/language"
)

// Manifest is the structured sibling of manifest.txt.
type Manifest struct {
	RunID       string              `json:"runId,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Order       book.Order          `json:"order"`
	Product     book.ProductSpec    `json:"product"`
	Input       book.StoryInput     `json:"input"`
	Style       book.StyleLock      `json:"style"`
	Blueprint   *book.Blueprint     `json:"blueprint"`
	Plan        book.SpreadPlan     `json:"plan"`
	Prompts     []string            `json:"prompts"`
	Pages       []book.Page         `json:"pages"`
	Logs        []book.WorkflowLog  `json:"logs"`
	Files       map[string][]string `json:"files"`
}

func buildManifest(b Bundle, now time.Time) Manifest {
	blueprint, plan, prompts := b.Session.Approved()
	return Manifest{
		RunID:       b.RunID,
		GeneratedAt: now.UTC(),
		Order:       b.Session.Order,
		Product:     b.Spec,
		Input:       b.Session.Input,
		Style:       b.Session.Style,
		Blueprint:   blueprint,
		Plan:        plan,
		Prompts:     prompts,
		Pages:       b.Session.Pages(),
		Logs:        b.Session.Logs(),
	}
}

// renderText writes the plain-text manifest.
func renderText(m Manifest) string {
	var sb strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&sb, "%-15s %s\n", label+":", value)
	}
	title := m.Order.Title
	if title == "" && m.Blueprint != nil {
		title = m.Blueprint.Title
	}
	lang := m.Order.Language
	if lang == "" {
		lang = m.Input.Language
	}

	line("Order", m.Order.ID)
	line("Customer", m.Order.CustomerName)
	line("Phone", m.Order.CustomerPhone)
	line("Title", language.Title(lang, title))
	line("Recipient", m.Order.Recipient)
	line("Language", fmt.Sprintf("%s (%s)", language.DisplayName(lang), language.ToISO2(lang)))
	line("Size", fmt.Sprintf("%s %s", m.Product.Name, m.Product.SizeLabel()))
	line("Generated", m.GeneratedAt.Format(time.RFC3339))
	sb.WriteString("\n")

	for _, page := range m.Pages {
		fmt.Fprintf(&sb, "--- Page %d ---\n", page.Number)
		sb.WriteString(strings.TrimSpace(page.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}
