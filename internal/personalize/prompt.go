package personalize

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/clickconverter/internal/content"
)

const systemMessage = "Du bist ein Experte für Conversion-Optimierung und Personalisierung. Antworte immer nur mit validem JSON, ohne Markdown-Formatierung."

// buildUserPrompt lists the leading headlines, paragraphs and buttons of c and
// states the rewrite rules plus the exact JSON shape expected back.
func buildUserPrompt(c content.Structured, kw string) string {
	var sb strings.Builder
	sb.WriteString("Du bist ein Conversion-Optimierungs-Experte. Deine Aufgabe ist es, Website-Inhalte so zu personalisieren, dass sie perfekt auf einen bestimmten Suchbegriff abgestimmt sind.\n\n")
	fmt.Fprintf(&sb, "Der Besucher hat nach %q gesucht und ist auf dieser Website gelandet.\n\n", kw)
	sb.WriteString("Hier sind die aktuellen Inhalte der Website:\n\n")
	writeNumbered(&sb, "HEADLINES", content.Head(c.Headlines, content.PromptHeadlines))
	writeNumbered(&sb, "PARAGRAPHS", content.Head(c.Paragraphs, content.PromptParagraphs))
	writeNumbered(&sb, "BUTTONS/CTAs", content.Head(c.Buttons, content.PromptButtons))
	sb.WriteString("Erstelle personalisierte Versionen dieser Inhalte, die:\n")
	fmt.Fprintf(&sb, "1. Den Suchbegriff %q natürlich integrieren\n", kw)
	sb.WriteString("2. Die Suchintention des Besuchers direkt ansprechen\n")
	fmt.Fprintf(&sb, "3. Relevanter und überzeugender für jemanden sind, der nach %q sucht\n", kw)
	sb.WriteString("4. Die ursprüngliche Bedeutung und den Kontext beibehalten\n")
	sb.WriteString("5. Nicht zu werblich oder pushy klingen\n\n")
	sb.WriteString("Antworte NUR mit einem JSON-Objekt in diesem exakten Format (keine Markdown-Formatierung, kein ```json):\n")
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  \"heroHeadline\": \"Personalisierte Hauptüberschrift mit %s-Fokus\",\n", kw)
	fmt.Fprintf(&sb, "  \"heroSubheadline\": \"Personalisierter Untertitel der die %s-Vorteile hervorhebt\",\n", kw)
	sb.WriteString("  \"heroCta\": \"Personalisierter Call-to-Action Button Text\",\n")
	sb.WriteString("  \"headlines\": [\"Headline 1\", \"Headline 2\", \"Headline 3\"],\n")
	sb.WriteString("  \"paragraphs\": [\"Paragraph 1\", \"Paragraph 2\", \"Paragraph 3\"],\n")
	sb.WriteString("  \"buttons\": [\"Button 1\", \"Button 2\"]\n")
	sb.WriteString("}")
	return sb.String()
}

func writeNumbered(sb *strings.Builder, label string, items []string) {
	sb.WriteString(label)
	sb.WriteString(":\n")
	for i, it := range items {
		fmt.Fprintf(sb, "%d. %s\n", i+1, it)
	}
	sb.WriteString("\n")
}
