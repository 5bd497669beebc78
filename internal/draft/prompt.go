package draft

import (
	"fmt"
	"strings"

	"promoscout/internal/config"
	"promoscout/internal/model"
)

// BuildPrompt assembles the single generation prompt for one item. The
// brand-mention section appears only for promotional approaches; the
// non-promotional family is explicitly forbidden from naming the brand.
func BuildPrompt(p config.ProjectConfig, item model.DiscoveredItem, a Approach) string {
	b := &strings.Builder{}
	b.WriteString("Write a reply to the following post. Reply to the post title, not to any nested comments.\n\n")
	fmt.Fprintf(b, "Post title: %s\n", item.Title)
	if strings.TrimSpace(item.Snippet) != "" {
		fmt.Fprintf(b, "Post snippet: %s\n", item.Snippet)
	}

	b.WriteString("\nVoice:\n")
	if p.Voice.Tone != "" {
		fmt.Fprintf(b, "- Tone: %s\n", p.Voice.Tone)
	}
	if len(p.Voice.PreferredPhrases) > 0 {
		fmt.Fprintf(b, "- Vocabulary to lean on: %s\n", strings.Join(p.Voice.PreferredPhrases, ", "))
	}
	if len(p.Voice.AvoidedPhrases) > 0 {
		fmt.Fprintf(b, "- Never use: %s\n", strings.Join(p.Voice.AvoidedPhrases, ", "))
	}
	if strings.TrimSpace(p.Voice.CustomInstructions) != "" {
		fmt.Fprintf(b, "- %s\n", p.Voice.CustomInstructions)
	}

	fmt.Fprintf(b, "\nStyle: %s\n", a.Instruction)

	if a.Promotional {
		b.WriteString("\nBrand to mention:\n")
		fmt.Fprintf(b, "- Name: %s\n", p.Brand.Name)
		fmt.Fprintf(b, "- What it is: %s\n", p.Brand.Description)
		diffs := p.Brand.Differentiators
		if len(diffs) > 3 {
			diffs = diffs[:3]
		}
		for _, d := range diffs {
			fmt.Fprintf(b, "- %s\n", d)
		}
		b.WriteString("The mention must read as incidental personal experience, never as advertising.\n")
	} else {
		fmt.Fprintf(b, "\nDo not mention %s or any other product or brand name in the reply.\n", p.Brand.Name)
	}

	b.WriteString("\nLength: 50-150 words. Plain prose only: no headers, no lists, no markup, no links.")
	return b.String()
}

// StripWrappingQuotes removes a single layer of quotation marks the model
// sometimes wraps its output in.
func StripWrappingQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}}
	for _, p := range pairs {
		if strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}
