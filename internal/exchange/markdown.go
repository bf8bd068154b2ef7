package exchange

import (
	"fmt"
	"strings"
)

// Markdown renders an export document as a readable list of links.
func Markdown(doc *Document) string {
	var b strings.Builder

	b.WriteString("# Tab Groups\n")
	if doc.Timestamp != "" {
		fmt.Fprintf(&b, "> Exported %s\n", doc.Timestamp)
	}

	for _, g := range doc.Groups {
		n := len(g.Tabs)
		noun := "tabs"
		if n == 1 {
			noun = "tab"
		}
		title := g.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n", title, n, noun)
		if g.Color != "" {
			fmt.Fprintf(&b, "_%s_\n", g.Color)
		}
		b.WriteString("\n")

		for _, tab := range g.Tabs {
			label := tab.Title
			if label == "" {
				label = tab.URL
			}
			fmt.Fprintf(&b, "- [%s](%s)", label, tab.URL)
			if tab.Pinned {
				b.WriteString(" (pinned)")
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
