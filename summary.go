package htmlview

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"golang.org/x/net/html"
)

// Summary holds a few facts about a source document, shown next to the
// output pane.
type Summary struct {
	Title      string `json:"title,omitempty"`
	TextLength int    `json:"text_length"`
	Segments   int    `json:"segments"`
	MaxDepth   int    `json:"max_depth"`
}

// Summarize never fails: if the document cannot be parsed, Title and
// TextLength stay zero.
func Summarize(source string) Summary {
	lines := layout(source)
	summary := Summary{
		Segments: len(lines),
		MaxDepth: lo.Max(lo.Map(lines, func(l line, _ int) int { return l.depth })),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil || len(doc.Nodes) == 0 {
		return summary
	}
	summary.Title = strings.TrimSpace(doc.Find("title").First().Text())
	summary.TextLength = utf8.RuneCountInString(normalizeSpace(extractText(doc.Nodes[0])))
	return summary
}

// extractText recursively traverses the HTML nodes and extracts all plain text.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	// Skip script, style and title; the title is reported separately.
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "title") {
		return ""
	}

	var builder strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		childText := extractText(c)
		if childText == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(childText)
	}
	return builder.String()
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
