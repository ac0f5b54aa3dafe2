package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/policyvoice/corroborate/internal/model"
)

// PlainText strips HTML markup from submitted text, keeping visible text only.
// Plain input passes through with whitespace collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}
	return collapseSpace(extractVisibleText(doc))
}

// Normalize lowercases text and collapses whitespace for keyword matching
func Normalize(text string) string {
	return strings.ToLower(collapseSpace(text))
}

// Prepare returns a working copy of the story with markup stripped and,
// when the structured impact is missing, figures extracted from the text.
// The input story is not modified.
func Prepare(s model.Story) model.Story {
	out := s
	out.Headline = PlainText(s.Headline)
	out.Body = PlainText(s.Body)

	if s.Impact != nil {
		impact := *s.Impact
		out.Impact = &impact
	}
	if s.Demographics != nil {
		demo := *s.Demographics
		out.Demographics = &demo
	}

	figures := ExtractFigures(out.Text())
	if out.Impact == nil && !figures.Empty() {
		out.Impact = &model.Impact{}
	}
	if out.Impact != nil {
		if out.Impact.AffectedPopulation == 0 {
			out.Impact.AffectedPopulation = figures.LargestCount()
		}
		if out.Impact.EconomicAmount == 0 {
			out.Impact.EconomicAmount = figures.LargestAmount()
		}
	}
	return out
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			case "br", "p", "div", "li":
				buf.WriteString(" ")
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// Sentences splits text into sentences (simple heuristic)
func Sentences(text string) []string {
	text = collapseSpace(text)

	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on decimals and abbreviations
			if i+1 < len(text) && text[i+1] == ' ' {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
