package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Figures are quantitative claims found in story text
type Figures struct {
	Amounts  []Amount
	Counts   []Count
	Percents []float64
}

// Amount is a dollar figure ("$2.5 million")
type Amount struct {
	Value float64
	Text  string
}

// Count is a number of people or units ("5,000 residents")
type Count struct {
	Value int64
	Noun  string
	Text  string
}

var (
	amountRe = regexp.MustCompile(`(?i)\$\s?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)(?:\s*(thousand|million|billion|k|m|bn)\b)?`)

	countRe = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)(?:\s*(thousand|million))?\s+(?:[a-z-]+\s+)?` +
		`(residents|people|persons|families|households|homeowners|renters|tenants|students|veterans|workers|employees|children|kids|seniors|neighbors|victims|voters|customers|homes)\b`)

	percentRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s?(?:%|percent\b)`)
)

var multipliers = map[string]float64{
	"thousand": 1e3,
	"k":        1e3,
	"million":  1e6,
	"m":        1e6,
	"billion":  1e9,
	"bn":       1e9,
}

// ExtractFigures pulls dollar amounts, head counts and percentages from text
func ExtractFigures(text string) Figures {
	var f Figures

	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		v, ok := parseNumber(m[1], m[2])
		if !ok {
			continue
		}
		f.Amounts = append(f.Amounts, Amount{Value: v, Text: strings.TrimSpace(m[0])})
	}

	for _, m := range countRe.FindAllStringSubmatch(text, -1) {
		v, ok := parseNumber(m[1], m[2])
		if !ok || v < 1 {
			continue
		}
		f.Counts = append(f.Counts, Count{
			Value: int64(v),
			Noun:  strings.ToLower(m[3]),
			Text:  strings.TrimSpace(m[0]),
		})
	}

	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Percents = append(f.Percents, v)
		}
	}

	return f
}

func parseNumber(digits, scale string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if mult, ok := multipliers[strings.ToLower(scale)]; ok {
		v *= mult
	}
	return v, true
}

// Empty reports whether no amounts or counts were found
func (f Figures) Empty() bool {
	return len(f.Amounts) == 0 && len(f.Counts) == 0
}

// LargestAmount returns the largest dollar figure, or 0
func (f Figures) LargestAmount() float64 {
	var max float64
	for _, a := range f.Amounts {
		if a.Value > max {
			max = a.Value
		}
	}
	return max
}

// LargestCount returns the largest head count, or 0
func (f Figures) LargestCount() int64 {
	var max int64
	for _, c := range f.Counts {
		if c.Value > max {
			max = c.Value
		}
	}
	return max
}
