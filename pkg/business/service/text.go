package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ITextService prepares free-text search terms for the SEFAZ API, which
// matches descriptions as unaccented uppercase tokens.
type ITextService interface {
	FoldDescription(input string) string
	ReduceToLength(input string, length int) string
	ClearAndReduce(input string, length int) string
}

type TextService struct{}

func NewTextService() *TextService {
	return &TextService{}
}

// FoldDescription strips diacritics, collapses whitespace and uppercases
// the input ("Água Mineral c/ Gás " -> "AGUA MINERAL C/ GAS").
func (ts *TextService) FoldDescription(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, input)
	if err != nil {
		folded = input
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}

// ReduceToLength cuts the input at a word boundary so the result never
// exceeds length bytes.
func (ts *TextService) ReduceToLength(input string, length int) string {
	var builder strings.Builder
	words := strings.Fields(input)
	totalLength := 0

	for i, word := range words {
		if totalLength+len(word) > length {
			break
		}

		if i > 0 {
			builder.WriteString(" ")
			totalLength++
		}

		builder.WriteString(word)
		totalLength += len(word)
	}

	result := builder.String()
	if result == "" && len(words) > 0 && length > 0 {
		// single word longer than the budget, hard cut
		first := words[0]
		if len(first) > length {
			first = first[:length]
		}
		return first
	}
	return result
}

// ClearAndReduce folds and bounds a description in one pass.
func (ts *TextService) ClearAndReduce(input string, length int) string {
	return ts.ReduceToLength(ts.FoldDescription(input), length)
}
