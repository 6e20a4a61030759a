package services

import (
	"regexp"
	"strings"
)

// maxKeywords caps the lexical query length.
const maxKeywords = 20

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were been be have has had do does did will would could
		should may might must shall can need dare ought used to of in for on with at
		by from as into through during before after above below between under again
		further then once here there when where why how all each few more most other
		some such no nor not only own same so than too very just and but if or because
		until while although though this that these those which who whom what whose`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords builds the lexical query for hybrid search: distinct
// lower-cased words longer than two characters that are not stop words,
// at most 20 of them in first-seen order, joined by " | ".
func ExtractKeywords(text string) string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return strings.Join(keywords, " | ")
}
