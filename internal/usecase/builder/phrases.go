package builder

import (
	"sort"
	"strings"
	"unicode"
)

// Phrase mining thresholds.
const (
	TopPhrases      = 5
	MinHelpfulVotes = 0
	ProMinStars     = 4
	ConMaxStars     = 2
	// sentimentWindow is the max token distance between a sentiment word and its aspect.
	sentimentWindow = 4
)

// aspectTerms map review vocabulary onto canonical aspects. Two-word terms are
// matched before single words.
var aspectTerms = map[string]string{
	"sound quality":      "sound",
	"audio quality":      "sound",
	"battery life":       "battery",
	"build quality":      "build quality",
	"noise cancelling":   "noise cancelling",
	"noise canceling":    "noise cancelling",
	"noise cancellation": "noise cancelling",
	"ear tips":           "ear tips",
	"touch controls":     "controls",
	"sound":              "sound",
	"audio":              "sound",
	"bass":               "bass",
	"treble":             "treble",
	"battery":            "battery",
	"fit":                "fit",
	"comfort":            "comfort",
	"anc":                "noise cancelling",
	"mic":                "mic",
	"microphone":         "mic",
	"connection":         "connection",
	"bluetooth":          "connection",
	"pairing":            "connection",
	"build":              "build quality",
	"price":              "value",
	"value":              "value",
	"case":               "case",
	"volume":             "volume",
	"cable":              "cable",
	"cord":               "cable",
	"controls":           "controls",
	"app":                "app",
}

var positiveWords = map[string]bool{
	"great": true, "excellent": true, "good": true, "amazing": true, "awesome": true,
	"solid": true, "clear": true, "crisp": true, "deep": true, "strong": true,
	"perfect": true, "fantastic": true, "decent": true, "nice": true, "rich": true,
	"long": true, "comfortable": true, "stable": true, "secure": true,
}

var negativeWords = map[string]bool{
	"poor": true, "bad": true, "terrible": true, "weak": true, "awful": true,
	"cheap": true, "flimsy": true, "muffled": true, "short": true, "horrible": true,
	"uncomfortable": true, "disappointing": true, "broken": true, "loose": true,
	"tinny": true, "unstable": true, "quiet": true, "useless": true,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "isn't": true, "wasn't": true,
	"aren't": true, "don't": true, "doesn't": true, "hardly": true,
}

type token struct {
	word string
	pos  int
}

// extractPhrases returns the distinct "<sentiment> <aspect>" phrases of one
// review, using the positive or the negative lexicon.
func extractPhrases(text string, positive bool) []string {
	lexicon := negativeWords
	if positive {
		lexicon = positiveWords
	}

	seen := make(map[string]struct{})
	var out []string
	for _, clause := range splitClauses(text) {
		words := tokenize(clause)
		aspects := findAspects(words)
		if len(aspects) == 0 {
			continue
		}
		var sentiments []token
		for i, w := range words {
			if lexicon[w] && (i == 0 || !negators[words[i-1]]) {
				sentiments = append(sentiments, token{word: w, pos: i})
			}
		}
		for _, a := range aspects {
			s, ok := nearest(sentiments, a.pos)
			if !ok {
				continue
			}
			phrase := s.word + " " + a.word
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, phrase)
		}
	}
	return out
}

func splitClauses(text string) []string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, " but ", ".")
	text = strings.ReplaceAll(text, " however ", ".")
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', ',', '\n':
			return true
		}
		return false
	})
}

func tokenize(clause string) []string {
	return strings.FieldsFunc(clause, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func findAspects(words []string) []token {
	var out []token
	for i := 0; i < len(words); i++ {
		if i+1 < len(words) {
			if a, ok := aspectTerms[words[i]+" "+words[i+1]]; ok {
				out = append(out, token{word: a, pos: i})
				i++
				continue
			}
		}
		if a, ok := aspectTerms[words[i]]; ok {
			out = append(out, token{word: a, pos: i})
		}
	}
	return out
}

func nearest(sentiments []token, pos int) (token, bool) {
	best, bestDist := token{}, sentimentWindow+1
	for _, s := range sentiments {
		d := s.pos - pos
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist <= sentimentWindow
}

// PhraseTally is the support of one phrase across reviews.
type PhraseTally struct {
	// Support counts reviews that mention the phrase.
	Support int
	// Weight sums 1+helpful votes over those reviews.
	Weight int64
}

// rankPhrases orders phrases by support, then weight (both descending),
// then alphabetically, and keeps the first n.
func rankPhrases(tallies map[string]PhraseTally, n int) []string {
	if len(tallies) == 0 {
		return nil
	}
	phrases := make([]string, 0, len(tallies))
	for p := range tallies {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		a, b := tallies[phrases[i]], tallies[phrases[j]]
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return phrases[i] < phrases[j]
	})
	if len(phrases) > n {
		phrases = phrases[:n]
	}
	return phrases
}
