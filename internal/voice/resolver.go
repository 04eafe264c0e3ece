package voice

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// DefaultMatchThreshold is the score a contact must exceed to become a candidate
const DefaultMatchThreshold = 0.3

// Scorer rates how similar two names are, from 0 (unrelated) to 1 (identical)
type Scorer func(a, b string) float64

// Scorer names accepted by ScorerByName
const (
	ScorerPositional = "positional"
	ScorerToken      = "token"
)

// ScorerByName returns the scorer registered under name, falling back to Score
func ScorerByName(name string) Scorer {
	if strings.EqualFold(name, ScorerToken) {
		return TokenScore
	}
	return Score
}

// Score compares two names case-insensitively:
// equal names score 1, containment in either direction scores 0.8, otherwise
// the share of positions holding the same rune, over the longer name's length.
func Score(a, b string) float64 {
	s1 := []rune(strings.ToLower(a))
	s2 := []rune(strings.ToLower(b))

	if string(s1) == string(s2) {
		return 1.0
	}
	if strings.Contains(string(s1), string(s2)) || strings.Contains(string(s2), string(s1)) {
		return 0.8
	}

	shorter, longer := len(s1), len(s2)
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	matches := 0
	for i := 0; i < shorter; i++ {
		if s1[i] == s2[i] {
			matches++
		}
	}
	return float64(matches) / float64(longer)
}

// TokenScore extends Score with an order-insensitive token comparison, so
// "Kumar Ramesh" still finds "Ramesh Kumar". Tokens are case folded with accents
// stripped. Each search token is paired with its closest name token by edit
// distance; the result is the better of the two scores.
func TokenScore(a, b string) float64 {
	base := Score(a, b)

	nameTokens := strings.Fields(foldName(a))
	searchTokens := strings.Fields(foldName(b))
	if len(nameTokens) == 0 || len(searchTokens) == 0 {
		return base
	}

	var total float64
	for _, st := range searchTokens {
		best := 0.0
		for _, nt := range nameTokens {
			if sim := tokenSimilarity(st, nt); sim > best {
				best = sim
			}
		}
		total += best
	}

	// Tokens of the contact that the search never mentioned lower the score
	longest := len(searchTokens)
	if len(nameTokens) > longest {
		longest = len(nameTokens)
	}
	tokenScore := total / float64(longest)

	if tokenScore > base {
		return tokenScore
	}
	return base
}

// foldName lowercases name and drops combining marks, so "Ramésh" folds to "ramesh"
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return cases.Fold().String(folded)
}

func tokenSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Resolver ranks directory contacts against a spoken name
type Resolver struct {
	Scorer    Scorer
	Threshold float64
}

// NewResolver creates a resolver; a nil scorer means Score
func NewResolver(scorer Scorer, threshold float64) *Resolver {
	if scorer == nil {
		scorer = Score
	}
	return &Resolver{Scorer: scorer, Threshold: threshold}
}

// Resolve scores every contact against rawName and returns those above the threshold,
// best first. Contacts with equal scores keep their directory order.
func (r *Resolver) Resolve(directory []models.Contact, rawName string) []models.Candidate {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return nil
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = Score
	}

	candidates := make([]models.Candidate, 0)
	for _, contact := range directory {
		score := scorer(contact.Name, rawName)
		if score > r.Threshold {
			candidates = append(candidates, models.Candidate{Contact: contact, Score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// Resolve ranks contacts with the positional scorer and the default threshold
func Resolve(directory []models.Contact, rawName string) []models.Candidate {
	return NewResolver(Score, DefaultMatchThreshold).Resolve(directory, rawName)
}
