package segment

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Strategy names reported alongside each segment.
const (
	SourceSentence       = "sentence"
	SourceExactClause    = "exact_clause"
	SourceTopicAnchored  = "topic_anchored"
	SourceWordWindow     = "word_window"
	SourceDocumentWindow = "document_window"
)

// minClauseWords is how many words besides the identifier a clause needs
// before it is considered to say something about the entity.
const minClauseWords = 2

// minClauseLen rejects clauses too short to carry sentiment.
const minClauseLen = 6

// clauseBoundary marks where one clause ends and the next begins: sentence
// and clause punctuation, or a contrastive/sequencing conjunction.
var clauseBoundary = regexp.MustCompile(`[,;:!?]|\.(?:\s|$)|\s(?:but|however|then|although|though|whereas|while|switch\w*)\b`)

// anchorGroup is one family of topic anchor words. A group with a lead
// anchors on a lead word (a verb) followed later by one of its words.
type anchorGroup struct {
	lead *regexp.Regexp
	word *regexp.Regexp
}

func wordSet(alt string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + alt + `)\b`)
}

// topicAnchors are the anchor-word groups used by TopicAnchoredPattern, in
// priority order. The last group anchors on an evaluative verb phrase.
var topicAnchors = []anchorGroup{
	{word: wordSet(`costs?|pric\w*|fees?|expensive|cheap|affordable|money`)},
	{word: wordSet(`features?|functionality|capabilit\w*|tools?|options?`)},
	{word: wordSet(`interface|ui|ux|user|experience|easy|difficult|intuitive|confusing`)},
	{word: wordSet(`support|service|help\w*|customer|staff|representatives?`)},
	{word: wordSet(`integrations?|connect\w*|sync\w*|api|compatib\w*`)},
	{word: wordSet(`payroll|pay\w*|processing|tax\w*|benefits|hr`)},
	{word: wordSet(`performance|speed|fast|slow|reliab\w*|stable|crash\w*|downtime`)},
	{
		lead: wordSet(`is|was|has|had|have|been`),
		word: wordSet(`fine|good|great|bad|terrible|awful|excellent|horrible|solid|mess`),
	},
}

// sentenceStop ends a topic-anchored clause.
var sentenceStop = regexp.MustCompile(`[.!?]`)

// Target holds the compiled identifier patterns for one entity, together
// with the identifiers of every other entity.
type Target struct {
	entity  string
	ids     []string
	others  []string
	idRe    *regexp.Regexp
	otherRe *regexp.Regexp
}

func newTarget(entity string, ids, others []string) *Target {
	m := &Target{
		entity: entity,
		ids:    longestFirst(ids),
		others: longestFirst(others),
	}
	m.idRe = regexp.MustCompile(alternation(m.ids))
	if len(m.others) > 0 {
		m.otherRe = regexp.MustCompile(alternation(m.others))
	}
	return m
}

// mentionedIn reports whether s contains any identifier of the target.
func (m *Target) mentionedIn(s string) bool {
	for _, id := range m.ids {
		if strings.Contains(s, id) {
			return true
		}
	}
	return false
}

// crossMentionIn reports whether s contains an identifier of another entity.
func (m *Target) crossMentionIn(s string) bool {
	for _, id := range m.others {
		if strings.Contains(s, id) {
			return true
		}
	}
	return false
}

// wordMentions reports whether a single whitespace-delimited word contains a
// target identifier.
func (m *Target) wordMentions(w string) bool {
	for _, id := range m.ids {
		if strings.Contains(w, id) {
			return true
		}
	}
	return false
}

// Strategy narrows a sentence that mentions the target and at least one
// other entity down to the part that is about the target.
type Strategy interface {
	Name() string
	Extract(sentence string, m *Target) (string, bool)
}

// DefaultStrategies returns the clause strategies in the order they are
// tried.
func DefaultStrategies(window int) []Strategy {
	return []Strategy{
		ExactClausePattern{},
		TopicAnchoredPattern{},
		WordWindowFallback{Radius: window},
	}
}

// ExactClausePattern takes the clause enclosing each target mention, where
// clauses are bounded by punctuation and contrastive conjunctions, and trims
// it further at any other entity's mention. Every qualifying clause in the
// sentence is kept.
type ExactClausePattern struct{}

func (ExactClausePattern) Name() string { return SourceExactClause }

func (ExactClausePattern) Extract(s string, m *Target) (string, bool) {
	spans := clauseSpans(s)
	var clauses []string
	seen := make(map[[2]int]bool)
	for _, loc := range m.idRe.FindAllStringIndex(s, -1) {
		lo, hi := enclosing(spans, loc[0])
		if m.otherRe != nil {
			base := lo
			for _, o := range m.otherRe.FindAllStringIndex(s[base:hi], -1) {
				oStart, oEnd := base+o[0], base+o[1]
				switch {
				case oEnd <= loc[0] && oEnd > lo:
					lo = oEnd
				case oStart >= loc[1] && oStart < hi:
					hi = oStart
				}
			}
		}
		key := [2]int{lo, hi}
		if seen[key] {
			continue
		}
		seen[key] = true
		if countWords(s[lo:loc[0]])+countWords(s[loc[1]:hi]) < minClauseWords {
			continue
		}
		if clause := trimClause(s[lo:hi]); len(clause) >= minClauseLen {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, " "), true
}

// TopicAnchoredPattern runs from a target mention to the nearest topic anchor
// word in the same sentence, provided no other entity is named in between.
// Anchor and stop positions are found once per sentence, so the cost stays
// near linear however many mentions a sentence holds.
type TopicAnchoredPattern struct{}

func (TopicAnchoredPattern) Name() string { return SourceTopicAnchored }

func (TopicAnchoredPattern) Extract(s string, m *Target) (string, bool) {
	starts := m.idRe.FindAllStringIndex(s, -1)
	if len(starts) == 0 {
		return "", false
	}
	stops := sentenceStop.FindAllStringIndex(s, -1)
	for _, g := range topicAnchors {
		words := g.word.FindAllStringIndex(s, -1)
		if len(words) == 0 {
			continue
		}
		var leads [][]int
		if g.lead != nil {
			if leads = g.lead.FindAllStringIndex(s, -1); len(leads) == 0 {
				continue
			}
		}
		for _, loc := range starts {
			limit := len(s)
			if st := firstFrom(stops, loc[1]); st != nil {
				limit = st[0]
			}
			from := loc[1]
			if leads != nil {
				l := firstFrom(leads, from)
				if l == nil || l[0] >= limit {
					continue
				}
				from = l[1]
			}
			w := firstFrom(words, from)
			if w == nil || w[0] >= limit {
				continue
			}
			if m.otherRe != nil && m.otherRe.MatchString(s[loc[1]:w[1]]) {
				continue
			}
			if clause := trimClause(s[loc[0]:w[1]]); len(clause) >= minClauseLen {
				return clause, true
			}
		}
	}
	return "", false
}

// firstFrom returns the first match starting at or after pos. matches must be
// sorted by start, as FindAllStringIndex returns them.
func firstFrom(matches [][]int, pos int) []int {
	i := sort.Search(len(matches), func(i int) bool { return matches[i][0] >= pos })
	if i == len(matches) {
		return nil
	}
	return matches[i]
}

// WordWindowFallback keeps Radius words either side of the first word that
// contains a target identifier.
type WordWindowFallback struct {
	Radius int
}

func (WordWindowFallback) Name() string { return SourceWordWindow }

func (w WordWindowFallback) Extract(s string, m *Target) (string, bool) {
	words := strings.Fields(s)
	for i, word := range words {
		if m.wordMentions(word) {
			return window(words, i, w.Radius), true
		}
	}
	return "", false
}

// window joins words[i-r : i+r+1], clipped to the slice.
func window(words []string, i, r int) string {
	lo := i - r
	if lo < 0 {
		lo = 0
	}
	hi := i + r + 1
	if hi > len(words) {
		hi = len(words)
	}
	return strings.Join(words[lo:hi], " ")
}

// clauseSpans cuts s at every clause boundary and returns [start, end) pairs.
func clauseSpans(s string) [][2]int {
	var spans [][2]int
	start := 0
	for _, b := range clauseBoundary.FindAllStringIndex(s, -1) {
		spans = append(spans, [2]int{start, b[0]})
		start = b[1]
	}
	return append(spans, [2]int{start, len(s)})
}

// enclosing returns the span containing byte offset pos. A mention that
// starts inside a boundary match belongs to the following span.
func enclosing(spans [][2]int, pos int) (int, int) {
	i := sort.Search(len(spans), func(i int) bool { return spans[i][1] > pos })
	switch {
	case i == len(spans):
		return pos, spans[len(spans)-1][1]
	case pos >= spans[i][0]:
		return spans[i][0], spans[i][1]
	default:
		return pos, spans[i][1]
	}
}

func countWords(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

func trimClause(s string) string {
	return strings.Trim(s, " \t,;:.!?")
}

func longestFirst(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func alternation(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = regexp.QuoteMeta(id)
	}
	return strings.Join(quoted, "|")
}
