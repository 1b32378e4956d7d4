// Package extract derives entities, a type classification, and a summary
// from raw memory content. All functions are pure: identical input yields
// identical output, with no network or model calls.
package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/eva-agent/eva-memory/internal/models"
)

const (
	// MaxEntities caps the number of entities extracted per memory.
	MaxEntities = 15

	// MaxSummaryLen is the summary length used when the caller does not
	// supply one (content prefix).
	MaxSummaryLen = 200

	// maxTypeLen truncates caller-supplied type tags.
	maxTypeLen = 20
)

// Input is the union of content shapes the extractor accepts: a structured
// mapping with well-known keys, or plain text.
type Input struct {
	structured map[string]any
	text       string
}

// Plain wraps free text.
func Plain(s string) Input { return Input{text: s} }

// Structured wraps a key/value mapping.
func Structured(m map[string]any) Input { return Input{structured: m} }

// IsStructured reports whether the input carries a mapping.
func (in Input) IsStructured() bool { return in.structured != nil }

// dump renders the input as text. Structured inputs are JSON-encoded with
// sorted keys so extraction stays deterministic.
func (in Input) dump() string {
	if in.structured != nil {
		b, err := json.Marshal(in.structured)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return in.text
}

// topicFields are scalar keys whose values become priority entities.
var topicFields = []string{
	"topic", "about", "subject", "name", "title", "category",
	"area", "domain", "field", "concept", "item", "what",
	"learning", "studying", "project", "goal", "target",
}

// listFields are list-valued keys whose string items become priority entities.
var listFields = []string{"topics", "tags", "categories", "items", "subjects", "areas"}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were be been being
		have has had do does did will would could
		should may might must shall can need dare
		ought used to of in for on with at by
		from as into through during before after above
		below between under again further then once here
		there when where why how all each few more
		most other some such no nor not only own
		same so than too very just also now and
		but if or because until while this that these
		those it its i me my we our you your
		he him his she her they them their what
		which who whom get got about like want know
		think make take see come go use using`) {
		stopWords[w] = struct{}{}
	}
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	quotedRe  = regexp.MustCompile(`"([^"]{2,30})"`)
	capsRe    = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`)
	wordRe    = regexp.MustCompile(`\b([a-z]{3,})\b`)
	bigramRe  = regexp.MustCompile(`\b([a-z]{3,}\s+[a-z]{3,})\b`)
)

// Entities extracts up to MaxEntities key topics from the input.
// Priority entities (values of recognized topic keys) come first, then
// generic entities mined from the text, sorted by (word count, length).
func Entities(in Input) []string {
	var priority []string
	generic := map[string]struct{}{}

	if in.IsStructured() {
		m := in.structured
		for _, k := range topicFields {
			if v, ok := m[k].(string); ok {
				val := strings.TrimSpace(strings.ToLower(v))
				priority = append(priority, val)
				if i := strings.LastIndex(val, "."); i >= 0 {
					priority = append(priority, val[:i])
				}
			}
		}
		for _, k := range listFields {
			if items, ok := m[k].([]any); ok {
				for _, item := range items {
					if s, ok := item.(string); ok {
						priority = append(priority, strings.TrimSpace(strings.ToLower(s)))
					}
				}
			}
		}
	}

	raw := in.dump()
	text := strings.ToLower(raw)

	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		generic[m[1]] = struct{}{}
	}
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		q := strings.TrimSpace(m[1])
		if len(strings.Fields(q)) <= 4 {
			generic[q] = struct{}{}
		}
	}
	// Capitalized phrases are matched against the original-cased text.
	for _, m := range capsRe.FindAllStringSubmatch(raw, -1) {
		c := strings.ToLower(m[1])
		if _, stop := stopWords[c]; !stop {
			generic[c] = struct{}{}
		}
	}
	for _, m := range wordRe.FindAllStringSubmatch(text, -1) {
		w := m[1]
		if _, stop := stopWords[w]; !stop && len(w) >= 3 && len(w) <= 20 {
			generic[w] = struct{}{}
		}
	}
	for _, m := range bigramRe.FindAllStringSubmatch(text, -1) {
		parts := strings.Fields(m[1])
		ok := true
		for _, p := range parts {
			if _, stop := stopWords[p]; stop {
				ok = false
				break
			}
		}
		if ok {
			generic[m[1]] = struct{}{}
		}
	}

	sortedGeneric := make([]string, 0, len(generic))
	for e := range generic {
		if _, stop := stopWords[e]; len(e) >= 3 && !stop {
			sortedGeneric = append(sortedGeneric, e)
		}
	}
	sort.Slice(sortedGeneric, func(i, j int) bool {
		wi, wj := len(strings.Fields(sortedGeneric[i])), len(strings.Fields(sortedGeneric[j]))
		if wi != wj {
			return wi < wj
		}
		if len(sortedGeneric[i]) != len(sortedGeneric[j]) {
			return len(sortedGeneric[i]) < len(sortedGeneric[j])
		}
		return sortedGeneric[i] < sortedGeneric[j]
	})

	seen := map[string]struct{}{}
	var result []string
	for _, e := range priority {
		if _, dup := seen[e]; e != "" && !dup && len(e) >= 3 {
			seen[e] = struct{}{}
			result = append(result, e)
		}
	}
	for _, e := range sortedGeneric {
		if _, dup := seen[e]; !dup {
			seen[e] = struct{}{}
			result = append(result, e)
		}
	}

	if len(result) > MaxEntities {
		result = result[:MaxEntities]
	}
	return result
}

// classifiers is the ordered keyword table; the first label whose keyword
// set intersects the text wins.
var classifiers = []struct {
	label    models.MemoryType
	keywords []string
}{
	{models.TypeInstruction, []string{"always", "never", "rule", "instruction", "standing order", "must always", "must never", "guideline", "policy"}},
	{models.TypeDecision, []string{"decided", "decision", "chose", "choice", "picked", "selected", "going with", "will use", "opted"}},
	{models.TypePreference, []string{"prefer", "preference", "favorite", "like best", "rather", "better to", "style"}},
	{models.TypeLearning, []string{"learned", "learning", "studied", "studying", "understood", "realized", "discovered", "insight"}},
	{models.TypeTask, []string{"todo", "task", "need to", "should", "must", "will do", "plan to", "going to", "next step"}},
	{models.TypeQuestion, []string{"question", "wondering", "curious", "ask about", "find out", "research", "investigate"}},
	{models.TypeNote, []string{"note", "noticed", "observed", "important", "remember that", "keep in mind"}},
	{models.TypeProgress, []string{"completed", "finished", "done", "progress", "achieved", "accomplished", "milestone"}},
}

// Classify determines the memory type. A structured input with a string
// "type" field short-circuits (truncated to 20 chars); otherwise the first
// matching entry of the ordered keyword table wins, defaulting to "info".
func Classify(in Input) models.MemoryType {
	if in.IsStructured() {
		if t, ok := in.structured["type"].(string); ok {
			return truncate(t, maxTypeLen)
		}
	}

	text := strings.ToLower(in.dump())
	for _, c := range classifiers {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.label
			}
		}
	}
	return models.TypeInfo
}

// Summarize returns the default summary for content: its first
// MaxSummaryLen bytes, never splitting a rune.
func Summarize(content string) string {
	return truncate(content, MaxSummaryLen)
}

// truncate caps s at n bytes, backed off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
