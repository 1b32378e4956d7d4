package graph

import "strings"

// luceneSpecials are the metacharacters reserved by the fulltext query
// parser. Caller text is escaped before being handed to the index so raw
// input cannot change query semantics.
const luceneSpecials = `+-&|!(){}[]^"~*?:\/`

// EscapeFulltext backslash-escapes fulltext query metacharacters.
func EscapeFulltext(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if strings.ContainsRune(luceneSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
