package storage

import (
	"strings"
	"unicode"
)

// websearchToFTS5 translates a web-search style query into an FTS5 MATCH
// expression with the same meaning as postgres websearch_to_tsquery:
//
//	unquoted words      all must match
//	"quoted phrase"     words must appear adjacent and in order
//	a or b              either side matches; binds tighter than the implicit AND
//	-word, -"phrase"    excluded
//
// Unquoted English stopwords are dropped, as the postgres english
// configuration does, so question-style queries still match. Every term is
// emitted as an FTS5 string so user text can never inject FTS5 operators or
// column filters. An empty result means the query has no positive terms and
// matches nothing.
func websearchToFTS5(query string) string {
	toks := tokenizeWebsearch(query)

	var groups [][]string // OR-groups, joined with AND
	var excluded []string
	pendingOr := false

	for _, tok := range toks {
		switch {
		case tok.or:
			pendingOr = len(groups) > 0
		case tok.negated:
			excluded = append(excluded, tok.text)
			pendingOr = false
		default:
			if pendingOr {
				last := len(groups) - 1
				groups[last] = append(groups[last], tok.text)
			} else {
				groups = append(groups, []string{tok.text})
			}
			pendingOr = false
		}
	}

	if len(groups) == 0 {
		return ""
	}

	clauses := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			clauses = append(clauses, g[0])
			continue
		}
		clauses = append(clauses, "("+strings.Join(g, " OR ")+")")
	}

	expr := strings.Join(clauses, " AND ")
	if len(excluded) > 0 {
		expr = "(" + expr + ")"
		for _, e := range excluded {
			expr += " NOT " + e
		}
	}
	return expr
}

type websearchToken struct {
	text    string // quoted FTS5 string
	or      bool
	negated bool
}

func tokenizeWebsearch(query string) []websearchToken {
	var toks []websearchToken
	rs := []rune(query)

	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}

		negated := false
		if rs[i] == '-' && i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			negated = true
			i++
		}

		if rs[i] == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}
			words := splitWords(string(rs[i+1 : end]))
			if end < len(rs) {
				end++ // closing quote
			}
			i = end
			if len(words) > 0 {
				toks = append(toks, websearchToken{text: fts5String(strings.Join(words, " ")), negated: negated})
			}
			continue
		}

		end := i
		for end < len(rs) && !unicode.IsSpace(rs[end]) && rs[end] != '"' {
			end++
		}
		raw := string(rs[i:end])
		i = end

		if !negated && strings.EqualFold(raw, "or") {
			toks = append(toks, websearchToken{or: true})
			continue
		}
		words := dropStopwords(splitWords(raw))
		if len(words) == 0 {
			continue
		}
		toks = append(toks, websearchToken{text: fts5String(strings.Join(words, " ")), negated: negated})
	}
	return toks
}

// splitWords keeps letters and digits, the characters the unicode61
// tokenizer indexes.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fts5String(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func dropStopwords(words []string) []string {
	kept := words[:0]
	for _, w := range words {
		if _, ok := englishStopwords[strings.ToLower(w)]; !ok {
			kept = append(kept, w)
		}
	}
	return kept
}

// englishStopwords is the postgres english.stop list.
var englishStopwords = func() map[string]struct{} {
	const list = `i me my myself we our ours ourselves you your yours yourself
yourselves he him his himself she her hers herself it its itself they them
their theirs themselves what which who whom this that these those am is are
was were be been being have has had having do does did doing a an the and
but if or because as until while of at by for with about against between
into through during before after above below to from up down in out on off
over under again further then once here there when where why how all any
both each few more most other some such no nor not only own same so than
too very s t can will just don should now`
	m := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		m[w] = struct{}{}
	}
	return m
}()
