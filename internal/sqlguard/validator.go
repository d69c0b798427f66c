package sqlguard

import (
	"fmt"
	"strings"

	"github.com/salesask/salesask/internal/schema"
)

type Status string

const (
	StatusUnchecked Status = "unchecked"
	StatusValid     Status = "valid"
	StatusRejected  Status = "rejected"
)

type Reason string

const (
	ReasonMultiStatement         Reason = "multi_statement"
	ReasonNotSelect              Reason = "not_select"
	ReasonBlockedKeyword         Reason = "blocked_keyword"
	ReasonUnknownSchemaReference Reason = "unknown_schema_reference"
	ReasonUnparseable            Reason = "unparseable"
)

// GeneratedQuery is oracle output tagged with its validation status.
// Text is set only for valid queries and holds the cleaned statement
// without its trailing semicolon. Detail is for logs, never for users.
type GeneratedQuery struct {
	Raw           string
	Text          string
	Status        Status
	Reason        Reason
	Detail        string
	HasLimit      bool
	AggregateOnly bool
}

func Unchecked(raw string) GeneratedQuery {
	return GeneratedQuery{Raw: raw, Status: StatusUnchecked}
}

func (q GeneratedQuery) Valid() bool {
	return q.Status == StatusValid
}

var BlockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "ATTACH",
	"DETACH", "PRAGMA", "REPLACE", "TRUNCATE", "GRANT", "VACUUM",
}

var blockedKeywordSet = toSet(BlockedKeywords)

var languageTags = map[string]bool{
	"sql":        true,
	"sqlite":     true,
	"sqlite3":    true,
	"postgresql": true,
	"postgres":   true,
	"duckdb":     true,
}

type Validator struct {
	schema schema.Descriptor
	strict bool
}

func NewValidator(descriptor schema.Descriptor, strict bool) *Validator {
	return &Validator{schema: descriptor, strict: strict}
}

// Validate fails closed: a panic while checking text rejects it as
// unparseable.
func (v *Validator) Validate(text string) (result GeneratedQuery) {
	defer func() {
		if r := recover(); r != nil {
			result = rejected(text, ReasonUnparseable, fmt.Sprintf("validator panic: %v", r))
		}
	}()
	return v.validate(text)
}

func (v *Validator) validate(text string) GeneratedQuery {
	cleaned := Clean(text)
	tokens, err := Tokenize(cleaned)
	if err != nil {
		return rejected(text, ReasonUnparseable, err.Error())
	}
	if len(tokens) == 0 {
		return rejected(text, ReasonUnparseable, "empty statement")
	}
	if err := checkParens(tokens); err != nil {
		return rejected(text, ReasonUnparseable, err.Error())
	}

	body, ok := singleStatement(tokens)
	if !ok {
		return rejected(text, ReasonMultiStatement, "more than one statement")
	}
	if len(body) == 0 {
		return rejected(text, ReasonUnparseable, "empty statement")
	}

	for _, tok := range body {
		if tok.Type == TokenWord && blockedKeywordSet[tok.Upper()] {
			return rejected(text, ReasonBlockedKeyword, "blocked keyword "+tok.Upper())
		}
	}

	head, err := parseHead(body)
	if err != nil {
		return rejected(text, ReasonNotSelect, err.Error())
	}

	if v.strict {
		if err := v.checkReferences(body, head); err != nil {
			return rejected(text, ReasonUnknownSchemaReference, err.Error())
		}
	}

	hasLimit, aggregateOnly := shape(body, head.selectAt)
	return GeneratedQuery{
		Raw:           text,
		Text:          strings.TrimSpace(cleaned[body[0].Pos:body[len(body)-1].End]),
		Status:        StatusValid,
		HasLimit:      hasLimit,
		AggregateOnly: aggregateOnly,
	}
}

func rejected(raw string, reason Reason, detail string) GeneratedQuery {
	return GeneratedQuery{Raw: raw, Status: StatusRejected, Reason: reason, Detail: detail}
}

func Clean(text string) string {
	out := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if start := strings.Index(out, "```"); start >= 0 {
		inner := out[start+3:]
		if end := strings.Index(inner, "```"); end >= 0 {
			inner = inner[:end]
		}
		out = inner
		if nl := strings.IndexByte(out, '\n'); nl >= 0 && languageTags[strings.ToLower(strings.TrimSpace(out[:nl]))] {
			out = out[nl+1:]
		} else if languageTags[strings.ToLower(strings.TrimSpace(out))] {
			out = ""
		}
		out = strings.TrimSpace(out)
	}
	if nl := strings.IndexByte(out, '\n'); nl >= 0 && languageTags[strings.ToLower(strings.TrimSpace(out[:nl]))] {
		out = strings.TrimSpace(out[nl+1:])
	}
	for _, label := range []string{"sql query:", "sql:"} {
		if len(out) >= len(label) && strings.EqualFold(out[:len(label)], label) {
			out = strings.TrimSpace(out[len(label):])
			break
		}
	}
	return out
}

func checkParens(tokens []Token) error {
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced ')' at %d", tok.Pos)
			}
		case TokenSemicolon:
			if depth > 0 {
				return fmt.Errorf("';' inside parentheses at %d", tok.Pos)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unclosed '('")
	}
	return nil
}

func singleStatement(tokens []Token) ([]Token, bool) {
	for i, tok := range tokens {
		if tok.Type == TokenSemicolon && i != len(tokens)-1 {
			return nil, false
		}
	}
	if tokens[len(tokens)-1].Type == TokenSemicolon {
		return tokens[:len(tokens)-1], true
	}
	return tokens, true
}

type head struct {
	ctes       map[string]bool
	cteColumns map[string]bool
	selectAt   int
}

func parseHead(body []Token) (head, error) {
	h := head{ctes: map[string]bool{}, cteColumns: map[string]bool{}}
	if isWord(body[0], "SELECT") {
		return h, nil
	}
	if !isWord(body[0], "WITH") {
		return h, fmt.Errorf("statement starts with %q", body[0].Literal)
	}

	i := 1
	if i < len(body) && isWord(body[i], "RECURSIVE") {
		i++
	}
	for {
		if i >= len(body) || !isName(body[i]) {
			return h, fmt.Errorf("expected common table expression name")
		}
		h.ctes[strings.ToLower(body[i].Literal)] = true
		i++

		if i < len(body) && body[i].Type == TokenLParen {
			end := matchParen(body, i)
			for _, tok := range body[i+1 : end] {
				switch {
				case isName(tok):
					h.cteColumns[strings.ToLower(tok.Literal)] = true
				case tok.Type == TokenComma:
				default:
					return h, fmt.Errorf("unexpected %q in column list", tok.Literal)
				}
			}
			i = end + 1
		}

		if i >= len(body) || !isWord(body[i], "AS") {
			return h, fmt.Errorf("expected AS after common table expression name")
		}
		i++
		if i < len(body) && isWord(body[i], "NOT") {
			i++
		}
		if i < len(body) && isWord(body[i], "MATERIALIZED") {
			i++
		}
		if i >= len(body) || body[i].Type != TokenLParen {
			return h, fmt.Errorf("expected '(' after AS")
		}
		end := matchParen(body, i)
		if end == i+1 || !(isWord(body[i+1], "SELECT") || isWord(body[i+1], "WITH") || body[i+1].Type == TokenLParen) {
			return h, fmt.Errorf("common table expression body is not a query")
		}
		i = end + 1

		if i < len(body) && body[i].Type == TokenComma {
			i++
			continue
		}
		break
	}
	if i >= len(body) || !isWord(body[i], "SELECT") {
		return h, fmt.Errorf("expected SELECT after common table expressions")
	}
	h.selectAt = i
	return h, nil
}

var aggregateFunctions = toSet([]string{
	"COUNT", "SUM", "AVG", "MIN", "MAX", "TOTAL", "MEDIAN",
	"GROUP_CONCAT", "STRING_AGG", "STDDEV", "VARIANCE",
})

var selectListEnd = toSet([]string{
	"FROM", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET",
	"UNION", "INTERSECT", "EXCEPT", "WINDOW",
})

func shape(body []Token, selectAt int) (hasLimit bool, aggregateOnly bool) {
	depth := 0
	grouped := false
	for _, tok := range body[selectAt:] {
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenWord:
			if depth != 0 {
				continue
			}
			switch tok.Upper() {
			case "LIMIT":
				hasLimit = true
			case "GROUP", "UNION", "INTERSECT", "EXCEPT":
				grouped = true
			}
		}
	}
	if grouped {
		return hasLimit, false
	}

	i := selectAt + 1
	if i < len(body) && (isWord(body[i], "DISTINCT") || isWord(body[i], "ALL")) {
		i++
	}
	itemHasAggregate := false
	depth = 0
	for ; i < len(body); i++ {
		tok := body[i]
		if depth == 0 && tok.Type == TokenWord && selectListEnd[tok.Upper()] {
			break
		}
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenComma:
			if depth == 0 {
				if !itemHasAggregate {
					return hasLimit, false
				}
				itemHasAggregate = false
			}
		case TokenWord:
			if isWord(tok, "OVER") {
				return hasLimit, false
			}
			if aggregateFunctions[tok.Upper()] && i+1 < len(body) && body[i+1].Type == TokenLParen {
				itemHasAggregate = true
			}
		}
	}
	return hasLimit, itemHasAggregate
}

func matchParen(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens) - 1
}

func isWord(tok Token, upper string) bool {
	return tok.Type == TokenWord && strings.EqualFold(tok.Literal, upper)
}

func isName(tok Token) bool {
	return tok.Type == TokenQuotedIdent || (tok.Type == TokenWord && !keywords[tok.Upper()])
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
