package sqlguard

import (
	"fmt"
	"strings"
)

var typeWords = toSet([]string{
	"SMALLINT", "INTEGER", "INT", "BIGINT", "HUGEINT", "REAL", "FLOAT",
	"DOUBLE", "PRECISION", "DECIMAL", "NUMERIC", "TEXT", "VARCHAR", "CHAR",
	"CHARACTER", "VARYING", "BOOLEAN", "BOOL", "DATE", "TIME", "TIMESTAMP",
	"TIMESTAMPTZ", "INTERVAL",
})

var dateParts = []string{
	"YEAR", "QUARTER", "MONTH", "WEEK", "DAY", "DOW", "DOY", "ISODOW",
	"HOUR", "MINUTE", "SECOND", "EPOCH", "MILLISECOND", "MICROSECOND",
}

var keywords = func() map[string]bool {
	set := toSet([]string{
		"SELECT", "FROM", "WHERE", "GROUP", "BY", "ORDER", "HAVING", "LIMIT",
		"OFFSET", "AS", "AND", "OR", "NOT", "IN", "IS", "NULL", "LIKE", "ILIKE",
		"GLOB", "REGEXP", "SIMILAR", "BETWEEN", "CASE", "WHEN", "THEN", "ELSE",
		"END", "DISTINCT", "ALL", "UNION", "INTERSECT", "EXCEPT", "JOIN",
		"INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS", "NATURAL", "ON",
		"USING", "WITH", "RECURSIVE", "MATERIALIZED", "ASC", "DESC", "NULLS",
		"FIRST", "LAST", "TRUE", "FALSE", "CAST", "EXISTS", "ANY", "SOME",
		"OVER", "PARTITION", "ROWS", "RANGE", "GROUPS", "PRECEDING",
		"FOLLOWING", "UNBOUNDED", "CURRENT", "ROW", "FILTER", "WINDOW",
		"COLLATE", "ESCAPE", "FETCH", "NEXT", "ONLY", "LATERAL", "AT", "ZONE",
		"VALUES", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP",
		"LOCALTIME", "LOCALTIMESTAMP", "FOR", "LEADING", "TRAILING", "BOTH",
	})
	for word := range typeWords {
		set[word] = true
	}
	for _, word := range dateParts {
		set[word] = true
	}
	return set
}()

var nonCallWords = toSet([]string{
	"FROM", "JOIN", "IN", "EXISTS", "AS", "OVER", "ON", "USING", "SELECT",
	"WHERE", "AND", "OR", "NOT", "WHEN", "THEN", "ELSE", "BY", "HAVING",
	"UNION", "ALL", "ANY", "SOME", "VALUES", "LATERAL", "INTERSECT",
	"EXCEPT", "FILTER", "WITH", "RECURSIVE", "MATERIALIZED", "DISTINCT",
	"CASE", "IS", "LIKE", "BETWEEN", "LIMIT", "OFFSET", "WINDOW",
	"PARTITION", "ROWS", "RANGE", "END",
})

var fromClauseEnd = toSet([]string{
	"WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "OFFSET", "UNION",
	"INTERSECT", "EXCEPT", "WINDOW", "ON", "USING",
})

var schemaQualifiers = map[string]bool{"main": true, "public": true}

type frame struct {
	call   bool
	inFrom bool
}

func (v *Validator) checkReferences(body []Token, h head) error {
	known := make(map[string]bool, len(h.ctes)+len(h.cteColumns))
	for name := range h.ctes {
		known[name] = true
	}
	for name := range h.cteColumns {
		known[name] = true
	}
	declaredAt := make(map[int]bool)
	for i := 1; i < len(body); i++ {
		if isName(body[i]) && !isCall(body, i) && !followedByDot(body, i) && declaresAlias(body, i) {
			declaredAt[i] = true
			known[strings.ToLower(body[i].Literal)] = true
		}
	}

	stack := []frame{{}}
	expectTable := false
	for i := 0; i < len(body); i++ {
		tok := body[i]
		top := &stack[len(stack)-1]

		switch tok.Type {
		case TokenLParen:
			expectTable = false
			stack = append(stack, frame{call: i > 0 && isCall(body, i-1)})
			continue
		case TokenRParen:
			stack = stack[:len(stack)-1]
			continue
		case TokenComma:
			if top.inFrom {
				expectTable = true
			}
			continue
		}

		if tok.Type == TokenWord && keywords[tok.Upper()] {
			switch upper := tok.Upper(); {
			case upper == "FROM" && !top.call && !isDistinctFrom(body, i):
				top.inFrom = true
				expectTable = true
			case upper == "JOIN" && !top.call:
				top.inFrom = true
				expectTable = true
			case fromClauseEnd[upper]:
				top.inFrom = false
			}
			continue
		}
		if !isName(tok) {
			continue
		}
		if i > 0 && body[i-1].Type == TokenOperator && body[i-1].Literal == "::" {
			continue
		}

		name := strings.ToLower(tok.Literal)
		if expectTable {
			expectTable = false
			table := tok
			if followedByDot(body, i) {
				if !schemaQualifiers[name] {
					return fmt.Errorf("unknown schema qualifier %q", tok.Literal)
				}
				if i+2 >= len(body) || (body[i+2].Type != TokenWord && body[i+2].Type != TokenQuotedIdent) {
					return fmt.Errorf("expected table name after %q", tok.Literal)
				}
				i += 2
				table = body[i]
			}
			if isCall(body, i) {
				return fmt.Errorf("table function %q is not allowed", table.Literal)
			}
			tableName := strings.ToLower(table.Literal)
			if !v.schema.HasTable(tableName) && !h.ctes[tableName] {
				return fmt.Errorf("unknown table %q", table.Literal)
			}
			continue
		}

		if followedByDot(body, i) {
			if !v.schema.HasTable(name) && !known[name] {
				return fmt.Errorf("unknown qualifier %q", tok.Literal)
			}
			if i+2 >= len(body) {
				return fmt.Errorf("expected column after %q", tok.Literal)
			}
			column := body[i+2]
			switch {
			case column.Type == TokenOperator && column.Literal == "*":
			case column.Type == TokenWord || column.Type == TokenQuotedIdent:
				if err := v.checkColumn(column, known); err != nil {
					return err
				}
			default:
				return fmt.Errorf("expected column after %q", tok.Literal)
			}
			i += 2
			continue
		}

		if i > 0 && body[i-1].Type == TokenDot {
			if err := v.checkColumn(tok, known); err != nil {
				return err
			}
			continue
		}
		if isCall(body, i) || declaredAt[i] {
			continue
		}
		if v.schema.HasColumn(name) || v.schema.HasTable(name) || known[name] {
			continue
		}
		return fmt.Errorf("unknown identifier %q", tok.Literal)
	}
	return nil
}

func (v *Validator) checkColumn(tok Token, known map[string]bool) error {
	name := strings.ToLower(tok.Literal)
	if v.schema.HasColumn(name) || known[name] {
		return nil
	}
	return fmt.Errorf("unknown column %q", tok.Literal)
}

func isCall(body []Token, i int) bool {
	return body[i].Type == TokenWord &&
		i+1 < len(body) &&
		body[i+1].Type == TokenLParen &&
		!nonCallWords[body[i].Upper()]
}

func followedByDot(body []Token, i int) bool {
	return i+1 < len(body) && body[i+1].Type == TokenDot
}

func declaresAlias(body []Token, i int) bool {
	prev := body[i-1]
	switch prev.Type {
	case TokenNumber, TokenString, TokenQuotedIdent, TokenRParen:
		return true
	case TokenWord:
		upper := prev.Upper()
		return upper == "AS" || upper == "END" || typeWords[upper] || !keywords[upper]
	}
	return false
}

func isDistinctFrom(body []Token, i int) bool {
	return i >= 2 && isWord(body[i-1], "DISTINCT") && (isWord(body[i-2], "IS") || isWord(body[i-2], "NOT"))
}
