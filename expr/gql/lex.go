// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package gql

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
)

type tokKind int

const (
	tEOF tokKind = iota
	tError
	tIdent
	tInteger
	tFloat
	tString

	// punctuation
	tLParen   // (
	tRParen   // )
	tLBrack   // [
	tRBrack   // ]
	tColon    // :
	tComma    // ,
	tDot      // .
	tPipe     // |
	tPipePlus // |+|
	tMinus    // -
	tPlus     // +
	tStar     // *
	tSlash    // /
	tPercent  // %
	tEq       // =
	tNe       // <> or !=
	tLt       // <
	tLe       // <=
	tGt       // >
	tGe       // >=

	// keywords
	kwMatch
	kwWhere
	kwShared
	kwReturn
	kwDistinct
	kwAs
	kwAnd
	kwOr
	kwNot
	kwIs
	kwNull
	kwTyped
	kwNotTyped
	kwIn
	kwTrue
	kwFalse
)

var keywords = map[string]tokKind{
	"MATCH":     kwMatch,
	"WHERE":     kwWhere,
	"SHARED":    kwShared,
	"RETURN":    kwReturn,
	"DISTINCT":  kwDistinct,
	"AS":        kwAs,
	"AND":       kwAnd,
	"OR":        kwOr,
	"NOT":       kwNot,
	"IS":        kwIs,
	"NULL":      kwNull,
	"TYPED":     kwTyped,
	"NOT_TYPED": kwNotTyped,
	"IN":        kwIn,
	"TRUE":      kwTrue,
	"FALSE":     kwFalse,
}

var tokNames = map[tokKind]string{
	tEOF:      "end of input",
	tError:    "error",
	tIdent:    "identifier",
	tInteger:  "integer",
	tFloat:    "number",
	tString:   "string",
	tLParen:   "'('",
	tRParen:   "')'",
	tLBrack:   "'['",
	tRBrack:   "']'",
	tColon:    "':'",
	tComma:    "','",
	tDot:      "'.'",
	tPipe:     "'|'",
	tPipePlus: "'|+|'",
	tMinus:    "'-'",
	tPlus:     "'+'",
	tStar:     "'*'",
	tSlash:    "'/'",
	tPercent:  "'%'",
	tEq:       "'='",
	tNe:       "'<>'",
	tLt:       "'<'",
	tLe:       "'<='",
	tGt:       "'>'",
	tGe:       "'>='",
}

func (k tokKind) String() string {
	if s, ok := tokNames[k]; ok {
		return s
	}
	for name, kw := range keywords {
		if kw == k {
			return name
		}
	}
	return fmt.Sprintf("token(%d)", int(k))
}

func lookupKeyword(word []byte) tokKind {
	// no keyword is longer than 9 bytes
	if len(word) > 9 {
		return -1
	}
	if kw, ok := keywords[strings.ToUpper(string(word))]; ok {
		return kw
	}
	return -1
}

func init() {
	expr.IsKeyword = func(s string) bool {
		return lookupKeyword([]byte(s)) != -1
	}
}

type token struct {
	kind tokKind
	pos  int // byte offset of the first character
	end  int // byte offset past the last character
	str  string
}

type scanner struct {
	from []byte
	pos  int
	err  error

	// byte offset of the start of each line,
	// populated lazily by position
	lines []int
}

// chomp whitespace and comments from input
func (s *scanner) chompws() {
	for s.pos < len(s.from) {
		c := s.from[s.pos]
		if isspace(c) {
			s.pos++
		} else if c == '#' || (c == '-' && s.peekat(1) == '-') {
			for s.pos < len(s.from) && s.from[s.pos] != '\n' {
				s.pos++
			}
		} else {
			break
		}
	}
}

func (s *scanner) peekat(i int) byte {
	if s.pos+i < len(s.from) {
		return s.from[s.pos+i]
	}
	return 0
}

func isdigit(x byte) bool {
	return x >= '0' && x <= '9'
}

func isalpha(x byte) bool {
	return (x >= 'a' && x <= 'z') || (x >= 'A' && x <= 'Z')
}

func isident(x byte) bool {
	return isalpha(x) || isdigit(x) || x == '_'
}

func isspace(x byte) bool {
	return x == ' ' || x == '\n' || x == '\t' || x == '\r' || x == '\f' || x == '\v'
}

func isprint(x byte) bool {
	return x >= 32 && x < 127
}

func (s *scanner) lex() token {
	if s.err != nil {
		return token{kind: tError, pos: s.pos, end: s.pos}
	}
	s.chompws()
	if s.pos >= len(s.from) {
		return token{kind: tEOF, pos: len(s.from), end: len(s.from)}
	}
	start := s.pos
	tok := func(k tokKind, n int) token {
		s.pos += n
		return token{kind: k, pos: start, end: s.pos}
	}
	c := s.from[s.pos]
	switch c {
	case '(':
		return tok(tLParen, 1)
	case ')':
		return tok(tRParen, 1)
	case '[':
		return tok(tLBrack, 1)
	case ']':
		return tok(tRBrack, 1)
	case ':':
		return tok(tColon, 1)
	case ',':
		return tok(tComma, 1)
	case '.':
		if isdigit(s.peekat(1)) {
			return s.lexNumber()
		}
		return tok(tDot, 1)
	case '|':
		if s.peekat(1) == '+' && s.peekat(2) == '|' {
			return tok(tPipePlus, 3)
		}
		return tok(tPipe, 1)
	case '-':
		return tok(tMinus, 1)
	case '+':
		return tok(tPlus, 1)
	case '*':
		return tok(tStar, 1)
	case '/':
		return tok(tSlash, 1)
	case '%':
		return tok(tPercent, 1)
	case '=':
		if s.peekat(1) == '=' {
			return tok(tEq, 2)
		}
		return tok(tEq, 1)
	case '!':
		if s.peekat(1) == '=' {
			return tok(tNe, 2)
		}
	case '<':
		switch s.peekat(1) {
		case '=':
			return tok(tLe, 2)
		case '>':
			return tok(tNe, 2)
		}
		return tok(tLt, 1)
	case '>':
		if s.peekat(1) == '=' {
			return tok(tGe, 2)
		}
		return tok(tGt, 1)
	case '\'':
		return s.lexString()
	case '`':
		return s.lexQuotedIdent()
	}
	if isdigit(c) {
		return s.lexNumber()
	}
	if isalpha(c) || c == '_' {
		return s.lexIdent()
	}
	s.err = fmt.Errorf("unexpected character %q", c)
	return token{kind: tError, pos: start, end: start + 1}
}

// lex an identifier and either return it
// as an identifier or a keyword (if it matches one)
func (s *scanner) lexIdent() token {
	start := s.pos
	s.pos++
	for s.pos < len(s.from) && isident(s.from[s.pos]) {
		s.pos++
	}
	word := s.from[start:s.pos]
	if kw := lookupKeyword(word); kw != -1 {
		return token{kind: kw, pos: start, end: s.pos, str: string(word)}
	}
	return token{kind: tIdent, pos: start, end: s.pos, str: string(word)}
}

// lexNumber lexes
//
//	digits ['.' digits] [('e'|'E') ['+'|'-'] digits]
//
// and rejects trailing identifier characters
func (s *scanner) lexNumber() token {
	start := s.pos
	kind := tInteger
	for s.pos < len(s.from) && isdigit(s.from[s.pos]) {
		s.pos++
	}
	if s.pos < len(s.from) && s.from[s.pos] == '.' && isdigit(s.peekat(1)) {
		kind = tFloat
		s.pos++
		for s.pos < len(s.from) && isdigit(s.from[s.pos]) {
			s.pos++
		}
	}
	if c := s.peekat(0); c == 'e' || c == 'E' {
		n := 1
		if c := s.peekat(1); c == '+' || c == '-' {
			n++
		}
		if isdigit(s.peekat(n)) {
			kind = tFloat
			s.pos += n
			for s.pos < len(s.from) && isdigit(s.from[s.pos]) {
				s.pos++
			}
		}
	}
	if s.pos < len(s.from) && isident(s.from[s.pos]) {
		s.err = fmt.Errorf("invalid number %q", s.from[start:s.pos+1])
		return token{kind: tError, pos: start, end: s.pos + 1}
	}
	return token{kind: kind, pos: start, end: s.pos, str: string(s.from[start:s.pos])}
}

func (s *scanner) lexQuotedIdent() token {
	start := s.pos
	s.pos++ // skip leading '`'
	var out strings.Builder
	for s.pos < len(s.from) {
		c := s.from[s.pos]
		s.pos++
		if c != '`' {
			out.WriteByte(c)
			continue
		}
		// `` is an escaped backtick
		if s.pos < len(s.from) && s.from[s.pos] == '`' {
			out.WriteByte('`')
			s.pos++
			continue
		}
		return token{kind: tIdent, pos: start, end: s.pos, str: out.String()}
	}
	s.err = io.ErrUnexpectedEOF
	return token{kind: tError, pos: start, end: s.pos}
}

func (s *scanner) lexString() token {
	start := s.pos
	s.pos++ // ignore starting character
	var out strings.Builder
	for s.pos < len(s.from) {
		c := s.from[s.pos]
		s.pos++
		switch c {
		case '\'':
			return token{kind: tString, pos: start, end: s.pos, str: out.String()}
		case '\\':
			if s.pos >= len(s.from) {
				break
			}
			esc := s.from[s.pos]
			s.pos++
			switch esc {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '\\', '\'', '"':
				out.WriteByte(esc)
			default:
				s.err = fmt.Errorf("invalid escape sequence %s", strconv.Quote("\\"+string(esc)))
				return token{kind: tError, pos: s.pos - 2, end: s.pos}
			}
		default:
			out.WriteByte(c)
		}
	}
	s.err = io.ErrUnexpectedEOF
	return token{kind: tError, pos: start, end: s.pos}
}

// position returns the 1-based line and
// column of the byte offset pos
func (s *scanner) position(pos int) (line, column int, ok bool) {
	if pos < 0 || pos > len(s.from) {
		return 0, 0, false
	}
	if s.lines == nil {
		s.lines = append(s.lines, 0)
		for i, c := range s.from {
			if c == '\n' {
				s.lines = append(s.lines, i+1)
			}
		}
	}
	// find the last line starting at or before pos
	lo, hi := 0, len(s.lines)
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if s.lines[mid] <= pos {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + 1, pos - s.lines[lo] + 1, true
}

func (s *scanner) exprPos(pos int) expr.Position {
	line, col, ok := s.position(pos)
	if !ok {
		return expr.Position{}
	}
	return expr.Position{Offset: pos, Line: line, Column: col}
}
