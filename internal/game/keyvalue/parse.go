package keyvalue

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

type token struct {
	text   string
	quoted bool
	line   int
}

func (t token) is(s string) bool { return !t.quoted && t.text == s }

type lexer struct {
	src  string
	pos  int
	line int
}

// next returns the next token, or ok == false at end of input.
func (lx *lexer) next() (tok token, ok bool, err error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case strings.HasPrefix(lx.src[lx.pos:], "//"):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '{' || c == '}':
			lx.pos++
			return token{text: string(c), line: lx.line}, true, nil
		case c == '"':
			start := lx.line
			lx.pos++
			end := strings.IndexByte(lx.src[lx.pos:], '"')
			if end < 0 {
				return token{}, false, errors.Errorf("line %d: unterminated quoted string", start)
			}
			text := lx.src[lx.pos : lx.pos+end]
			lx.line += strings.Count(text, "\n")
			lx.pos += end + 1
			return token{text: text, quoted: true, line: start}, true, nil
		default:
			begin := lx.pos
			for lx.pos < len(lx.src) {
				c = lx.src[lx.pos]
				if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' || c == '"' {
					break
				}
				lx.pos++
			}
			return token{text: lx.src[begin:lx.pos], line: lx.line}, true, nil
		}
	}
	return token{}, false, nil
}

// Parse reads entity definition text and returns one Library per
// `{ ... }` block, in source order.
func Parse(r io.Reader) ([]*Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read entity source")
	}

	lx := &lexer{src: string(data), line: 1}
	var libs []*Library

	for {
		open, ok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !open.is("{") {
			return nil, errors.Errorf("line %d: expected '{', found %q", open.line, open.text)
		}

		lib := New()
		for {
			key, ok, err := lx.next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("line %d: unexpected end of input inside entity", lx.line)
			}
			if key.is("}") {
				break
			}
			if key.is("{") {
				return nil, errors.Errorf("line %d: nested '{'", key.line)
			}

			val, ok, err := lx.next()
			if err != nil {
				return nil, err
			}
			if !ok || val.is("}") || val.is("{") {
				return nil, errors.Errorf("line %d: key %q has no value", key.line, key.text)
			}
			lib.Add(key.text, val.text)
		}
		libs = append(libs, lib)
	}

	return libs, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(src string) ([]*Library, error) {
	return Parse(strings.NewReader(src))
}
