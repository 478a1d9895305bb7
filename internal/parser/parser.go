// Package parser turns the markup subset written by the serializer into an
// element tree. It is a single forward scan: tags, self-closing tags, close tags,
// processing instructions, comments and text. Entities are not decoded.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/element"
)

const textTrim = "\n\t\r"

type scanner struct {
	buf []byte
	pos int
}

// Parse scans data and returns the synthetic document root. Malformed or truncated
// input yields an error wrapping apperr.ErrMalformedInput.
func Parse(data []byte) (*element.Element, error) {
	s := &scanner{buf: data}
	return s.document()
}

// ParseString is Parse for string input.
func ParseString(text string) (*element.Element, error) {
	return Parse([]byte(text))
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("parser: %s at offset %d: %w", fmt.Sprintf(format, args...), s.pos, apperr.ErrMalformedInput)
}

func (s *scanner) eof() bool { return s.pos >= len(s.buf) }

func (s *scanner) hasPrefix(p string) bool {
	return bytes.HasPrefix(s.buf[s.pos:], []byte(p))
}

func (s *scanner) document() (*element.Element, error) {
	root := element.New(element.DocumentName)
	cur := root

	for !s.eof() {
		if s.buf[s.pos] != '<' {
			s.text(cur, root)
			continue
		}

		switch {
		case s.hasPrefix("<!--"):
			end := bytes.Index(s.buf[s.pos+4:], []byte("-->"))
			if end < 0 {
				return nil, s.errorf("unterminated comment")
			}
			s.pos += 4 + end + 3

		case s.hasPrefix("<![CDATA["):
			start := s.pos + len("<![CDATA[")
			end := bytes.Index(s.buf[start:], []byte("]]>"))
			if end < 0 {
				return nil, s.errorf("unterminated CDATA section")
			}
			if cur != root {
				cur.AppendValue(string(s.buf[start : start+end]))
			}
			s.pos = start + end + 3

		case s.hasPrefix("</"):
			s.pos += 2
			name, err := s.name()
			if err != nil {
				return nil, err
			}
			s.skipSpace()
			if s.eof() || s.buf[s.pos] != '>' {
				return nil, s.errorf("expected '>' closing </%s", name)
			}
			if cur == root {
				return nil, s.errorf("unexpected close tag </%s>", name)
			}
			if name != cur.Name {
				return nil, s.errorf("close tag </%s> does not match <%s>", name, cur.Name)
			}
			s.pos++
			cur = cur.Parent

		case s.hasPrefix("<?"):
			s.pos += 2
			name, err := s.name()
			if err != nil {
				return nil, err
			}
			pi := cur.AddChild(name)
			pi.ProcInst = true
			if err := s.attributes(pi, true); err != nil {
				return nil, err
			}
			if !s.hasPrefix("?>") {
				return nil, s.errorf("expected '?>' closing <?%s", name)
			}
			s.pos += 2

		default:
			s.pos++
			name, err := s.name()
			if err != nil {
				return nil, err
			}
			el := cur.AddChild(name)
			if err := s.attributes(el, false); err != nil {
				return nil, err
			}
			if s.buf[s.pos] == '/' {
				if !s.hasPrefix("/>") {
					return nil, s.errorf("expected '/>' in <%s", name)
				}
				s.pos += 2
				continue
			}
			s.pos++ // '>'
			cur = el
		}
	}

	if cur != root {
		return nil, s.errorf("unclosed element <%s>", cur.Name)
	}
	return root, nil
}

// text consumes character data up to the next '<'.
func (s *scanner) text(cur, root *element.Element) {
	end := bytes.IndexByte(s.buf[s.pos:], '<')
	var raw []byte
	if end < 0 {
		raw = s.buf[s.pos:]
		s.pos = len(s.buf)
	} else {
		raw = s.buf[s.pos : s.pos+end]
		s.pos += end
	}
	if cur == root {
		return
	}
	if t := strings.Trim(string(raw), textTrim); t != "" {
		cur.AppendValue(t)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (s *scanner) skipSpace() {
	for !s.eof() && isSpace(s.buf[s.pos]) {
		s.pos++
	}
}

// name reads a tag or attribute name.
func (s *scanner) name() (string, error) {
	var b strings.Builder
	for !s.eof() {
		c := s.buf[s.pos]
		if isSpace(c) || c == '/' || c == '>' || c == '=' || c == '?' || c == '<' {
			break
		}
		b.WriteByte(c)
		s.pos++
	}
	if s.eof() {
		return "", s.errorf("unexpected end of input in name")
	}
	if b.Len() == 0 {
		return "", s.errorf("empty name")
	}
	return b.String(), nil
}

// attributes reads name="value" pairs and stops on '>', '/' or (for a PI) '?'.
// The terminator is left unconsumed.
func (s *scanner) attributes(el *element.Element, pi bool) error {
	for {
		s.skipSpace()
		if s.eof() {
			return s.errorf("unexpected end of input in <%s", el.Name)
		}
		c := s.buf[s.pos]
		if c == '>' && !pi {
			return nil
		}
		if c == '/' && !pi {
			return nil
		}
		if c == '?' && pi {
			return nil
		}

		name, err := s.name()
		if err != nil {
			return err
		}
		s.skipSpace()
		if s.eof() || s.buf[s.pos] != '=' {
			return s.errorf("expected '=' after attribute %s", name)
		}
		s.pos++
		s.skipSpace()
		if s.eof() {
			return s.errorf("unexpected end of input in attribute %s", name)
		}
		quote := s.buf[s.pos]
		if quote != '"' && quote != '\'' {
			return s.errorf("attribute %s value must be quoted", name)
		}
		s.pos++
		end := bytes.IndexByte(s.buf[s.pos:], quote)
		if end < 0 {
			return s.errorf("unterminated value for attribute %s", name)
		}
		el.AddAttr(name, string(s.buf[s.pos:s.pos+end]))
		s.pos += end + 1
	}
}
