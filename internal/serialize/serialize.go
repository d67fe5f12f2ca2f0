// Package serialize implements the line/tag-oriented text streaming format of spec
// §4.7: a top-level <multiboost>/<cascade> wrapper, nested <weakLearner> blocks with
// an <alpha> and a learner-specific parameter block, optional <threshold> fields for
// cascade stages, and <stageSeparator> markers between Viola-Jones stages.
//
// Grounded on the regexp-based line scanning in internal/ui/cli/cli.go (the
// ansiFilter pattern) for the tokenizer shape, adapted from stripping ANSI control
// sequences to parsing a small, forward-compatible tagged format.
package serialize

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/janpfeifer/multiboost/internal/boosterr"
)

// Writer emits the tagged text format. Every numeric field is written at full
// decimal precision ('g', -1) so a reload reproduces the exact posterior (spec §8).
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (wr *Writer) printf(format string, args ...any) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, format, args...)
}

// Open writes an opening container tag, e.g. Open("multiboost").
func (wr *Writer) Open(tag string) { wr.printf("<%s>\n", tag) }

// Close writes a closing container tag.
func (wr *Writer) Close(tag string) { wr.printf("</%s>\n", tag) }

// StringField writes <tag>value</tag> on its own line.
func (wr *Writer) StringField(tag, value string) { wr.printf("<%s>%s</%s>\n", tag, value, tag) }

// FloatField writes a float64 field at full round-trip precision.
func (wr *Writer) FloatField(tag string, value float64) {
	wr.StringField(tag, strconv.FormatFloat(value, 'g', -1, 64))
}

// IntField writes an int field.
func (wr *Writer) IntField(tag string, value int) {
	wr.StringField(tag, strconv.Itoa(value))
}

// FloatsField writes a comma-separated float64 slice field.
func (wr *Writer) FloatsField(tag string, values []float64) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	wr.StringField(tag, strings.Join(parts, ","))
}

// StageSeparator writes a <stageSeparator idx="..." nwhyp="..." thresh="..."/> marker
// between Viola-Jones cascade stages (spec §4.7, §6).
func (wr *Writer) StageSeparator(idx, nwhyp int, thresh float64) {
	wr.printf("<stageSeparator idx=\"%d\" nwhyp=\"%d\" thresh=\"%s\"/>\n",
		idx, nwhyp, strconv.FormatFloat(thresh, 'g', -1, 64))
}

// Flush flushes the underlying buffered writer and returns any error accumulated
// across prior writes.
func (wr *Writer) Flush() error {
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}

// Token is one (tag, value) pair returned by the Reader, following spec §4.7's
// "stream tokenizer that returns (tag, value) pairs".
type Token struct {
	Tag     string
	Value   string
	Attrs   map[string]string
	IsClose bool
	IsLeaf  bool // true for <tag>value</tag> and self-closing <tag .../> tokens
}

// Float parses the token's value as a float64.
func (t Token) Float() (float64, error) { return strconv.ParseFloat(t.Value, 64) }

// Int parses the token's value as an int.
func (t Token) Int() (int, error) { return strconv.Atoi(t.Value) }

// Floats parses a comma-separated float64 list.
func (t Token) Floats() ([]float64, error) {
	if t.Value == "" {
		return nil, nil
	}
	parts := strings.Split(t.Value, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var (
	selfCloseRe = regexp.MustCompile(`^<(\w+)((?:\s+\w+="[^"]*")*)\s*/>$`)
	closeRe     = regexp.MustCompile(`^</(\w+)>$`)
	valueRe     = regexp.MustCompile(`(?s)^<(\w+)>(.*)</(\w+)>$`)
	openRe      = regexp.MustCompile(`^<(\w+)>$`)
	attrRe      = regexp.MustCompile(`(\w+)="([^"]*)"`)
)

// Reader is a streaming tokenizer over the tagged format. Unknown tags are not
// resolved by the Reader itself -- callers skip them with SkipContainer, so the
// format stays forward-compatible (spec §6).
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next token, or ok=false at EOF.
func (rd *Reader) Next() (tok Token, ok bool, err error) {
	for rd.sc.Scan() {
		line := strings.TrimSpace(rd.sc.Text())
		if line == "" {
			continue
		}
		tok, err = parseLine(line)
		if err != nil {
			return Token{}, true, boosterr.WrapLoad(err, "malformed model line %q", line)
		}
		return tok, true, nil
	}
	if serr := rd.sc.Err(); serr != nil {
		return Token{}, false, boosterr.WrapLoad(serr, "reading model stream")
	}
	return Token{}, false, nil
}

func parseLine(line string) (Token, error) {
	if m := selfCloseRe.FindStringSubmatch(line); m != nil {
		attrs := map[string]string{}
		for _, am := range attrRe.FindAllStringSubmatch(m[2], -1) {
			attrs[am[1]] = am[2]
		}
		return Token{Tag: m[1], Attrs: attrs, IsLeaf: true}, nil
	}
	if m := closeRe.FindStringSubmatch(line); m != nil {
		return Token{Tag: m[1], IsClose: true}, nil
	}
	if m := valueRe.FindStringSubmatch(line); m != nil {
		if m[1] != m[3] {
			return Token{}, errors.Errorf("mismatched tag open/close: <%s>...</%s>", m[1], m[3])
		}
		return Token{Tag: m[1], Value: m[2], IsLeaf: true}, nil
	}
	if m := openRe.FindStringSubmatch(line); m != nil {
		return Token{Tag: m[1]}, nil
	}
	return Token{}, errors.Errorf("unrecognized model syntax: %q", line)
}

// SkipContainer consumes tokens until the matching close tag for an already-opened
// container named tag, so forward-compatible unknown containers can be skipped
// whole. It does not know whether the token named tag was self-closing or a leaf:
// called after one, it reads on to a later closing tag of that name (or fails at
// EOF), so callers check IsLeaf before calling SkipContainer.
func (rd *Reader) SkipContainer(tag string) error {
	depth := 1
	for depth > 0 {
		tok, ok, err := rd.Next()
		if err != nil {
			return err
		}
		if !ok {
			return boosterr.NewLoad("unexpected EOF while skipping unknown tag <%s>", tag)
		}
		switch {
		case tok.IsClose && tok.Tag == tag:
			depth--
		case !tok.IsClose && !tok.IsLeaf && tok.Tag == tag:
			depth++
		}
	}
	return nil
}
