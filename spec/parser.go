package spec

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	verr "github.com/pactlang/pactc/error"
)

type FormKind string

const (
	FormKindList   = FormKind("list")
	FormKindVector = FormKind("vector")
	FormKindMap    = FormKind("map")
	FormKindAtom   = FormKind("atom")
)

type MapEntry struct {
	Key *Form
	Val *Form
}

// Form is a node of the concrete syntax tree. A list or vector stores
// its elements in Children; a map stores ordered key-value pairs in
// Entries; an atom stores its token.
type Form struct {
	Kind     FormKind
	Children []*Form
	Entries  []*MapEntry
	Token    *Token
	Pos      Position
}

func newListForm(children []*Form, pos Position) *Form {
	return &Form{
		Kind:     FormKindList,
		Children: children,
		Pos:      pos,
	}
}

func newVectorForm(children []*Form, pos Position) *Form {
	return &Form{
		Kind:     FormKindVector,
		Children: children,
		Pos:      pos,
	}
}

func newMapForm(entries []*MapEntry, pos Position) *Form {
	return &Form{
		Kind:    FormKindMap,
		Entries: entries,
		Pos:     pos,
	}
}

func newAtomForm(tok *Token) *Form {
	return &Form{
		Kind:  FormKindAtom,
		Token: tok,
		Pos:   tok.Pos,
	}
}

// SymbolText returns the symbol name when the form is a symbol atom.
func (f *Form) SymbolText() (string, bool) {
	if f.Kind != FormKindAtom || f.Token.Kind != TokenKindSymbol {
		return "", false
	}
	return f.Token.Text, true
}

func (f *Form) KeywordText() (string, bool) {
	if f.Kind != FormKindAtom || f.Token.Kind != TokenKindKeyword {
		return "", false
	}
	return f.Token.Text, true
}

func (f *Form) Head() (string, bool) {
	if f.Kind != FormKindList || len(f.Children) == 0 {
		return "", false
	}
	return f.Children[0].SymbolText()
}

func (f *Form) describe() string {
	switch f.Kind {
	case FormKindList:
		return "a list"
	case FormKindVector:
		return "a vector"
	case FormKindMap:
		return "a map"
	default:
		switch f.Token.Kind {
		case TokenKindSymbol:
			return fmt.Sprintf("the symbol %v", f.Token.Text)
		case TokenKindKeyword:
			return fmt.Sprintf("the keyword :%v", f.Token.Text)
		case TokenKindEOF:
			return "<eof>"
		default:
			return fmt.Sprintf("a %v", f.Token.Kind)
		}
	}
}

// String renders the form on a single line, reconstructing surface
// syntax. It is used for metadata preserved verbatim in emitted code.
func (f *Form) String() string {
	var b bytes.Buffer
	f.write(&b)
	return b.String()
}

func (f *Form) write(b *bytes.Buffer) {
	switch f.Kind {
	case FormKindList:
		b.WriteString("(")
		for i, c := range f.Children {
			if i > 0 {
				b.WriteString(" ")
			}
			c.write(b)
		}
		b.WriteString(")")
	case FormKindVector:
		b.WriteString("[")
		for i, c := range f.Children {
			if i > 0 {
				b.WriteString(" ")
			}
			c.write(b)
		}
		b.WriteString("]")
	case FormKindMap:
		b.WriteString("{")
		for i, e := range f.Entries {
			if i > 0 {
				b.WriteString(" ")
			}
			e.Key.write(b)
			b.WriteString(" ")
			e.Val.write(b)
		}
		b.WriteString("}")
	default:
		tok := f.Token
		switch tok.Kind {
		case TokenKindSymbol:
			b.WriteString(tok.Text)
		case TokenKindKeyword:
			fmt.Fprintf(b, ":%v", tok.Text)
		case TokenKindString:
			b.WriteString(strconv.Quote(tok.Text))
		case TokenKindInteger:
			fmt.Fprintf(b, "%v", tok.Num)
		case TokenKindBoolean:
			fmt.Fprintf(b, "%v", tok.Bool)
		case TokenKindDuration:
			fmt.Fprintf(b, "%v%v", tok.Num, tok.Unit)
		case TokenKindRegex:
			fmt.Fprintf(b, "#/%v/", tok.Text)
		}
	}
}

// Format renders the form as an indented tree, one nesting level per
// line, for the parse sub-command.
func (f *Form) Format() []byte {
	var b bytes.Buffer
	f.format(&b, 0)
	return b.Bytes()
}

func (f *Form) format(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	switch f.Kind {
	case FormKindList, FormKindVector:
		opener, closer := "(", ")"
		if f.Kind == FormKindVector {
			opener, closer = "[", "]"
		}
		buf.WriteString(opener)
		if len(f.Children) > 0 {
			buf.WriteString("\n")
			for i, c := range f.Children {
				c.format(buf, depth+1)
				if i < len(f.Children)-1 {
					buf.WriteString("\n")
				}
			}
		}
		buf.WriteString(closer)
	case FormKindMap:
		buf.WriteString("{")
		if len(f.Entries) > 0 {
			buf.WriteString("\n")
			for i, e := range f.Entries {
				e.Key.format(buf, depth+1)
				buf.WriteString("\n")
				e.Val.format(buf, depth+1)
				if i < len(f.Entries)-1 {
					buf.WriteString("\n")
				}
			}
		}
		buf.WriteString("}")
	default:
		buf.WriteString(f.String())
	}
}

func raiseSyntaxError(pos Position, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause:    synErr,
		Severity: verr.SeverityError,
		Row:      pos.Row,
		Col:      pos.Col,
	})
}

func raiseSyntaxErrorWithDetail(pos Position, synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:    synErr,
		Detail:   detail,
		Severity: verr.SeverityError,
		Row:      pos.Row,
		Col:      pos.Col,
	})
}

// Parse lexes and parses the source into an ordered forest of
// top-level forms.
func Parse(src io.Reader) ([]*Form, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return ParseString(string(b))
}

func ParseString(src string) ([]*Form, error) {
	toks, lexErrs := Lex(src)
	p := &parser{
		toks: toks,
		errs: lexErrs,
	}
	forms := p.parseRoot()
	if len(p.errs) > 0 {
		p.errs.Sort()
		return nil, p.errs
	}
	return forms, nil
}

type parser struct {
	toks []*Token
	idx  int
	errs verr.SpecErrors
}

func (p *parser) parseRoot() []*Form {
	var forms []*Form
	for {
		form, eof := p.parseTopLevel()
		if eof {
			break
		}
		if form != nil {
			forms = append(forms, form)
		}
	}
	return forms
}

// parseTopLevel parses one top-level form. On a syntax error it records
// the diagnostic and skips ahead to the next opening delimiter.
func (p *parser) parseTopLevel() (form *Form, eof bool) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}
		p.errs = append(p.errs, specErr)
		p.skipToTopLevel()
		form = nil
	}()

	tok := p.peek()
	if tok.Kind == TokenKindEOF {
		return nil, true
	}
	if tok.Kind == TokenKindRParen || tok.Kind == TokenKindRBracket || tok.Kind == TokenKindRBrace {
		p.next()
		raiseSyntaxErrorWithDetail(tok.Pos, synErrUnexpectedCloser, string(tok.Kind))
	}
	return p.parseForm(), false
}

func (p *parser) parseForm() *Form {
	tok := p.next()
	switch tok.Kind {
	case TokenKindLParen:
		children := p.parseSequence(TokenKindRParen)
		return newListForm(children, tok.Pos)
	case TokenKindLBracket:
		children := p.parseSequence(TokenKindRBracket)
		return newVectorForm(children, tok.Pos)
	case TokenKindLBrace:
		return p.parseMap(tok.Pos)
	case TokenKindRParen, TokenKindRBracket, TokenKindRBrace:
		raiseSyntaxErrorWithDetail(tok.Pos, synErrUnexpectedCloser, string(tok.Kind))
		return nil
	case TokenKindEOF:
		raiseSyntaxError(tok.Pos, synErrUnexpectedEOF)
		return nil
	default:
		return newAtomForm(tok)
	}
}

func (p *parser) parseSequence(closer TokenKind) []*Form {
	var children []*Form
	for {
		tok := p.peek()
		switch tok.Kind {
		case closer:
			p.next()
			return children
		case TokenKindRParen, TokenKindRBracket, TokenKindRBrace:
			p.next()
			raiseSyntaxErrorWithDetail(tok.Pos, synErrMismatchedDelimiter,
				fmt.Sprintf("expected %v, but found %v", string(closer), string(tok.Kind)))
		case TokenKindEOF:
			raiseSyntaxErrorWithDetail(tok.Pos, synErrUnexpectedEOF,
				fmt.Sprintf("%v is not closed", string(closer)))
		}
		children = append(children, p.parseForm())
	}
}

func (p *parser) parseMap(openPos Position) *Form {
	children := p.parseSequence(TokenKindRBrace)
	if len(children)%2 != 0 {
		raiseSyntaxErrorWithDetail(openPos, synErrOddMapArity,
			fmt.Sprintf("%v forms found", len(children)))
	}
	entries := make([]*MapEntry, 0, len(children)/2)
	for i := 0; i < len(children); i += 2 {
		entries = append(entries, &MapEntry{
			Key: children[i],
			Val: children[i+1],
		})
	}
	return newMapForm(entries, openPos)
}

// skipToTopLevel discards tokens up to the next plausible top-level
// form: stray atoms and closers are consumed, and the next opening
// delimiter is left in place. Nesting is not tracked, so an opener that
// belonged inside the broken form is taken as the next top-level form.
func (p *parser) skipToTopLevel() {
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenKindEOF:
			return
		case TokenKindLParen, TokenKindLBracket, TokenKindLBrace:
			return
		}
		p.next()
	}
}

func (p *parser) peek() *Token {
	return p.toks[p.idx]
}

func (p *parser) next() *Token {
	tok := p.toks[p.idx]
	if tok.Kind != TokenKindEOF {
		p.idx++
	}
	return tok
}
