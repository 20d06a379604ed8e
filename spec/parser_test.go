package spec

import (
	"strings"
	"testing"

	verr "github.com/pactlang/pactc/error"
)

func TestParser_Run(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		// rendered is the single-line reconstruction of each top-level
		// form; comparing surface text keeps the expectations readable.
		rendered []string
		err      error
	}{
		{
			caption:  "an atom is a form",
			src:      `foo`,
			rendered: []string{"foo"},
		},
		{
			caption:  "lists, vectors, and maps nest",
			src:      `(a [b 1] {:k "v" inner {}})`,
			rendered: []string{`(a [b 1] {:k "v" inner {}})`},
		},
		{
			caption:  "multiple top-level forms keep their order",
			src:      "(a)\n(b c)\n[d]",
			rendered: []string{"(a)", "(b c)", "[d]"},
		},
		{
			caption:  "a map with zero entries is valid",
			src:      `{}`,
			rendered: []string{"{}"},
		},
		{
			caption:  "commas inside a map are stripped before pairing",
			src:      `{:a 1, :b 2}`,
			rendered: []string{"{:a 1 :b 2}"},
		},
		{
			caption: "a map with odd arity is rejected",
			src:     `{:a 1 :b}`,
			err:     synErrOddMapArity,
		},
		{
			caption: "a mismatched closer is rejected",
			src:     `(a b]`,
			err:     synErrMismatchedDelimiter,
		},
		{
			caption: "an unclosed form is rejected at EOF",
			src:     `(a (b c)`,
			err:     synErrUnexpectedEOF,
		},
		{
			caption: "a closer outside any form is rejected",
			src:     `)`,
			err:     synErrUnexpectedCloser,
		},
		{
			caption:  "durations and regexes survive as atoms",
			src:      `(budget 50ms #/a\/b/)`,
			rendered: []string{`(budget 50ms #/a\/b/)`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			forms, err := Parse(strings.NewReader(tt.src))
			if tt.err != nil {
				if err == nil {
					t.Fatalf("an error is expected but parsing succeeded")
				}
				specErrs, ok := err.(verr.SpecErrors)
				if !ok {
					t.Fatalf("unexpected error type: %T", err)
				}
				if specErrs[0].Cause != tt.err {
					t.Fatalf("unexpected error: want: %v, got: %v", tt.err, specErrs[0].Cause)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(forms) != len(tt.rendered) {
				t.Fatalf("unexpected form count: want: %v, got: %v", len(tt.rendered), len(forms))
			}
			for i, want := range tt.rendered {
				if got := forms[i].String(); got != want {
					t.Fatalf("unexpected form #%v: want: %v, got: %v", i, want, got)
				}
			}
		})
	}
}

func TestParser_Recovery(t *testing.T) {
	// The parser reports the broken form and resumes at the next
	// top-level opener.
	forms, err := ParseString("{:a} (ok-form 1)")
	if err == nil {
		t.Fatalf("an error is expected but parsing succeeded")
	}
	specErrs, ok := err.(verr.SpecErrors)
	if !ok {
		t.Fatalf("unexpected error type: %T", err)
	}
	if specErrs[0].Cause != synErrOddMapArity {
		t.Fatalf("unexpected error: want: %v, got: %v", synErrOddMapArity, specErrs[0].Cause)
	}
	// Recovery is best-effort; the tree is discarded on error, so just
	// make sure no forms leak out.
	if forms != nil {
		t.Fatalf("forms must be nil when diagnostics exist, got: %v", forms)
	}
}

// The in-order atom sequence of the parse tree must match the
// non-structural token sequence of the source.
func TestParser_AtomSequence(t *testing.T) {
	src := `(module m :version 3 (fn f [a "b" 5ms] {k true}))`
	toks, lexErrs := Lex(src)
	if len(lexErrs) > 0 {
		t.Fatalf("unexpected lex error: %v", lexErrs)
	}
	var wantAtoms []*Token
	for _, tok := range toks {
		switch tok.Kind {
		case TokenKindLParen, TokenKindRParen, TokenKindLBracket, TokenKindRBracket,
			TokenKindLBrace, TokenKindRBrace, TokenKindEOF:
		default:
			wantAtoms = append(wantAtoms, tok)
		}
	}

	forms, err := ParseString(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var gotAtoms []*Token
	for _, f := range forms {
		gotAtoms = append(gotAtoms, collectAtoms(f)...)
	}

	if len(gotAtoms) != len(wantAtoms) {
		t.Fatalf("unexpected atom count: want: %v, got: %v", len(wantAtoms), len(gotAtoms))
	}
	for i, want := range wantAtoms {
		if gotAtoms[i].Pos != want.Pos {
			t.Fatalf("unexpected atom #%v: want: %+v, got: %+v", i, want, gotAtoms[i])
		}
	}
}

func collectAtoms(f *Form) []*Token {
	switch f.Kind {
	case FormKindAtom:
		return []*Token{f.Token}
	case FormKindMap:
		var toks []*Token
		for _, e := range f.Entries {
			toks = append(toks, collectAtoms(e.Key)...)
			toks = append(toks, collectAtoms(e.Val)...)
		}
		return toks
	default:
		var toks []*Token
		for _, c := range f.Children {
			toks = append(toks, collectAtoms(c)...)
		}
		return toks
	}
}
