package spec

import (
	"testing"
)

func TestLexer_Run(t *testing.T) {
	symTok := func(text string) *Token {
		return &Token{Kind: TokenKindSymbol, Text: text}
	}
	kwTok := func(text string) *Token {
		return &Token{Kind: TokenKindKeyword, Text: text}
	}
	strTok := func(text string) *Token {
		return &Token{Kind: TokenKindString, Text: text}
	}
	intTok := func(num int64) *Token {
		return &Token{Kind: TokenKindInteger, Num: num}
	}
	boolTok := func(v bool) *Token {
		return &Token{Kind: TokenKindBoolean, Bool: v}
	}
	durTok := func(num int64, unit DurationUnit) *Token {
		return &Token{Kind: TokenKindDuration, Num: num, Unit: unit}
	}
	regexTok := func(text string) *Token {
		return &Token{Kind: TokenKindRegex, Text: text}
	}
	structuralTok := func(kind TokenKind) *Token {
		return &Token{Kind: kind}
	}
	eofTok := func() *Token {
		return &Token{Kind: TokenKindEOF}
	}

	tests := []struct {
		caption string
		src     string
		tokens  []*Token
		err     error
	}{
		{
			caption: "the lexer can recognize all kinds of tokens",
			src:     `(foo [:bar "baz"] {qux 42} true false 5s #/a+/)`,
			tokens: []*Token{
				structuralTok(TokenKindLParen),
				symTok("foo"),
				structuralTok(TokenKindLBracket),
				kwTok("bar"),
				strTok("baz"),
				structuralTok(TokenKindRBracket),
				structuralTok(TokenKindLBrace),
				symTok("qux"),
				intTok(42),
				structuralTok(TokenKindRBrace),
				boolTok(true),
				boolTok(false),
				durTok(5, DurationUnitSecond),
				regexTok("a+"),
				structuralTok(TokenKindRParen),
				eofTok(),
			},
		},
		{
			caption: "symbols may contain the full punctuation set but must not start with a digit",
			src:     `valid? insert! db/user-store a.b _x`,
			tokens: []*Token{
				symTok("valid?"),
				symTok("insert!"),
				symTok("db/user-store"),
				symTok("a.b"),
				symTok("_x"),
				eofTok(),
			},
		},
		{
			caption: "the longest duration suffix wins so 1ms is not 1m followed by s",
			src:     `10ms 10m 10s 1h 7`,
			tokens: []*Token{
				durTok(10, DurationUnitMillisecond),
				durTok(10, DurationUnitMinute),
				durTok(10, DurationUnitSecond),
				durTok(1, DurationUnitHour),
				intTok(7),
				eofTok(),
			},
		},
		{
			caption: "negative integers lex with their sign and -0 normalizes to 0",
			src:     `-12 -0`,
			tokens: []*Token{
				intTok(-12),
				intTok(0),
				eofTok(),
			},
		},
		{
			caption: "a bare dash is a symbol, not a number",
			src:     `- -x`,
			tokens: []*Token{
				symTok("-"),
				symTok("-x"),
				eofTok(),
			},
		},
		{
			caption: "string escapes resolve",
			src:     `"a\nb\t\"c\"\\"`,
			tokens: []*Token{
				strTok("a\nb\t\"c\"\\"),
				eofTok(),
			},
		},
		{
			caption: "an escaped slash does not terminate a regex",
			src:     `#/https?:\/\/.+/`,
			tokens: []*Token{
				regexTok(`https?:\/\/.+`),
				eofTok(),
			},
		},
		{
			caption: "commas are whitespace",
			src:     `{:a 1, :b 2}`,
			tokens: []*Token{
				structuralTok(TokenKindLBrace),
				kwTok("a"),
				intTok(1),
				kwTok("b"),
				intTok(2),
				structuralTok(TokenKindRBrace),
				eofTok(),
			},
		},
		{
			caption: "line comments are consumed through end-of-line",
			src: `foo ;; the first comment
;; a full-line comment
bar ;; trailing`,
			tokens: []*Token{
				symTok("foo"),
				symTok("bar"),
				eofTok(),
			},
		},
		{
			caption: "an unterminated string is a lexical error",
			src:     `"abc`,
			tokens: []*Token{
				eofTok(),
			},
			err: synErrUnterminatedString,
		},
		{
			caption: "a string may not span lines",
			src:     "\"abc\ndef\"",
			err:     synErrUnterminatedString,
		},
		{
			caption: "an unterminated regex is a lexical error",
			src:     `#/abc`,
			tokens: []*Token{
				eofTok(),
			},
			err: synErrUnterminatedRegex,
		},
		{
			caption: "an unexpected character is reported and the lexer resynchronizes at whitespace",
			src:     `foo @@@ bar`,
			tokens: []*Token{
				symTok("foo"),
				symTok("bar"),
				eofTok(),
			},
			err: synErrUnexpectedChar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			toks, errs := Lex(tt.src)
			if tt.err != nil {
				if len(errs) == 0 {
					t.Fatalf("an error is expected but lexing succeeded")
				}
				if errs[0].Cause != tt.err {
					t.Fatalf("unexpected error: want: %v, got: %v", tt.err, errs[0].Cause)
				}
			} else if len(errs) > 0 {
				t.Fatalf("unexpected error: %v", errs)
			}
			if tt.tokens == nil {
				return
			}
			if len(toks) != len(tt.tokens) {
				t.Fatalf("unexpected token count: want: %v, got: %v", len(tt.tokens), len(toks))
			}
			for i, want := range tt.tokens {
				testToken(t, want, toks[i])
			}
		})
	}
}

func TestLexer_PositionTracking(t *testing.T) {
	src := "(a\n  b)"
	toks, errs := Lex(src)
	if len(errs) > 0 {
		t.Fatalf("unexpected error: %v", errs)
	}
	wantPos := []Position{
		{Row: 1, Col: 1, Offset: 0},
		{Row: 1, Col: 2, Offset: 1},
		{Row: 2, Col: 3, Offset: 5},
		{Row: 2, Col: 4, Offset: 6},
		{Row: 2, Col: 5, Offset: 7},
	}
	if len(toks) != len(wantPos) {
		t.Fatalf("unexpected token count: want: %v, got: %v", len(wantPos), len(toks))
	}
	for i, want := range wantPos {
		if toks[i].Pos != want {
			t.Fatalf("unexpected position of token #%v: want: %+v, got: %+v", i, want, toks[i].Pos)
		}
	}
}

func testToken(t *testing.T, want, got *Token) {
	t.Helper()
	if got.Kind != want.Kind || got.Text != want.Text || got.Num != want.Num ||
		got.Unit != want.Unit || got.Bool != want.Bool {
		t.Fatalf("unexpected token: want: %+v, got: %+v", want, got)
	}
}
