package lexer

import "testing"

func kinds(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeExpression(t *testing.T) {
	tokens, err := Tokenize("a = 2 + 3.5")
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		typ  TokenType
		text string
	}{
		{TokenName, "a"},
		{TokenOp, "="},
		{TokenNumber, "2"},
		{TokenOp, "+"},
		{TokenNumber, "3.5"},
		{TokenEOF, ""},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Text != w.text {
			t.Errorf("token %d: got %v %q, want %v %q", i, tokens[i].Type, tokens[i].Text, w.typ, w.text)
		}
	}
}

func TestNumberScales(t *testing.T) {
	tests := []struct {
		src    string
		digits string
		scale  int
	}{
		{"5", "5", 0},
		{"5.", "5", 0},
		{".5", "5", 1},
		{"0.5", "05", 1},
		{"2.50", "250", 2},
		{"1234567890", "1234567890", 0},
	}
	for _, tt := range tests {
		tokens, err := Tokenize(tt.src)
		if err != nil {
			t.Fatalf("%q: %v", tt.src, err)
		}
		tok := tokens[0]
		if tok.Type != TokenNumber || tok.Digits != tt.digits || tok.Scale != tt.scale {
			t.Errorf("%q: got digits=%q scale=%d, want digits=%q scale=%d",
				tt.src, tok.Digits, tok.Scale, tt.digits, tt.scale)
		}
	}
}

func TestKeywordsAndNames(t *testing.T) {
	tokens, err := Tokenize("define foo(a) { auto b; return scale }")
	if err != nil {
		t.Fatal(err)
	}
	if tokens[0].Type != TokenKeyword || tokens[0].Text != "define" {
		t.Errorf("define should lex as a keyword, got %v", tokens[0])
	}
	if tokens[1].Type != TokenName || tokens[1].Text != "foo" {
		t.Errorf("foo should lex as a name, got %v", tokens[1])
	}
}

func TestComparisonOperators(t *testing.T) {
	tokens, err := Tokenize("<= >= == != < >")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"<=", ">=", "==", "!=", "<", ">"}
	for i, w := range want {
		if tokens[i].Type != TokenOp || tokens[i].Text != w {
			t.Errorf("token %d: got %q, want %q", i, tokens[i].Text, w)
		}
	}
}

func TestNewlinesAndSemicolons(t *testing.T) {
	tokens, err := Tokenize("1\n2;3")
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenType{TokenNumber, TokenNewline, TokenNumber, TokenPunc, TokenNumber, TokenEOF}
	got := kinds(tokens)
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("token kinds %v, want %v", got, want)
		}
	}
}

func TestComments(t *testing.T) {
	tokens, err := Tokenize("1 /* a comment\nspanning lines */ + 2")
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenType{TokenNumber, TokenOp, TokenNumber, TokenEOF}
	got := kinds(tokens)
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("token kinds %v, want %v", got, want)
		}
	}
}

func TestPositions(t *testing.T) {
	tokens, err := Tokenize("1\n  abc")
	if err != nil {
		t.Fatal(err)
	}
	name := tokens[2]
	if name.Line != 2 || name.Column != 3 {
		t.Errorf("got position %d:%d, want 2:3", name.Line, name.Column)
	}
}

func TestErrors(t *testing.T) {
	if _, err := Tokenize("1 @ 2"); err == nil {
		t.Error("expected an error for an unknown character")
	}
	if _, err := Tokenize("1 /* no end"); err == nil {
		t.Error("expected an error for an unterminated comment")
	}
	if _, err := Tokenize("1 ! 2"); err == nil {
		t.Error("expected an error for a lone '!'")
	}
}
