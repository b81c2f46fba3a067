package term

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	type testcase struct {
		input  string
		expect Term
	}

	cases := []testcase{
		{"_100", Var("_100")},
		{"gello", Atom("gello")},
		{"hello(b,c,d)", Compound{"hello", []Term{Atom("b"), Atom("c"), Atom("d")}}},
		{"[a,b,c(d,f(g)),d]", NewList(Atom("a"), Atom("b"),
			Compound{"c", []Term{Atom("d"), Compound{"f", []Term{Atom("g")}}}}, Atom("d"))},
		{"[]", List{}},
		{"'[]'", List{}},
		{"[H|T]", List{Elems: []Term{Var("H")}, Tail: Var("T")}},
		{"[a|[]]", NewList(Atom("a"))},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.25", Float(3.25)},
		{"1.0e3", Float(1000)},
		{"0'a", Int('a')},
		{"0x1F", Int(31)},
		{`'hello world'`, Atom("hello world")},
		{`'it''s'`, Atom("it's")},
		{`"str\n"`, Str("str\n")},
		{"!", Atom("!")},
		{"{}", Atom("{}")},
		{"{a}", Compound{"{}", []Term{Atom("a")}}},
		{"x(f(X)).", Compound{"x", []Term{Compound{"f", []Term{Var("X")}}}}},
		{"X = f(a)", Compound{"=", []Term{Var("X"), Compound{"f", []Term{Atom("a")}}}}},
		{"a-b", Compound{"-", []Term{Atom("a"), Atom("b")}}},
		{"1+2*3", Compound{"+", []Term{Int(1), Compound{"*", []Term{Int(2), Int(3)}}}}},
		{"1-2-3", Compound{"-", []Term{Compound{"-", []Term{Int(1), Int(2)}}, Int(3)}}},
		{"1-(2+3)", Compound{"-", []Term{Int(1), Compound{"+", []Term{Int(2), Int(3)}}}}},
		{"2^3^4", Compound{"^", []Term{Int(2), Compound{"^", []Term{Int(3), Int(4)}}}}},
		{"X is Y mod 2", Compound{"is", []Term{Var("X"), Compound{"mod", []Term{Var("Y"), Int(2)}}}}},
		{"a :- b, c ; d", Compound{":-", []Term{Atom("a"),
			Compound{";", []Term{Compound{",", []Term{Atom("b"), Atom("c")}}, Atom("d")}}}}},
		{`\+ p(X)`, Compound{`\+`, []Term{Compound{"p", []Term{Var("X")}}}}},
		{"- (1, 2)", Compound{"-", []Term{Compound{",", []Term{Int(1), Int(2)}}}}},
		{"'+'(1,2)", Compound{"+", []Term{Int(1), Int(2)}}},
		{"f(-)", Compound{"f", []Term{Atom("-")}}},
		{"f(- 1)", Compound{"f", []Term{Compound{"-", []Term{Int(1)}}}}},
		{"- 1", Compound{"-", []Term{Int(1)}}},
		{"f(-1, - 2.5)", Compound{"f", []Term{Int(-1), Compound{"-", []Term{Float(2.5)}}}}},
		{"café", Atom("café")},
		{"Ñandú", Var("Ñandú")},
		{"日本", Atom("日本")},
		{"prix(crème_brûlée, X)", Compound{"prix", []Term{Atom("crème_brûlée"), Var("X")}}},
		{"0' ", Int(' ')},
		{"X = 0' .", Compound{"=", []Term{Var("X"), Int(' ')}}},
		{"0'.", Int('.')},
		{"'a0'.", Atom("a0")},
		{"f(-(1))", Compound{"f", []Term{Compound{"-", []Term{Int(1)}}}}},
		{"f((a, b))", Compound{"f", []Term{Compound{",", []Term{Atom("a"), Atom("b")}}}}},
		{"f(a) % trailing comment", Compound{"f", []Term{Atom("a")}}},
	}

	for _, tc := range cases {
		output, err := Parse(tc.input)
		require.NoError(t, err, tc.input)
		assert.True(t, Equal(tc.expect, output), "%s: got %s, want %s", tc.input, Format(output), Format(tc.expect))
	}
}

func TestParseBigInt(t *testing.T) {
	got, err := Parse("123456789012345678901234567890")
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	b, ok := got.(BigInt)
	require.True(t, ok)
	assert.Zero(t, want.Cmp(b.Int))
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "f(", "a b", "[a|b|c]", "X(a)"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrSyntax, input)
	}
}

func TestParseTreeShape(t *testing.T) {
	got := MustParse("foo(bar, [1, 2 | T])")
	want := Compound{Functor: "foo", Args: []Term{
		Atom("bar"),
		List{Elems: []Term{Int(1), Int(2)}, Tail: Var("T")},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}
