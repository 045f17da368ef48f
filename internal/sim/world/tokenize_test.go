package world

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"the cat sat on a mat", []string{"cat", "sat", "mat"}},
		{"Room 42 is open", []string{"room", "42", "open"}},
		{"a I x", nil},
		{"", nil},
		{"visited the library, then the canteen", []string{"visited", "library", "then", "canteen"}},
	}
	for _, c := range cases {
		got := Tokenize(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	in := "Agents moved to the library at 9am, talked with A2"
	first := Tokenize(in)
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(Tokenize(in), first) {
			t.Fatalf("tokenizer not deterministic")
		}
	}
}
