package obj_test

import (
	"testing"

	"github.com/helix9vm/helix9/internal/obj"
	"github.com/helix9vm/helix9/internal/trit"
)

func TestObjectRoundTrip(t *testing.T) {
	t.Parallel()

	f := &obj.File{
		Sections: []obj.Section{
			{Name: ".text", Base: 0, Words: []trit.Word{trit.FromInt(1), trit.FromInt(-1), trit.FromInt(0)}},
			{Name: ".data", Base: 0, Words: []trit.Word{trit.FromInt(42)}},
		},
		Symbols: []obj.Symbol{
			{Name: "START", Section: ".text", Offset: 0, Scope: obj.Global},
			{Name: "tmp", Section: ".text", Offset: 1, Scope: obj.Local},
		},
		Relocations: []obj.Relocation{
			{Section: ".text", Offset: 1, Symbol: "START", Type: obj.PCR},
		},
	}

	text, err := f.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got obj.File
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v\n%s", err, text)
	}

	if len(got.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(got.Sections))
	}

	if got.Sections[0].Name != ".text" || len(got.Sections[0].Words) != 3 {
		t.Fatalf("section 0 = %+v", got.Sections[0])
	}

	if got.Sections[0].Words[0].ToInt() != 1 || got.Sections[0].Words[1].ToInt() != -1 {
		t.Fatalf("section 0 words = %v", got.Sections[0].Words)
	}

	if len(got.Symbols) != 2 || got.Symbols[0].Name != "START" || got.Symbols[0].Scope != obj.Global {
		t.Fatalf("symbols = %+v", got.Symbols)
	}

	if len(got.Relocations) != 1 || got.Relocations[0].Type != obj.PCR {
		t.Fatalf("relocations = %+v", got.Relocations)
	}
}

func TestExecutableRoundTrip(t *testing.T) {
	t.Parallel()

	e := &obj.Executable{
		Sections: []obj.ExecSection{
			{Name: ".text", Base: 0, Words: []trit.Word{trit.FromInt(5), trit.FromInt(-5)}},
		},
	}

	text, err := e.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got obj.Executable
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v\n%s", err, text)
	}

	if len(got.Sections) != 1 || len(got.Sections[0].Words) != 2 {
		t.Fatalf("got = %+v", got.Sections)
	}

	if got.Sections[0].Words[0].ToInt() != 5 {
		t.Fatalf("word[0] = %d, want 5", got.Sections[0].Words[0].ToInt())
	}
}

func TestUnmarshalMalformedHeader(t *testing.T) {
	t.Parallel()

	var f obj.File
	if err := f.UnmarshalText([]byte("NOPE 1 0\n")); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
