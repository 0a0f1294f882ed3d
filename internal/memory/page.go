package memory

import "github.com/helix9vm/helix9/internal/trit"

// PageSize is the number of words held by a single cognitive page.
const PageSize = 256

// Perm is a bitmask of permissions granted to a page's owner.
type Perm uint8

const (
	OwnerRead Perm = 1 << iota
	OwnerWrite
)

// DefaultPerm is granted to pages created implicitly by a write to an unallocated address.
const DefaultPerm = OwnerRead | OwnerWrite

func (p Perm) String() string {
	s := ""
	if p&OwnerRead != 0 {
		s += "R"
	}

	if p&OwnerWrite != 0 {
		s += "W"
	}

	if s == "" {
		return "-"
	}

	return s
}

// Page is a fixed-size block of cognitive memory owned by a single context. A Page either does
// not exist (see Memory.pages) or exists with storage for exactly PageSize words.
type Page struct {
	Owner uint32
	Perm  Perm

	words [PageSize]trit.Word
}

// View returns a copy of the page's words, for callers (the stability monitor, debug tooling)
// that need to inspect contents without going through access control.
func (p *Page) View() [PageSize]trit.Word {
	return p.words
}

// Set writes a single word directly, bypassing access control. It exists for components (the
// vector unit) that already hold a *Page reference under the system
// context's authority.
func (p *Page) Set(offset uint8, w trit.Word) {
	p.words[offset] = w
}

// Get reads a single word directly, bypassing access control.
func (p *Page) Get(offset uint8) trit.Word {
	return p.words[offset]
}
