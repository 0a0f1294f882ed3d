// Package memory implements the machine's address space: a flat system region plus a sparse,
// owner-tagged cognitive region of pages, access-controlled by a process-wide current context id.
package memory

import (
	"errors"
	"fmt"

	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/obj"
	"github.com/helix9vm/helix9/internal/trit"
)

// Addr is a logical memory address.
type Addr uint32

// Address space layout, per spec.
const (
	SystemBase     Addr = 0x0000
	SystemLimit    Addr = 0x3000 // exclusive
	CognitiveBase  Addr = 0x3000
	CognitiveLimit Addr = 0x8000 // exclusive

	SystemWords = uint32(SystemLimit - SystemBase)
)

// System is the context id reserved for the root/unrestricted principal.
const System uint32 = 0

// Memory is the machine's address space: a dense system region plus a sparse map of owned,
// permission-checked cognitive pages.
type Memory struct {
	system [SystemWords]trit.Word
	pages  map[uint32]*Page

	ctx uint32 // current context id

	violations int

	log *log.Logger
}

// New creates an empty Memory with no cognitive pages allocated.
func New(opts ...Option) *Memory {
	m := &Memory{
		pages: make(map[uint32]*Page),
		log:   log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Option configures a Memory at construction.
type Option func(*Memory)

// WithLogger overrides the memory's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Memory) { m.log = l }
}

// SetContext sets the current context id used to check access on subsequent cognitive-region
// operations. It returns the previous context, so callers can restore it.
func (m *Memory) SetContext(ctx uint32) uint32 {
	prev := m.ctx
	m.ctx = ctx

	return prev
}

// Context returns the current context id.
func (m *Memory) Context() uint32 {
	return m.ctx
}

// PageID returns the page-id (addr / PageSize) that owns a cognitive address.
func PageID(addr Addr) uint32 {
	return uint32(addr) >> 8
}

// Read returns the word at addr, dispatching on address region. Out-of-range system reads and
// permission-denied or unallocated cognitive reads return the zero word.
func (m *Memory) Read(addr Addr) trit.Word {
	if addr < SystemLimit {
		return m.system[addr]
	}

	if addr >= CognitiveLimit {
		return trit.Zero
	}

	page, ok := m.pages[PageID(addr)]
	if !ok {
		return trit.Zero
	}

	if !m.allowed(page, false) {
		m.recordViolation(addr, "read")
		return trit.Zero
	}

	return page.words[uint32(addr)&0xff]
}

// Write stores value at addr, dispatching on address region. Writes outside the system region's
// size and permission-denied cognitive writes are dropped. Writing zero to an unallocated
// cognitive page is a no-op: it must not allocate the page (the sparse invariant).
func (m *Memory) Write(addr Addr, value trit.Word) {
	if addr < SystemLimit {
		m.system[addr] = value
		return
	}

	if addr >= CognitiveLimit {
		return
	}

	id := PageID(addr)
	page, ok := m.pages[id]

	if !ok {
		if value == trit.Zero {
			return
		}

		page = m.allocate(id, m.ctx, DefaultPerm)
	}

	if !m.allowed(page, true) {
		m.recordViolation(addr, "write")
		return
	}

	page.words[uint32(addr)&0xff] = value
}

// allowed checks the current context against a page's owner and permission bits. System context
// (ctx == 0) always passes.
func (m *Memory) allowed(page *Page, write bool) bool {
	if m.ctx == System {
		return true
	}

	if m.ctx != page.Owner {
		return false
	}

	if write && page.Perm&OwnerWrite == 0 {
		return false
	}

	if !write && page.Perm&OwnerRead == 0 {
		return false
	}

	return true
}

func (m *Memory) recordViolation(addr Addr, op string) {
	m.violations++
	m.log.Warn("memory access violation", "addr", addr, "op", op, "ctx", m.ctx)
}

// Violations returns the number of access violations recorded so far.
func (m *Memory) Violations() int {
	return m.violations
}

// AllocatePage pre-creates a cognitive page with the given owner and permissions. It is a no-op,
// returning the existing page, if the page already exists.
func (m *Memory) AllocatePage(id uint32, owner uint32, perm Perm) *Page {
	if page, ok := m.pages[id]; ok {
		return page
	}

	return m.allocate(id, owner, perm)
}

func (m *Memory) allocate(id uint32, owner uint32, perm Perm) *Page {
	page := &Page{Owner: owner, Perm: perm}
	m.pages[id] = page

	m.log.Debug("allocated cognitive page", "id", id, "owner", owner)

	return page
}

// Page returns the page at id, or nil if it does not exist. It bypasses access control: it is
// intended for system-context introspection (the scheduler, the stability monitor).
func (m *Memory) Page(id uint32) *Page {
	return m.pages[id]
}

// OptimizePage deletes the page at id if every word in it is zero, reclaiming memory. It returns
// true if the page was deleted.
func (m *Memory) OptimizePage(id uint32) bool {
	page, ok := m.pages[id]
	if !ok {
		return false
	}

	for _, w := range page.words {
		if w != trit.Zero {
			return false
		}
	}

	delete(m.pages, id)

	return true
}

// ErrLoader is the sentinel wrapped by executable-loading errors.
var ErrLoader = errors.New("loader error")

// LoadExecutable loads an already-parsed executable into memory at its sections' final base
// addresses, writing under the system context so access control never interferes.
func (m *Memory) LoadExecutable(exe *obj.Executable) error {
	prev := m.SetContext(System)
	defer m.SetContext(prev)

	for _, sec := range exe.Sections {
		base := Addr(sec.Base)

		for i, w := range sec.Words {
			m.Write(base+Addr(i), w)
		}
	}

	return nil
}

// LoadExecutableText parses and loads the text-format executable file contents produced by the
// linker (see internal/obj).
func (m *Memory) LoadExecutableText(data []byte) error {
	var exe obj.Executable

	if err := exe.UnmarshalText(data); err != nil {
		return fmt.Errorf("%w: %w", ErrLoader, err)
	}

	return m.LoadExecutable(&exe)
}
