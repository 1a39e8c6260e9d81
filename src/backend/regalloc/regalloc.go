// Package regalloc implements the register allocation model shared by the lowering engine: an
// operand stack represented as an ordered sequence of register indices, and the normalization pass
// that rewrites a permuted allocation back into canonical form with a minimal number of moves.
package regalloc

import (
	"fmt"
	"io"

	"sslc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Allocation is the operand stack's current register assignment: index 0 is the deepest live
// value, the last element is the top of stack. Register 0 is reserved as the always-zero register
// and never appears in an Allocation.
type Allocation struct {
	regs []int
}

// ---------------------
// ----- Constants -----
// ---------------------

// Zero is the reserved always-zero register index.
const Zero = 0

// ---------------------
// ----- Functions -----
// ---------------------

// New returns an empty Allocation.
func New() *Allocation {
	return &Allocation{}
}

// Normal returns the canonical Allocation of the given stack height: registers 1..height in order.
func Normal(height int) *Allocation {
	regs := make([]int, height)
	for i := range regs {
		regs[i] = i + 1
	}
	return &Allocation{regs: regs}
}

// FromOrder returns an Allocation directly wrapping order (copied), letting a caller reorder an
// existing set of live registers before normalizing them into new canonical positions — the
// mechanism call and instruction-overload lowering use to relocate one register window without
// disturbing another live below it.
func FromOrder(order []int) *Allocation {
	return &Allocation{regs: append([]int{}, order...)}
}

// Snapshot returns a copy of the allocation's current registers, deepest first.
func (a *Allocation) Snapshot() []int {
	return append([]int{}, a.regs...)
}

// ReplaceAll overwrites the allocation's registers with regs (copied).
func (a *Allocation) ReplaceAll(regs []int) {
	a.regs = append([]int{}, regs...)
}

// Offset adds offset to every register in the allocation, used when a callee's local allocation is
// grafted onto a caller's stack above its live registers.
func (a *Allocation) Offset(offset int) {
	for i := range a.regs {
		a.regs[i] += offset
	}
}

// Pop discards the top length registers.
func (a *Allocation) Pop(length int) {
	a.regs = a.regs[:len(a.regs)-length]
}

// Push appends reg as the new top of stack.
func (a *Allocation) Push(reg int) {
	a.regs = append(a.regs, reg)
}

// Len returns the current stack depth.
func (a *Allocation) Len() int {
	return len(a.regs)
}

// AllUsed returns every distinct register currently live, in first-occurrence order.
func (a *Allocation) AllUsed() []int {
	used := make([]int, 0, len(a.regs))
	seen := make(map[int]bool, len(a.regs))
	for _, r := range a.regs {
		if !seen[r] {
			seen[r] = true
			used = append(used, r)
		}
	}
	return used
}

// Get returns the top length registers, deepest first, without modifying the allocation.
func (a *Allocation) Get(length int) []int {
	return a.regs[len(a.regs)-length:]
}

// Top returns the top-of-stack register, or the zero register if the stack is empty.
func (a *Allocation) Top() int {
	if len(a.regs) == 0 {
		return Zero
	}
	return a.regs[len(a.regs)-1]
}

// IsUnique reports whether reg occupies exactly one stack slot.
func (a *Allocation) IsUnique(reg int) bool {
	count := 0
	for _, r := range a.regs {
		if r == reg {
			count++
		}
	}
	return count == 1
}

// Next returns the lowest positive register index not currently live, reusing low indices to keep
// the module's MINREG as small as possible rather than always growing.
func (a *Allocation) Next() int {
	for i := 1; ; i++ {
		found := false
		for _, r := range a.regs {
			if r == i {
				found = true
				break
			}
		}
		if !found {
			return i
		}
	}
}

// ApplyNext pushes and returns the next free register.
func (a *Allocation) ApplyNext() int {
	reg := a.Next()
	a.Push(reg)
	return reg
}

// ApplyPop1 pops and returns the top register.
func (a *Allocation) ApplyPop1() int {
	reg := a.Top()
	a.Pop(1)
	return reg
}

// ApplyPermutation reshapes the allocation per perm: the top perm.Input registers are replaced by
// the registers perm.Indices selects from that window, supporting duplication and elision.
func (a *Allocation) ApplyPermutation(perm ir.Permutation) error {
	if len(a.regs) < perm.Input {
		return fmt.Errorf("permutation needs %d elements on the stack, only %d present", perm.Input, len(a.regs))
	}
	inputs := append([]int{}, a.Get(perm.Input)...)
	a.Pop(len(inputs))
	for _, i := range perm.Indices {
		a.Push(inputs[i])
	}
	return nil
}

// Normalize rewrites the allocation to canonical form [1..len], emitting the minimal MOV sequence
// that gets it there to w and tracking the highest register index any move touched in maxRegs. It
// proceeds in two phases: dangling moves (whose destination is never read as another move's source)
// are safe to emit immediately; what remains are disjoint cycles, each resolved with one temporary
// register held one past the allocation's current length. Writing continues even after a write
// error so the allocation's bookkeeping always finishes; the first error encountered is returned.
func (a *Allocation) Normalize(w io.Writer, maxRegs *int) error {
	length := len(a.regs)
	type change struct{ src, dest int }
	var changes []change
	for dest, src := range a.regs {
		if src != dest+1 {
			changes = append(changes, change{src: src, dest: dest + 1})
		}
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	emit := func(dest, src int) {
		if src > *maxRegs {
			*maxRegs = src
		}
		if dest > *maxRegs {
			*maxRegs = dest
		}
		_, err := fmt.Fprintf(w, "MOV $%d $%d\n", dest, src)
		record(err)
	}

	readAsSource := func(dest int) bool {
		for _, c := range changes {
			if c.src == dest {
				return true
			}
		}
		return false
	}

	for {
		idx := -1
		for i, c := range changes {
			if !readAsSource(c.dest) {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		c := changes[idx]
		changes = append(changes[:idx], changes[idx+1:]...)
		emit(c.dest, c.src)
	}

	temp := length + 1
	for len(changes) > 0 {
		last := changes[len(changes)-1]
		changes = changes[:len(changes)-1]
		cur := last.src
		circular := []int{temp, cur}
		for {
			idx := -1
			for i, c := range changes {
				if c.dest == cur {
					idx = i
					break
				}
			}
			if idx < 0 {
				break
			}
			c := changes[idx]
			changes = append(changes[:idx], changes[idx+1:]...)
			circular = append(circular, c.src)
			cur = c.src
		}
		circular = append(circular, temp)
		for i := 1; i < len(circular); i++ {
			emit(circular[i-1], circular[i])
		}
	}

	for i := range a.regs {
		a.regs[i] = i + 1
	}
	return firstErr
}

// String renders the allocation in debug form, e.g. " $1 $2 $3".
func (a *Allocation) String() string {
	s := ""
	for _, r := range a.regs {
		s += fmt.Sprintf(" $%d", r)
	}
	return s
}
