package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/diag"
)

// Slot vector errors.
var (
	ErrInvalidSlotVector = errors.New("invalid slot vector")
)

// Slot indices of a SlotVector.
const (
	SlotHead = iota
	SlotBody
	SlotArms
	SlotHands
	SlotWaist
	SlotLegs
	SlotFeet
	SlotCount
)

var slotNames = [SlotCount]string{"head", "body", "arms", "hands", "waist", "legs", "feet"}

// SlotName returns the name of a slot index.
func SlotName(i int) string {
	if i < 0 || i >= SlotCount {
		return fmt.Sprintf("slot(%d)", i)
	}
	return slotNames[i]
}

// SlotVector is the 7-element occupancy vector of a skin entry or costume item.
// Zero means the slot is not occupied.
type SlotVector [SlotCount]int

// IsZero reports whether no slot is occupied.
func (v SlotVector) IsZero() bool {
	return v == SlotVector{}
}

// String formats the vector the way descriptors write it.
func (v SlotVector) String() string {
	parts := make([]string, SlotCount)
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseSlotVector parses `v,v,v,v,v,v,v`.
func ParseSlotVector(s string) (SlotVector, error) {
	var v SlotVector
	items := strings.Split(strings.TrimSpace(s), ",")
	if len(items) != SlotCount {
		return v, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidSlotVector, SlotCount, len(items))
	}
	for i, item := range items {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return v, fmt.Errorf("%w: %q", ErrInvalidSlotVector, item)
		}
		v[i] = n
	}
	return v, nil
}

// SkinEntry is one `slots:identifier` line of `<skin>` or a costume item.
type SkinEntry struct {
	Slots SlotVector
	Ref   string // Identifier such as "ciel.head" or "female.arms"
	Line  int
}

func (d *Descriptor) parseEntries(block *Block) ([]SkinEntry, []diag.Warning) {
	unit := d.unit(block.Name)
	var entries []SkinEntry
	var warnings []diag.Warning
	for _, ln := range block.Lines {
		if strings.HasPrefix(ln.Text, "class:") {
			continue
		}
		vec, ref, ok := strings.Cut(ln.Text, ":")
		if !ok {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "entry has no ':' separator"))
			continue
		}
		slots, err := ParseSlotVector(vec)
		if err != nil {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "%v", err))
			continue
		}
		ref = strings.TrimSpace(ref)
		if ref == "" {
			warnings = append(warnings, diag.New(diag.ErrParseFormat, unit, ln.Num, "entry has empty identifier"))
			continue
		}
		entries = append(entries, SkinEntry{Slots: slots, Ref: ref, Line: ln.Num})
	}
	return entries, warnings
}

// Skin parses the `<skin>` block (the base body layer).
func (d *Descriptor) Skin() ([]SkinEntry, []diag.Warning) {
	b, ok := d.Blocks[BlockSkin]
	if !ok {
		return nil, nil
	}
	return d.parseEntries(b)
}

// DefaultCostume returns the item identifiers listed in `<defaultcos>`.
func (d *Descriptor) DefaultCostume() []string {
	b, ok := d.Blocks[BlockDefaultCos]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(b.Lines))
	for _, ln := range b.Lines {
		names = append(names, ln.Text)
	}
	return names
}

// CostumeItem parses the entries of a costume item block.
// The name may carry a `prefix.` namespace, which is ignored here.
func (d *Descriptor) CostumeItem(name string) ([]SkinEntry, []diag.Warning, bool) {
	_, item := SplitRef(name)
	b, ok := d.Blocks[item]
	if !ok {
		return nil, nil, false
	}
	entries, warnings := d.parseEntries(b)
	return entries, warnings, true
}

// IsCostumeItem reports whether the named block consists only of
// `slots:identifier` entries (and `class:` lines).
func (d *Descriptor) IsCostumeItem(name string) bool {
	b, ok := d.Blocks[name]
	if !ok || name == BlockSkin || name == BlockFrame {
		return false
	}
	found := false
	for _, ln := range b.Lines {
		if strings.HasPrefix(ln.Text, "class:") {
			continue
		}
		vec, _, ok := strings.Cut(ln.Text, ":")
		if !ok {
			return false
		}
		if _, err := ParseSlotVector(vec); err != nil {
			return false
		}
		found = true
	}
	return found
}

// CostumeItems returns the names of all costume item blocks in file order.
func (d *Descriptor) CostumeItems() []string {
	var names []string
	for _, name := range d.Order {
		if d.IsCostumeItem(name) {
			names = append(names, name)
		}
	}
	return names
}
