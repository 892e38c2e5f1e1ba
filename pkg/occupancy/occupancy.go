// Package occupancy decides which attachments survive when the base skin
// and costume layers claim the same body slots.
package occupancy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Faultbox/vf3-assembler/pkg/costume"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
)

// Column is one resolution column. The shared hands slot is split into
// left and right columns.
type Column int

const (
	ColHead Column = iota
	ColBody
	ColArms
	ColHandL
	ColHandR
	ColWaist
	ColLegs
	ColFeet
	ColumnCount
)

// NoColumn marks a bone without a slot mapping.
const NoColumn Column = -1

var columnNames = [ColumnCount]string{"head", "body", "arms", "hand_l", "hand_r", "waist", "legs", "feet"}

// String returns the column name.
func (c Column) String() string {
	if c < 0 || c >= ColumnCount {
		return "none"
	}
	return columnNames[c]
}

// ParseColumn parses a column name as used in configuration.
func ParseColumn(s string) (Column, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range columnNames {
		if s == name {
			return Column(i), nil
		}
	}
	return NoColumn, fmt.Errorf("unknown slot column %q", s)
}

// BoneSlots maps bone names to the column their attachments occupy.
type BoneSlots map[string]Column

// DefaultBoneSlots returns the standard humanoid bone table.
func DefaultBoneSlots() BoneSlots {
	return BoneSlots{
		"head":     ColHead,
		"body":     ColBody,
		"l_breast": ColBody,
		"r_breast": ColBody,
		"l_arm1":   ColArms,
		"l_arm2":   ColArms,
		"r_arm1":   ColArms,
		"r_arm2":   ColArms,
		"l_hand":   ColHandL,
		"r_hand":   ColHandR,
		"waist":    ColWaist,
		"l_leg1":   ColLegs,
		"l_leg2":   ColLegs,
		"r_leg1":   ColLegs,
		"r_leg2":   ColLegs,
		"l_foot":   ColFeet,
		"r_foot":   ColFeet,
	}
}

// Column returns the column a bone maps to, or NoColumn.
func (t BoneSlots) Column(bone string) Column {
	if c, ok := t[bone]; ok {
		return c
	}
	return NoColumn
}

// Columns expands a contribution's slot vector into resolution columns.
// A nonzero hands value occupies the side its hand bones are on. Entries
// with attachments on both hands, or on neither, occupy both. The sign only
// marks one-sided costume parts; the level is the absolute value.
func Columns(c *costume.Contribution, table BoneSlots) [ColumnCount]int {
	var cols [ColumnCount]int
	s := c.Slots
	cols[ColHead] = s[formats.SlotHead]
	cols[ColBody] = s[formats.SlotBody]
	cols[ColArms] = s[formats.SlotArms]
	cols[ColWaist] = s[formats.SlotWaist]
	cols[ColLegs] = s[formats.SlotLegs]
	cols[ColFeet] = s[formats.SlotFeet]

	h := s[formats.SlotHands]
	if h < 0 {
		h = -h
	}
	if h == 0 {
		return cols
	}
	left, right := handSides(c, table)
	if !left && !right {
		left, right = true, true
	}
	if left {
		cols[ColHandL] = h
	}
	if right {
		cols[ColHandR] = h
	}
	return cols
}

func handSides(c *costume.Contribution, table BoneSlots) (left, right bool) {
	for _, bone := range c.Bones() {
		switch table.Column(bone) {
		case ColHandL:
			left = true
		case ColHandR:
			right = true
		}
	}
	return left, right
}

// Winner is the contribution holding a column.
type Winner struct {
	Owner *costume.Contribution // Nil when the column is unoccupied
	Value int
}

// Entry is an attachment with the contribution it came from.
type Entry struct {
	Owner      *costume.Contribution
	Attachment costume.MeshAttachment
	Column     Column
}

// ConnectorRef is a connector block with the contribution it came from.
type ConnectorRef struct {
	Owner *costume.Contribution
	Block *formats.ConnectorBlock
}

// Result is the outcome of slot resolution.
type Result struct {
	Attachments []Entry
	Connectors  []ConnectorRef
	Winners     [ColumnCount]Winner
	Excluded    []Entry
}

// Active reports whether a mesh on a bone survived resolution.
func (r *Result) Active(bone, mesh string) bool {
	for _, e := range r.Attachments {
		if e.Attachment.Bone == bone && e.Attachment.Mesh == mesh {
			return true
		}
	}
	return false
}

// Resolve picks a winner per column and filters attachments and connectors.
// The highest value wins a column; equal values go to the later layer, then
// the later entry.
func Resolve(layers *costume.Layers, table BoneSlots) *Result {
	if table == nil {
		table = DefaultBoneSlots()
	}

	contribs := make([]*costume.Contribution, len(layers.Contributions))
	copy(contribs, layers.Contributions)
	sort.SliceStable(contribs, func(i, j int) bool {
		if contribs[i].Layer != contribs[j].Layer {
			return contribs[i].Layer < contribs[j].Layer
		}
		return contribs[i].Index < contribs[j].Index
	})

	res := &Result{}
	columns := make(map[*costume.Contribution][ColumnCount]int, len(contribs))
	for _, c := range contribs {
		cols := Columns(c, table)
		columns[c] = cols
		for col, v := range cols {
			if v > 0 && v >= res.Winners[col].Value {
				res.Winners[col] = Winner{Owner: c, Value: v}
			}
		}
	}

	seenMesh := make(map[string]bool)
	seenConn := make(map[*formats.ConnectorBlock]bool)
	for _, c := range contribs {
		cols := columns[c]
		free := c.Slots.IsZero()
		won := free || res.wins(c)

		for _, att := range c.Attachments {
			col := attachmentColumn(att, table)
			active := won
			if !free && col != NoColumn && cols[col] > 0 {
				active = res.Winners[col].Owner == c
			}

			e := Entry{Owner: c, Attachment: att, Column: col}
			if !active {
				res.Excluded = append(res.Excluded, e)
				continue
			}
			key := att.Bone + "\x00" + strings.ToLower(att.Mesh)
			if seenMesh[key] {
				continue
			}
			seenMesh[key] = true
			res.Attachments = append(res.Attachments, e)
		}

		if !won {
			continue
		}
		for _, cb := range c.Connectors {
			if seenConn[cb] {
				continue
			}
			seenConn[cb] = true
			res.Connectors = append(res.Connectors, ConnectorRef{Owner: c, Block: cb})
		}
	}
	return res
}

// wins reports whether c holds at least one column.
func (r *Result) wins(c *costume.Contribution) bool {
	for _, w := range r.Winners {
		if w.Owner == c {
			return true
		}
	}
	return false
}

// attachmentColumn maps an attachment to a column through its bone, or
// through the parent bone for child frames.
func attachmentColumn(att costume.MeshAttachment, table BoneSlots) Column {
	col := table.Column(att.Bone)
	if col == NoColumn && att.Child != nil {
		col = table.Column(att.Child.Parent)
	}
	return col
}
