package occupancy

import (
	"sort"
	"testing"

	"github.com/Faultbox/vf3-assembler/pkg/costume"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
)

func contrib(layer, index int, slots formats.SlotVector, atts ...costume.MeshAttachment) *costume.Contribution {
	return &costume.Contribution{Layer: layer, Index: index, Ref: "test", Slots: slots, Attachments: atts}
}

func att(bone, mesh string) costume.MeshAttachment {
	return costume.MeshAttachment{Bone: bone, Mesh: mesh}
}

func activeMeshes(r *Result) []string {
	var out []string
	for _, e := range r.Attachments {
		out = append(out, e.Attachment.Mesh)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolve_CostumeReplacesBody(t *testing.T) {
	base := contrib(0, 0, formats.SlotVector{0, 1, 0, 0, 0, 0, 0}, att("body", "ciel.body"))
	blazer := contrib(1, 0, formats.SlotVector{0, 3, 0, 0, 0, 0, 0}, att("body", "ciel.blazer_body"))

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{base, blazer}}, nil)

	if got := activeMeshes(r); !equal(got, []string{"ciel.blazer_body"}) {
		t.Errorf("expected only the costume body, got %v", got)
	}
	if r.Winners[ColBody].Owner != blazer || r.Winners[ColBody].Value != 3 {
		t.Errorf("unexpected body winner %+v", r.Winners[ColBody])
	}
	if len(r.Excluded) != 1 || r.Excluded[0].Attachment.Mesh != "ciel.body" {
		t.Errorf("expected base body excluded, got %+v", r.Excluded)
	}
}

func TestResolve_TieGoesToLaterLayer(t *testing.T) {
	skirt := contrib(1, 0, formats.SlotVector{0, 0, 0, 0, 2, 0, 0}, att("waist", "ciel.skirt"))
	shorts := contrib(2, 0, formats.SlotVector{0, 0, 0, 0, 2, 0, 0}, att("waist", "ciel.shorts"))

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{skirt, shorts}}, nil)
	if got := activeMeshes(r); !equal(got, []string{"ciel.shorts"}) {
		t.Errorf("expected second layer to win, got %v", got)
	}

	// Declaration order in the slice does not matter
	r = Resolve(&costume.Layers{Contributions: []*costume.Contribution{shorts, skirt}}, nil)
	if got := activeMeshes(r); !equal(got, []string{"ciel.shorts"}) {
		t.Errorf("expected second layer to win regardless of slice order, got %v", got)
	}
}

func TestResolve_TieWithinLayerGoesToLaterEntry(t *testing.T) {
	a := contrib(1, 0, formats.SlotVector{1, 0, 0, 0, 0, 0, 0}, att("head", "a"))
	b := contrib(1, 1, formats.SlotVector{1, 0, 0, 0, 0, 0, 0}, att("head", "b"))
	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{a, b}}, nil)
	if got := activeMeshes(r); !equal(got, []string{"b"}) {
		t.Errorf("expected later entry to win, got %v", got)
	}
}

func TestResolve_StrictMaxBeatsLaterLayer(t *testing.T) {
	coat := contrib(1, 0, formats.SlotVector{0, 4, 0, 0, 0, 0, 0}, att("body", "coat"))
	shirt := contrib(2, 0, formats.SlotVector{0, 2, 0, 0, 0, 0, 0}, att("body", "shirt"))
	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{coat, shirt}}, nil)
	if got := activeMeshes(r); !equal(got, []string{"coat"}) {
		t.Errorf("expected strict max to win, got %v", got)
	}
}

func TestResolve_PerSlotIndependence(t *testing.T) {
	// The costume wins body but loses arms; each attachment follows its own slot
	base := contrib(0, 0, formats.SlotVector{0, 1, 2, 0, 0, 0, 0},
		att("body", "base.body"), att("l_arm1", "base.arm"))
	top := contrib(1, 0, formats.SlotVector{0, 3, 1, 0, 0, 0, 0},
		att("body", "top.body"), att("l_arm1", "top.sleeve"), att("ribbon", "top.ribbon"))

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{base, top}}, nil)
	want := []string{"base.arm", "top.body", "top.ribbon"}
	if got := activeMeshes(r); !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolve_UnmappedBoneNeedsAWin(t *testing.T) {
	loser := contrib(1, 0, formats.SlotVector{0, 1, 0, 0, 0, 0, 0}, att("body", "a"), att("ribbon", "a.ribbon"))
	winner := contrib(2, 0, formats.SlotVector{0, 5, 0, 0, 0, 0, 0}, att("body", "b"))
	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{loser, winner}}, nil)
	if r.Active("ribbon", "a.ribbon") {
		t.Error("expected ribbon of a contribution that won nothing to be excluded")
	}
}

func TestResolve_ZeroVectorAlwaysActive(t *testing.T) {
	hair := contrib(0, 0, formats.SlotVector{}, att("head", "ciel.hair"))
	hat := contrib(1, 0, formats.SlotVector{9, 0, 0, 0, 0, 0, 0}, att("head", "ciel.hat"))
	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{hair, hat}}, nil)
	if got := activeMeshes(r); !equal(got, []string{"ciel.hair", "ciel.hat"}) {
		t.Errorf("expected zero vector entry to stay, got %v", got)
	}
	if r.Winners[ColHead].Owner != hat {
		t.Error("zero vector must not take a column")
	}
}

func TestResolve_Hands(t *testing.T) {
	tests := []struct {
		name       string
		hands      int
		bones      []string
		left, righ int
	}{
		{"bilateral", 2, []string{"l_hand", "r_hand"}, 2, 2},
		{"positive left", 1, []string{"l_hand"}, 1, 0},
		{"positive right", 1, []string{"r_hand"}, 0, 1},
		{"positive no hand bone", 1, []string{"body"}, 1, 1},
		{"left only", -3, []string{"l_hand"}, 3, 0},
		{"right only", -1, []string{"r_hand"}, 0, 1},
		{"undetermined", -1, []string{"body"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var atts []costume.MeshAttachment
			for _, b := range tt.bones {
				atts = append(atts, att(b, b+".mesh"))
			}
			c := contrib(0, 0, formats.SlotVector{0, 0, 0, tt.hands, 0, 0, 0}, atts...)
			cols := Columns(c, DefaultBoneSlots())
			if cols[ColHandL] != tt.left || cols[ColHandR] != tt.righ {
				t.Errorf("expected L=%d R=%d, got L=%d R=%d", tt.left, tt.righ, cols[ColHandL], cols[ColHandR])
			}
		})
	}
}

func TestResolve_GloveOnOneHand(t *testing.T) {
	base := contrib(0, 0, formats.SlotVector{0, 0, 0, 1, 0, 0, 0},
		att("l_hand", "base.l_hand"), att("r_hand", "base.r_hand"))
	glove := contrib(1, 0, formats.SlotVector{0, 0, 0, -2, 0, 0, 0}, att("l_hand", "glove"))

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{base, glove}}, nil)
	want := []string{"base.r_hand", "glove"}
	if got := activeMeshes(r); !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolve_SeparateHandEntries(t *testing.T) {
	left := contrib(0, 0, formats.SlotVector{0, 0, 0, 1, 0, 0, 0}, att("l_hand", "female.l_hand"))
	left.Connectors = []*formats.ConnectorBlock{{Source: "female:l_hand_vp"}}
	right := contrib(0, 1, formats.SlotVector{0, 0, 0, 1, 0, 0, 0}, att("r_hand", "female.r_hand"))

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{left, right}}, nil)
	want := []string{"female.l_hand", "female.r_hand"}
	if got := activeMeshes(r); !equal(got, want) {
		t.Errorf("expected both hands active, got %v", got)
	}
	if len(r.Excluded) != 0 {
		t.Errorf("expected nothing excluded, got %+v", r.Excluded)
	}
	if r.Winners[ColHandL].Owner != left || r.Winners[ColHandR].Owner != right {
		t.Errorf("expected each hand to hold its own column, got %+v", r.Winners)
	}
	if len(r.Connectors) != 1 {
		t.Errorf("expected the left hand connector kept, got %d", len(r.Connectors))
	}
}

func TestResolve_Connectors(t *testing.T) {
	cbBase := &formats.ConnectorBlock{Source: "ciel:body_vp"}
	cbTop := &formats.ConnectorBlock{Source: "ciel:blazer_vp"}
	cbHair := &formats.ConnectorBlock{Source: "ciel:hair_vp"}

	base := contrib(0, 0, formats.SlotVector{0, 1, 0, 0, 0, 0, 0}, att("body", "base"))
	base.Connectors = []*formats.ConnectorBlock{cbBase}
	top := contrib(1, 0, formats.SlotVector{0, 3, 0, 0, 0, 0, 0}, att("body", "top"))
	top.Connectors = []*formats.ConnectorBlock{cbTop, cbTop}
	hair := contrib(0, 1, formats.SlotVector{}, att("head", "hair"))
	hair.Connectors = []*formats.ConnectorBlock{cbHair}

	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{base, hair, top}}, nil)
	if len(r.Connectors) != 2 {
		t.Fatalf("expected 2 connectors, got %d", len(r.Connectors))
	}
	if r.Connectors[0].Block != cbHair || r.Connectors[1].Block != cbTop {
		t.Errorf("unexpected connectors %+v", r.Connectors)
	}
}

func TestResolve_Deduplicates(t *testing.T) {
	a := contrib(0, 0, formats.SlotVector{}, att("head", "ciel.hair"))
	b := contrib(0, 1, formats.SlotVector{}, att("head", "CIEL.HAIR"))
	r := Resolve(&costume.Layers{Contributions: []*costume.Contribution{a, b}}, nil)
	if len(r.Attachments) != 1 || r.Attachments[0].Owner != a {
		t.Errorf("expected one attachment from the first declaration, got %+v", r.Attachments)
	}
}

func TestResolve_StableUnderUnrelatedReordering(t *testing.T) {
	base := contrib(0, 0, formats.SlotVector{1, 1, 1, 1, 1, 1, 1},
		att("head", "b.head"), att("body", "b.body"), att("waist", "b.waist"), att("l_foot", "b.foot"))

	build := func(swap bool) []string {
		top := contrib(1, 0, formats.SlotVector{0, 2, 0, 0, 0, 0, 0}, att("body", "top"))
		shoes := contrib(2, 0, formats.SlotVector{0, 0, 0, 0, 0, 0, 3}, att("l_foot", "shoes"))
		if swap {
			top.Layer, shoes.Layer = 2, 1
		}
		return activeMeshes(Resolve(&costume.Layers{Contributions: []*costume.Contribution{base, top, shoes}}, nil))
	}

	if a, b := build(false), build(true); !equal(a, b) {
		t.Errorf("result changed when reordering unrelated layers: %v vs %v", a, b)
	}
}

func TestParseColumn(t *testing.T) {
	c, err := ParseColumn("Hand_L")
	if err != nil || c != ColHandL {
		t.Errorf("ParseColumn(Hand_L) = %v, %v", c, err)
	}
	if _, err := ParseColumn("tail"); err == nil {
		t.Error("expected error for unknown column")
	}
	if ColFeet.String() != "feet" || NoColumn.String() != "none" {
		t.Error("unexpected column names")
	}
}
