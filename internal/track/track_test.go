package track_test

import (
	"testing"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/expr"
	"github.com/medusa-project/medusa/internal/track"
)

type fakeCpu struct{}

func (fakeCpu) RegisterName(id uint32) string { return "r0" }
func (fakeCpu) RegisterWidth(uint32) int      { return 32 }

func TestTrackStampsIdentifiersInAssignRHS(t *testing.T) {
	ctx := track.NewContext()
	at := addr.New(0x1000)

	assign := &expr.Assign{
		Dst: &expr.Id{RegID: 0, Info: fakeCpu{}},
		Src: &expr.Op{Type: expr.OpAdd, Lhs: &expr.Id{RegID: 1, Info: fakeCpu{}}, Rhs: expr.NewConst(32, 1, false)},
	}

	result := track.New(ctx, at).Apply(assign).(*expr.Assign)

	op := result.Src.(*expr.Op)

	tid, ok := op.Lhs.(*expr.TrackedId)
	if !ok {
		t.Fatalf("expected Lhs to become a TrackedId, got %T", op.Lhs)
	}

	if tid.RegID != 1 {
		t.Fatalf("got regid %d, want 1", tid.RegID)
	}

	if last, ok := ctx.LastDef(0); !ok || !last.Equal(at) {
		t.Fatalf("got %v ok=%v", last, ok)
	}
}

func TestBackTrackFollowsDefUseChainUpstream(t *testing.T) {
	defSite := addr.New(0x1000)
	ctx := track.NewBackTrackContext(2, defSite)

	// r2 <- r1   (defined earlier at 0x0ff0, tracked from there)
	upstreamDef := addr.New(0x0ff0)
	assign := &expr.Assign{
		Dst: &expr.TrackedId{RegID: 2, DefAddr: defSite},
		Src: &expr.TrackedId{RegID: 1, DefAddr: upstreamDef},
	}

	if !track.Reaches(ctx, assign) {
		t.Fatal("expected a hit on the tracked destination")
	}

	if !ctx.Has(1, upstreamDef) {
		t.Fatal("expected BackTrack to add r1@0x0ff0 as a new interest")
	}
}

func TestBackTrackMisses(t *testing.T) {
	ctx := track.NewBackTrackContext(9, addr.New(0x1000))

	other := &expr.TrackedId{RegID: 3, DefAddr: addr.New(0x2000)}
	if track.Reaches(ctx, other) {
		t.Fatal("expected no hit for an unrelated tracked id")
	}
}
