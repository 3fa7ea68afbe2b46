package selfid

import (
	"testing"

	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

type fakeIC struct{ hwID uint32 }

func (f *fakeIC) InitGlobalControllers(int)                                            {}
func (f *fakeIC) InitLocalController()                                                 {}
func (f *fakeIC) LocalHardwareID() uint32                                              { return f.hwID }
func (f *fakeIC) SendIPI(uint32, hal.Shorthand, hal.IPIKind, uint8, bool) {}

func TestThisProcessorIDBeforeEnumerationIsZero(t *testing.T) {
	r := &Resolver{Table: nil, IC: &fakeIC{hwID: 99}}
	if got := r.ThisProcessorID(); got != 0 {
		t.Errorf("ThisProcessorID() = %d, want 0 before enumeration", got)
	}
}

func TestThisProcessorIDMatchesHWID(t *testing.T) {
	tbl := proctable.New([]uint32{0, 1, 3, 7})
	for want, hw := range []uint32{0, 1, 3, 7} {
		r := &Resolver{Table: tbl, IC: &fakeIC{hwID: hw}}
		if got := r.ThisProcessorID(); got != want {
			t.Errorf("ThisProcessorID() for hw %#x = %d, want %d", hw, got, want)
		}
	}
}

func TestThisProcessorIDUnknownHWIDIsFatal(t *testing.T) {
	tbl := proctable.New([]uint32{0, 1})
	r := &Resolver{Table: tbl, IC: &fakeIC{hwID: 42}}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for an hw_id not in the table")
		}
	}()
	r.ThisProcessorID()
}
