package onboard

import (
	"testing"
	"time"

	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

type fakeCPU struct {
	order *[]string
}

func (f *fakeCPU) InstallDescriptorTables(int) { *f.order = append(*f.order, "tables") }
func (f *fakeCPU) InitCPULocalFeatures(int)    { *f.order = append(*f.order, "features") }

type fakeIC struct {
	order *[]string
}

func (f *fakeIC) InitGlobalControllers(int) {}
func (f *fakeIC) InitLocalController()      { *f.order = append(*f.order, "local-ic") }
func (f *fakeIC) LocalHardwareID() uint32   { return 0 }
func (f *fakeIC) SendIPI(uint32, hal.Shorthand, hal.IPIKind, uint8, bool) {}

type fakeSched struct {
	ready bool
}

func (f *fakeSched) AwaitReady(time.Duration) bool { return f.ready }

func TestRunOrdersInitBeforePublishingRunning(t *testing.T) {
	tbl := proctable.New([]uint32{0, 1})
	var order []string

	o := &Onboarder{
		Table: tbl,
		CPU:   &fakeCPU{order: &order},
		IC:    &fakeIC{order: &order},
		Sched: &fakeSched{ready: true},
		Cfg:   bootcfg.Default(),
		ZeroPerCPUState: func(int) {
			order = append(order, "zero")
		},
	}

	if tbl.Get(1).Running() {
		t.Fatalf("record 1 running before onboarding")
	}

	o.Run(1)

	want := []string{"zero", "tables", "features", "local-ic"}
	if len(order) != len(want) {
		t.Fatalf("init order = %v, want %v", order, want)
	}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("init order = %v, want %v", order, want)
		}
	}
	if !tbl.Get(1).Running() {
		t.Fatalf("record 1 not running after onboarding")
	}
}

func TestRunPanicsWhenSchedulerNeverArrives(t *testing.T) {
	tbl := proctable.New([]uint32{0, 1})
	o := &Onboarder{
		Table: tbl,
		CPU:   &fakeCPU{order: &[]string{}},
		IC:    &fakeIC{order: &[]string{}},
		Sched: &fakeSched{ready: false},
		Cfg:   bootcfg.Default(),
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when scheduler never arrives")
		}
	}()
	o.Run(1)
}
