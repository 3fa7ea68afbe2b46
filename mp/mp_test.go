package mp

import (
	"sync"
	"testing"
	"time"

	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/onboard"
	"github.com/hyglvy/project-azalea/proctable"
	"github.com/hyglvy/project-azalea/signal"
)

// fakeMADT replays a fixed descriptor list.
type fakeMADT struct {
	all []hal.Descriptor
	pos int
}

func (f *fakeMADT) Rewind() { f.pos = 0 }
func (f *fakeMADT) Next() (hal.Descriptor, bool) {
	if f.pos >= len(f.all) {
		return hal.Descriptor{}, false
	}
	d := f.all[f.pos]
	f.pos++
	return d, true
}

func lapic(id uint32) hal.Descriptor { return hal.Descriptor{Type: hal.LocalAPIC, ID: id} }

// fakeIC runs AP Onboarding on a goroutine when it sees a STARTUP IPI,
// the way a real AP would execute on its own core concurrently with the
// Boot Sequencer's poll on the BSP.
type fakeIC struct {
	local   uint32
	onStart func(hwID uint32)
}

func (f *fakeIC) InitGlobalControllers(int) {}
func (f *fakeIC) InitLocalController()      {}
func (f *fakeIC) LocalHardwareID() uint32   { return f.local }

func (f *fakeIC) SendIPI(hwID uint32, _ hal.Shorthand, kind hal.IPIKind, _ uint8, _ bool) {
	if kind == hal.IPIStartup && f.onStart != nil {
		f.onStart(hwID)
	}
}

type fakeTimer struct{ now hal.Ticks }

func (f *fakeTimer) Now() hal.Ticks                     { f.now++; return f.now }
func (f *fakeTimer) TicksFor(d time.Duration) hal.Ticks { return hal.Ticks(d) }
func (f *fakeTimer) BusyWait(d time.Duration)           { f.now += hal.Ticks(d) }

type fakeMem struct{}

func (fakeMem) Write(uintptr, []byte) error { return nil }

type fakeCPU struct{}

func (fakeCPU) InstallDescriptorTables(int) {}
func (fakeCPU) InitCPULocalFeatures(int)    {}

type fakeSched struct{}

func (fakeSched) AwaitReady(time.Duration) bool { return true }

func TestMPInitBringsUpAllAPsThenSignalWorks(t *testing.T) {
	madt := &fakeMADT{all: []hal.Descriptor{lapic(0), lapic(1), lapic(3), lapic(7)}}
	ic := &fakeIC{local: 0}
	var tbl *proctable.Table

	ic.onStart = func(hwID uint32) {
		kernelID := tbl.IndexByHWID(hwID)
		ob := &onboard.Onboarder{
			Table: tbl,
			CPU:   fakeCPU{},
			IC:    ic,
			Sched: fakeSched{},
		}
		go ob.Run(kernelID)
	}

	var dispatched []signal.Message
	var mu sync.Mutex

	c := MPInit(Deps{
		MADT:            madt,
		IC:              ic,
		Timer:           &fakeTimer{},
		Mem:             fakeMem{},
		CPU:             fakeCPU{},
		Sched:           fakeSched{},
		OnTopologyReady: func(t *proctable.Table) { tbl = t },
		Handler: func(msg signal.Message) {
			mu.Lock()
			dispatched = append(dispatched, msg)
			mu.Unlock()
		},
	})

	if got, want := c.ProcessorCount(), 4; got != want {
		t.Fatalf("ProcessorCount() = %d, want %d", got, want)
	}
	for i := 0; i < 4; i++ {
		if !c.Table().Get(i).Running() {
			t.Errorf("kernel_id %d not running after MPInit", i)
		}
	}

	done := make(chan struct{})
	go func() {
		c.Signal(2, signal.MsgSuspend)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.OnSignalReceived(2) {
			break
		}
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 1 || dispatched[0] != signal.MsgSuspend {
		t.Fatalf("dispatched = %v, want [SUSPEND]", dispatched)
	}
}

func TestSignalAndOnSignalReceivedRoundTripThroughCore(t *testing.T) {
	madt := &fakeMADT{all: []hal.Descriptor{lapic(0)}}
	ic := &fakeIC{local: 0}

	var dispatched []signal.Message
	var mu sync.Mutex

	c := MPInit(Deps{
		MADT:  madt,
		IC:    ic,
		Timer: &fakeTimer{},
		Mem:   fakeMem{},
		CPU:   fakeCPU{},
		Sched: fakeSched{},
		Handler: func(msg signal.Message) {
			mu.Lock()
			dispatched = append(dispatched, msg)
			mu.Unlock()
		},
	})

	if got, want := c.ThisProcessorID(), 0; got != want {
		t.Fatalf("ThisProcessorID() = %d, want %d", got, want)
	}

	done := make(chan struct{})
	go func() {
		c.Signal(0, signal.MsgReloadTLB)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.OnSignalReceived(0) {
			break
		}
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 1 || dispatched[0] != signal.MsgReloadTLB {
		t.Fatalf("dispatched = %v, want [RELOAD_TLB]", dispatched)
	}
}
