// Package signal implements the one-to-one, serialised request/acknowledge
// channel between processors built on a payload-less NMI. The message
// itself travels in plain memory; the NMI only tells the target to look
// at it, and an atomic state field carries the handshake. A sender that
// doesn't wait for its target's slot to be idle before sending risks a
// lost acknowledgment hanging it forever, so Signal enforces that order
// itself.
package signal

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
)

// Message is a closed enum of the things a target can be asked to do.
type Message int

const (
	MsgNone Message = iota
	MsgSuspend
	MsgResume
	MsgReloadTLB
)

func (m Message) String() string {
	switch m {
	case MsgNone:
		return "NONE"
	case MsgSuspend:
		return "SUSPEND"
	case MsgResume:
		return "RESUME"
	case MsgReloadTLB:
		return "RELOAD_TLB"
	default:
		return "UNKNOWN"
	}
}

type state int32

const (
	stateIdle state = iota
	statePosted
	stateAcked
)

// slot is one target's mailbox. pendingMsg is plain memory, made safe by
// release/acquire ordering on state.
type slot struct {
	sendLock   sync.Mutex
	state      atomic.Int32
	pendingMsg Message
}

// Handler dispatches a received message on the target processor. The
// slot carries no sender identity, only the message.
type Handler func(msg Message)

// Channel is the N-slot signalling fabric, one slot per target processor.
// Senders targeting different processors never contend; senders
// targeting the same processor serialise on that processor's slot.
type Channel struct {
	ic      hal.InterruptController
	targets []uint32 // hw_id by kernel_id, for NMI delivery
	slots   []*slot
	handler Handler
}

// New builds a Channel with one slot per processor. targetHWIDs must be
// indexed by kernel_id, the way proctable.Table is.
func New(ic hal.InterruptController, targetHWIDs []uint32, handler Handler) *Channel {
	slots := make([]*slot, len(targetHWIDs))
	for i := range slots {
		slots[i] = &slot{}
	}
	return &Channel{ic: ic, targets: targetHWIDs, slots: slots, handler: handler}
}

// Signal delivers msg to kernelID and blocks until the target has
// acknowledged it. Concurrent callers targeting the same kernelID are
// serialised by that target's sendLock.
func (c *Channel) Signal(kernelID int, msg Message) {
	s := c.slots[kernelID]

	s.sendLock.Lock()
	defer s.sendLock.Unlock()

	if state(s.state.Load()) != stateIdle {
		bootlog.Fatalf("signal: slot %d not idle on send (state=%d) — invariant violated", kernelID, s.state.Load())
	}

	s.pendingMsg = msg
	s.state.Store(int32(statePosted)) // release: publishes pendingMsg

	c.ic.SendIPI(c.targets[kernelID], hal.ShorthandNone, hal.IPINMI, 0, true)

	for state(s.state.Load()) != stateAcked { // acquire
		runtime.Gosched()
	}

	s.state.Store(int32(stateIdle))
}

// OnReceived is the NMI-handler hook for this channel, called by the
// architecture NMI dispatcher on the target processor after NMI-vs-other
// discrimination. It returns false if the NMI was not one of ours, so
// the caller can forward it to the generic NMI handler for genuine
// hardware NMIs.
func (c *Channel) OnReceived(kernelID int) bool {
	s := c.slots[kernelID]

	if state(s.state.Load()) != statePosted { // acquire
		return false
	}

	msg := s.pendingMsg
	if c.handler != nil {
		c.handler(msg)
	}

	s.state.Store(int32(stateAcked)) // release
	return true
}
