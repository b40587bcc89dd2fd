package stream

import (
	"context"
	"sync"
	"time"
)

// opusBuffer is a bounded ring of encoded packets between the producer and
// the paced sender.
type opusBuffer struct {
	mu       sync.Mutex
	packets  []bufferedPacket
	maxSize  int
	readPos  int
	writePos int
	closed   bool
	eos      bool
	notEmpty *sync.Cond
}

type bufferedPacket struct {
	data []byte
	// offset from the start of the play session
	offset time.Duration
}

func newOpusBuffer(maxPackets int) *opusBuffer {
	ob := &opusBuffer{
		packets: make([]bufferedPacket, maxPackets),
		maxSize: maxPackets,
	}
	ob.notEmpty = sync.NewCond(&ob.mu)
	return ob
}

func (ob *opusBuffer) usedLocked() int {
	return (ob.writePos - ob.readPos + ob.maxSize) % ob.maxSize
}

// Push reports false when the buffer is full or closed.
func (ob *opusBuffer) Push(data []byte, offset time.Duration) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.closed || ob.eos {
		return false
	}
	if ob.usedLocked() >= ob.maxSize-1 {
		return false
	}

	ob.packets[ob.writePos] = bufferedPacket{
		data:   append([]byte(nil), data...),
		offset: offset,
	}
	ob.writePos = (ob.writePos + 1) % ob.maxSize
	ob.notEmpty.Signal()
	return true
}

// Pop blocks until a packet is available. It returns false once the buffer
// is closed, or drained after MarkEOS.
func (ob *opusBuffer) Pop(ctx context.Context) (bufferedPacket, bool) {
	stop := context.AfterFunc(ctx, ob.Close)
	defer stop()

	ob.mu.Lock()
	defer ob.mu.Unlock()

	for {
		if ob.closed {
			return bufferedPacket{}, false
		}
		if ob.usedLocked() > 0 {
			pkt := ob.packets[ob.readPos]
			ob.packets[ob.readPos] = bufferedPacket{}
			ob.readPos = (ob.readPos + 1) % ob.maxSize
			return pkt, true
		}
		if ob.eos {
			return bufferedPacket{}, false
		}
		ob.notEmpty.Wait()
	}
}

func (ob *opusBuffer) BufferedCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.usedLocked()
}

func (ob *opusBuffer) Ended() bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.eos || ob.closed
}

func (ob *opusBuffer) MarkEOS() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.eos = true
	ob.notEmpty.Broadcast()
}

func (ob *opusBuffer) Close() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.closed = true
	ob.notEmpty.Broadcast()
}
