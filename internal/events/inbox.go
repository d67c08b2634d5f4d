package events

import "sync"

// inbox queues envelopes for one receiver without bound and feeds them to out
// in arrival order. A slow receiver delays delivery; nothing is dropped.
type inbox struct {
	out chan []byte

	mu      sync.Mutex
	pending [][]byte
	ready   chan struct{} // cap 1
	quit    chan struct{}
	once    sync.Once
}

func newInbox() *inbox {
	ib := &inbox{
		out:   make(chan []byte, 64),
		ready: make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}
	go ib.pump()
	return ib
}

// push queues data. It never blocks.
func (ib *inbox) push(data []byte) {
	ib.mu.Lock()
	select {
	case <-ib.quit:
		ib.mu.Unlock()
		return
	default:
	}
	ib.pending = append(ib.pending, data)
	ib.mu.Unlock()

	select {
	case ib.ready <- struct{}{}:
	default:
	}
}

// close discards anything still queued and closes out once the pump exits.
func (ib *inbox) close() {
	ib.once.Do(func() {
		ib.mu.Lock()
		close(ib.quit)
		ib.pending = nil
		ib.mu.Unlock()
	})
}

func (ib *inbox) pump() {
	defer close(ib.out)
	for {
		select {
		case <-ib.quit:
			return
		case <-ib.ready:
		}
		for {
			ib.mu.Lock()
			batch := ib.pending
			ib.pending = nil
			ib.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, data := range batch {
				select {
				case ib.out <- data:
				case <-ib.quit:
					return
				}
			}
		}
	}
}
