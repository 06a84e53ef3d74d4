package navigator

import (
	"sync"
	"time"
)

type phaseKind int

const (
	phaseStart phaseKind = iota
	phaseProgress
	phaseEnd
)

func (k phaseKind) String() string {
	switch k {
	case phaseStart:
		return "start"
	case phaseProgress:
		return "progress"
	default:
		return "end"
	}
}

// phaseSignal is the completion signal of one running phase. It fires once,
// either when its timer elapses or when it is completed early.
type phaseSignal struct {
	kind     phaseKind
	done     chan struct{}
	once     sync.Once
	onFinish func(*phaseSignal)
}

func newPhaseSignal(kind phaseKind, onFinish func(*phaseSignal)) *phaseSignal {
	return &phaseSignal{
		kind:     kind,
		done:     make(chan struct{}),
		onFinish: onFinish,
	}
}

func (p *phaseSignal) Done() <-chan struct{} {
	return p.done
}

// finishAfter completes the phase after d; a non-positive d completes it on
// the next tick.
func (p *phaseSignal) finishAfter(d time.Duration) {
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, p.finish)
}

func (p *phaseSignal) finish() {
	p.once.Do(func() {
		if p.onFinish != nil {
			p.onFinish(p)
		}
		close(p.done)
	})
}

func (p *phaseSignal) finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
