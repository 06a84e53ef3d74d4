package navigator

import (
	"sync"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/browser"
)

// beginPhase makes a new phase the running one.
func (c *Controller) beginPhase(kind phaseKind) *phaseSignal {
	p := newPhaseSignal(kind, c.onPhaseEnd)
	c.mu.Lock()
	c.activePhase = p
	c.mu.Unlock()
	return p
}

// onPhaseEnd resets the animation counter and fires the one-shot listeners
// registered for the next phase completion. A phase that a newer one has
// replaced ends silently: the counter and listeners belong to the newer one.
func (c *Controller) onPhaseEnd(p *phaseSignal) {
	c.mu.Lock()
	if c.activePhase != p {
		c.mu.Unlock()
		return
	}
	c.activePhase = nil
	c.animationCount = 0
	listeners := c.phaseListeners
	c.phaseListeners = nil
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *Controller) onNextPhaseEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phaseListeners = append(c.phaseListeners, fn)
}

// ToggleAnimationClass restarts CSS animations keyed on the container's
// classes: className is added, every class is removed and then restored on
// the next tick, and className is dropped again when the next phase
// completes.
func (c *Controller) ToggleAnimationClass(className string) {
	c.container.AddClass(className)
	classes := c.container.Classes()
	c.container.RemoveClass()

	var mu sync.Mutex
	restored := false
	ended := false

	c.onNextPhaseEnd(func() {
		mu.Lock()
		defer mu.Unlock()
		ended = true
		if restored {
			c.container.RemoveClass(className)
		}
	})

	time.AfterFunc(0, func() {
		mu.Lock()
		defer mu.Unlock()
		restored = true
		for _, cls := range classes {
			if ended && cls == className {
				continue
			}
			c.container.AddClass(cls)
		}
	})
}

// DispatchAnimation counts animations running inside the container. When the
// last started animation ends the counter resets and, with
// AdvanceOnAnimationEnd, the running phase completes early. Events outside
// the container are ignored and reported as unhandled.
func (c *Controller) DispatchAnimation(event browser.AnimationEvent) bool {
	if !c.container.Contains(event.Target) {
		return false
	}

	c.mu.Lock()
	switch event.Kind {
	case browser.AnimationStart:
		c.animationCount++
		c.mu.Unlock()
		return true
	case browser.AnimationEnd:
		// an end without a matching start is ignored
		if c.animationCount == 0 {
			c.mu.Unlock()
			return true
		}
		c.animationCount--
		if c.animationCount != 0 {
			c.mu.Unlock()
			return true
		}
	default:
		c.mu.Unlock()
		return false
	}

	phase := c.activePhase
	c.mu.Unlock()

	if c.options.AdvanceOnAnimationEnd && phase != nil {
		phase.finish()
	}
	return true
}

// PendingAnimations is the number of animations started and not yet ended
// since the last phase completion.
func (c *Controller) PendingAnimations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.animationCount
}
