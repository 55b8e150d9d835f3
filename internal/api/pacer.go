package api

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Pacer delivers a session's messages one at a time, spaced by a fixed delay.
// Messages from later actions queue behind earlier ones.
type Pacer struct {
	clock quartz.Clock
	delay time.Duration
	send  func(Message)

	mu    sync.Mutex
	queue []Message
	timer *quartz.Timer
}

// NewPacer creates a pacer. A zero delay delivers messages immediately.
func NewPacer(clock quartz.Clock, delay time.Duration, send func(Message)) *Pacer {
	return &Pacer{clock: clock, delay: delay, send: send}
}

// Push queues messages for delivery
func (p *Pacer) Push(messages ...Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.delay <= 0 {
		for _, msg := range messages {
			p.send(msg)
		}
		return
	}

	p.queue = append(p.queue, messages...)
	if p.timer == nil && len(p.queue) > 0 {
		p.emit()
	}
}

// Pending returns the number of messages not yet delivered
func (p *Pacer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Stop drops anything still queued
func (p *Pacer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.queue = nil
}

// emit must be called with the lock held
func (p *Pacer) emit() {
	msg := p.queue[0]
	p.queue = p.queue[1:]
	p.send(msg)

	// keep the gap even when the queue is empty so the next push waits
	p.timer = p.clock.AfterFunc(p.delay, p.tick)
}

func (p *Pacer) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		p.timer = nil
		return
	}
	p.emit()
}
