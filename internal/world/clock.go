// Package world runs the simulation loop: a speed-adjustable clock
// drives need decay, action completion, decision heartbeats and the
// periodic maintenance passes.
package world

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ClockListener receives world tick events.
type ClockListener interface {
	OnTick(worldTime time.Time)
}

// Clock drives the simulation with a configurable tick interval and time
// speed multiplier. World time advances interval*speed per tick.
type Clock struct {
	speed     float64
	interval  time.Duration
	listeners []ClockListener
	worldTime time.Time
	ticks     uint64
	running   bool
	mu        sync.RWMutex
	cancel    context.CancelFunc
	logger    *zap.Logger
}

// NewClock creates a clock with the given tick interval and speed
// multiplier. Speed 1.0 is realtime.
func NewClock(interval time.Duration, speed float64, logger *zap.Logger) *Clock {
	return &Clock{
		speed:     speed,
		interval:  interval,
		worldTime: time.Now(),
		logger:    logger,
	}
}

// AddListener registers a tick listener.
func (c *Clock) AddListener(l ClockListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// WorldTime returns the current simulated time.
func (c *Clock) WorldTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.worldTime
}

// Ticks returns how many ticks have fired since start.
func (c *Clock) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// Speed returns the current time multiplier.
func (c *Clock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// SetSpeed changes the time multiplier.
func (c *Clock) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
}

// Running reports whether the tick loop is active.
func (c *Clock) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Start begins the tick loop in a background goroutine.
func (c *Clock) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	go c.loop(ctx)
	c.logger.Info("world clock started",
		zap.Duration("interval", c.interval),
		zap.Float64("speed", c.speed))
}

// Stop halts the tick loop.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		c.logger.Info("world clock stopped")
	}
}

func (c *Clock) loop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// Tick advances world time by one interval and notifies listeners.
// Exported so tests can step the world without the ticker.
func (c *Clock) Tick() { c.tick() }

func (c *Clock) tick() {
	c.mu.Lock()
	c.worldTime = c.worldTime.Add(time.Duration(float64(c.interval) * c.speed))
	c.ticks++
	wt := c.worldTime
	listeners := make([]ClockListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnTick(wt)
	}
}
