// Package input buffers player input between whatever produces it and the
// frame loop. Continuous stick values are sampled each frame; edge-triggered
// actions are queued and consumed exactly once.
package input

import (
	"sync"

	"github.com/skywatch/saucerdefense/internal/flight"
)

// Action is an edge-triggered command.
type Action int

const (
	Shoot Action = iota
	ToggleCamera
	TogglePause
)

func (a Action) String() string {
	switch a {
	case Shoot:
		return "shoot"
	case ToggleCamera:
		return "toggle_camera"
	case TogglePause:
		return "toggle_pause"
	}
	return "unknown"
}

// Controller is safe for a producer goroutine and the frame loop to share.
type Controller struct {
	mu       sync.Mutex
	controls flight.Controls
	actions  []Action
}

// NewController creates a controller with neutral controls.
func NewController() *Controller {
	return &Controller{
		actions: make([]Action, 0),
	}
}

// SetControls replaces the continuous input.
func (c *Controller) SetControls(ctl flight.Controls) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = ctl
}

// Controls returns the current continuous input.
func (c *Controller) Controls() flight.Controls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls
}

// Push queues actions.
func (c *Controller) Push(actions ...Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, actions...)
}

// Pending returns the number of queued actions.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}

// Drain returns every queued action in push order and clears the queue.
func (c *Controller) Drain() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.actions
	c.actions = make([]Action, 0, cap(c.actions))
	return result
}
