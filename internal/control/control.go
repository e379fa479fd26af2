// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package control provides the operator pause/resume channel for
// long-running pipelines. The pipeline checks the controller at its
// suspension points; the operator toggles it by typing "p" on the watched
// stream. The controller is decoupled from any particular console so tests
// can drive it directly.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Controller gates pipeline progress on an operator pause toggle.
type Controller struct {
	mu     sync.Mutex
	paused bool
	gate   chan struct{} // closed while running, open while paused

	// onResume runs synchronously when a pause is lifted. The harvester
	// uses it to reload the API key ring from its source.
	onResume func() error
}

// New builds a controller in the running state. onResume may be nil.
func New(onResume func() error) *Controller {
	gate := make(chan struct{})
	close(gate)
	return &Controller{gate: gate, onResume: onResume}
}

// Toggle flips between paused and running. Lifting a pause fires the
// resume hook before unblocking waiters; a hook failure is returned but
// the controller still resumes, so a bad key reload cannot wedge the run.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		c.paused = true
		c.gate = make(chan struct{})
		return nil
	}

	var err error
	if c.onResume != nil {
		err = c.onResume()
	}
	c.paused = false
	close(c.gate)
	return err
}

// Paused reports the current state.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Wait blocks while the controller is paused. It returns ctx.Err() if the
// context ends first.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch reads lines from r until EOF, toggling on "p" or "P". Status and
// hook errors go to w. Run it in its own goroutine with the process stdin.
func (c *Controller) Watch(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.EqualFold(line, "p") {
			continue
		}
		if err := c.Toggle(); err != nil {
			fmt.Fprintf(w, "warning: resume hook failed: %v\n", err)
		}
		if c.Paused() {
			fmt.Fprintln(w, "paused; add new API keys to .env and press 'p' to resume")
		} else {
			fmt.Fprintln(w, "resumed; API keys reloaded")
		}
	}
}
