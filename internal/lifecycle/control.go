package lifecycle

import "sync"

// Control is the enabled flag of the primary input control.
type Control struct {
	mu       sync.Mutex
	enabled  bool
	enables  int
	disables int
	onChange func(enabled bool)
}

// NewControl returns an enabled control. onChange, when set, observes every
// transition.
func NewControl(onChange func(enabled bool)) *Control {
	return &Control{enabled: true, onChange: onChange}
}

func (c *Control) Enable()  { c.set(true) }
func (c *Control) Disable() { c.set(false) }

func (c *Control) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Counts returns how many times the control was enabled and disabled.
func (c *Control) Counts() (enables, disables int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enables, c.disables
}

func (c *Control) set(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	if enabled {
		c.enables++
	} else {
		c.disables++
	}
	onChange := c.onChange
	c.mu.Unlock()
	if onChange != nil {
		onChange(enabled)
	}
}
