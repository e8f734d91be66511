package engine

import "github.com/roach88/puzzlebox/internal/ir"

// OnMouseDown records the button press. It reports whether an enabled
// push control lies under the cursor.
func (e *Engine) OnMouseDown(x, y int) bool {
	e.states.Set(ir.StateKeyLMouse, 1)
	_, ok := e.findControl(func(c ir.Control) bool {
		return c.Kind == ir.ControlPushToggle && c.Rect.Contains(x, y)
	})
	return ok
}

// OnMouseUp records the button release and activates the first enabled
// push control under the cursor, searching nodeview, room, world, then
// universe. It reports whether a control handled the click.
func (e *Engine) OnMouseUp(x, y int) bool {
	e.states.Set(ir.StateKeyLMouse, 0)
	c, ok := e.findControl(func(c ir.Control) bool {
		return c.Kind == ir.ControlPushToggle && c.Rect.Contains(x, y)
	})
	if !ok {
		return false
	}
	e.activate(c)
	return true
}

// OnMouseMove reports whether an enabled push control lies under the
// cursor, for cursor feedback.
func (e *Engine) OnMouseMove(x, y int) bool {
	_, ok := e.findControl(func(c ir.Control) bool {
		return c.Kind == ir.ControlPushToggle && c.Rect.Contains(x, y)
	})
	return ok
}

// OnKeyDown records the key code and activates the first enabled key
// binding for it.
func (e *Engine) OnKeyDown(code int) bool {
	e.states.Set(ir.StateKeyKeyPress, code)
	c, ok := e.findControl(func(c ir.Control) bool {
		return c.Kind == ir.ControlKeyBinding && c.KeyCode == code
	})
	if !ok {
		return false
	}
	e.activate(c)
	return true
}

// OnKeyUp clears the recorded key code.
func (e *Engine) OnKeyUp(code int) bool {
	if e.states.Get(ir.StateKeyKeyPress) == code {
		e.states.Set(ir.StateKeyKeyPress, 0)
	}
	return false
}

func (e *Engine) findControl(match func(ir.Control) bool) (ir.Control, bool) {
	for _, level := range scopeOrder {
		s := e.scopes[level]
		if s == nil {
			continue
		}
		for _, c := range s.controls {
			if e.states.Flag(c.Key)&ir.FlagDisabled != 0 {
				continue
			}
			if match(c) {
				return c, true
			}
		}
	}
	return ir.Control{}, false
}

func (e *Engine) activate(c ir.Control) {
	v := 1
	if c.Toggle && e.states.Get(c.Key) != 0 {
		v = 0
	}
	e.states.Set(c.Key, v)
	e.logger.Debug("control activated", "key", c.Key, "kind", c.Kind.String(), "value", v)
}
