package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
)

// ErrScriptNotFound is returned by a ScriptSource that has no script for a
// scope. A scope without a script loads empty.
var ErrScriptNotFound = errors.New("script not found")

// ScriptSource supplies the compiled script of a scope by source name:
// "universe", a world letter, a two-letter room or a four-letter node-view.
type ScriptSource interface {
	Load(name string) (*ir.Script, error)
}

// MapSource serves scripts from memory.
type MapSource map[string]*ir.Script

// Load returns the script registered under name.
func (m MapSource) Load(name string) (*ir.Script, error) {
	s, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrScriptNotFound)
	}
	return s, nil
}
