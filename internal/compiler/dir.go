package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/puzzlebox/internal/engine"
	"github.com/roach88/puzzlebox/internal/ir"
)

// ScriptExt is the file extension of scene scripts.
const ScriptExt = ".cue"

// Dir is a script source backed by a directory of CUE files, one per scope:
// universe.cue, g.cue, gj.cue, gary.cue and so on. Compiled scripts are
// cached; callers must not mutate them.
type Dir struct {
	root string

	mu    sync.Mutex
	ctx   *cue.Context
	cache map[string]*ir.Script
}

var _ engine.ScriptSource = (*Dir)(nil)

// NewDir returns a source reading scripts under root.
func NewDir(root string) *Dir {
	return &Dir{
		root:  root,
		ctx:   cuecontext.New(),
		cache: make(map[string]*ir.Script),
	}
}

// Root returns the directory scripts are read from.
func (d *Dir) Root() string {
	return d.root
}

// Load compiles <root>/<name>.cue. A missing file wraps
// engine.ErrScriptNotFound so the engine loads an empty scope.
func (d *Dir) Load(name string) (*ir.Script, error) {
	name = ir.NormalizeName(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.cache[name]; ok {
		return s, nil
	}

	path := filepath.Join(d.root, name+ScriptExt)
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, engine.ErrScriptNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	script, err := CompileScript(name, d.ctx.CompileBytes(src, cue.Filename(path)))
	if err != nil {
		return nil, fmt.Errorf("compile script %s: %w", path, err)
	}
	d.cache[name] = script
	return script, nil
}

// Names lists the scripts present in the directory, sorted.
func (d *Dir) Names() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ScriptExt) {
			continue
		}
		names = append(names, ir.NormalizeName(strings.TrimSuffix(e.Name(), ScriptExt)))
	}
	sort.Strings(names)
	return names, nil
}
