package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/puzzlebox/internal/compiler"
	"github.com/roach88/puzzlebox/internal/ir"
)

// LoadMode controls how errors are handled during script loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the scripts compiled from a directory.
type LoadResult struct {
	Scripts   []*ir.Script
	Source    *compiler.Dir // Serves the same compiled scripts to an engine
	FileCount int           // Number of script files found
}

// LoadError represents an error that occurred during script loading.
type LoadError struct {
	Code    string
	Script  string // Script name, empty for directory errors
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Script != "" {
		return fmt.Sprintf("%s: %s: %s", e.Script, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadScripts compiles every scene script in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadScripts(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scripts directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scripts directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	source := compiler.NewDir(dir)
	names, err := source.Names()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(names) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	result := &LoadResult{
		Source:    source,
		FileCount: len(names),
	}

	for _, name := range names {
		script, err := source.Load(name)
		if err != nil {
			errs = append(errs, convertCompileError(err, name))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Scripts = append(result.Scripts, script)
	}

	return result, errs
}

// ScopeForName reports which scope level loads a script name: "universe",
// a world letter, a two-letter room or a four-letter node-view.
func ScopeForName(name string) (ir.ScopeLevel, bool) {
	switch {
	case name == "universe":
		return ir.ScopeUniverse, true
	case len(name) == 1:
		return ir.ScopeWorld, true
	case len(name) == 2:
		return ir.ScopeRoom, true
	case len(name) == 4:
		return ir.ScopeNodeView, true
	}
	return 0, false
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, script string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Script:  script,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Script:  script,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // Config or save load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error

	// Script compile errors
	ErrCodeInvalidPuzzle   = "E010" // Bad puzzle key or flags
	ErrCodeInvalidCriteria = "E011" // Bad criteria group or entry
	ErrCodeInvalidResult   = "E012" // Unknown or malformed result
	ErrCodeInvalidControl  = "E013" // Bad control definition
	ErrCodeUnknownScope    = "E014" // File name no scope loads
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields look like "puzzles[0].results[1].assign.value".
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.Contains(field, ".results"):
		return ErrCodeInvalidResult
	case strings.Contains(field, ".criteria"):
		return ErrCodeInvalidCriteria
	case strings.HasPrefix(field, "puzzles"):
		return ErrCodeInvalidPuzzle
	case strings.HasPrefix(field, "controls"):
		return ErrCodeInvalidControl
	default:
		return ErrCodeGeneric
	}
}
