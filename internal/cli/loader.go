package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/loadplan/internal/compiler"
	"github.com/roach88/loadplan/internal/fetch"
	"github.com/roach88/loadplan/internal/ir"
	"github.com/roach88/loadplan/internal/store"
)

// CLI error codes. Mapping load codes (E001-E009) come from the compiler
// package; validation codes (E2xx) from compiler.Validate.
const (
	ErrCodePlanFailed    = "E010" // Load plan build failed
	ErrCodeJournal       = "E011" // Journal open/read/write error
	ErrCodeInvalidFlag   = "E012" // Invalid flag value
	ErrCodeBuildNotFound = "E013" // Build id not in the journal
	ErrCodeConfig        = "E014" // Config file or value invalid
	ErrCodeTestFailed    = "E015" // One or more scenarios failed
)

// loadMappings loads a mappings directory. Failures are always returned as
// a coded *compiler.LoadError.
func loadMappings(dir string) (*compiler.LoadResult, *compiler.LoadError) {
	result, err := compiler.LoadMappings(dir)
	if err == nil {
		return result, nil
	}
	if loadErr, ok := compiler.IsLoadError(err); ok {
		return nil, loadErr
	}
	return nil, &compiler.LoadError{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}

// parseOverrides parses --override values of the form path=style[:size]
// into fetch options.
func parseOverrides(values []string, opts fetch.Options) (fetch.Options, error) {
	for _, value := range values {
		pathText, strategyText, ok := strings.Cut(value, "=")
		if !ok {
			return opts, fmt.Errorf("invalid override %q: expected path=style[:size]", value)
		}
		path := ir.ParsePropertyPath(pathText)
		if path.IsRoot() {
			return opts, fmt.Errorf("invalid override %q: path is required", value)
		}
		strategy, err := ir.ParseFetchStrategy(strategyText)
		if err != nil {
			return opts, fmt.Errorf("invalid override %q: %w", value, err)
		}
		opts = opts.Override(path, strategy)
	}
	return opts, nil
}

// parseUIDs parses --uid values of the form path=uid. The root path is
// written as an empty path ("=order").
func parseUIDs(values []string) (map[ir.PropertyPath]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	uids := make(map[ir.PropertyPath]string, len(values))
	for _, value := range values {
		pathText, uid, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(uid) == "" {
			return nil, fmt.Errorf("invalid uid %q: expected path=uid", value)
		}
		uids[ir.ParsePropertyPath(pathText)] = strings.TrimSpace(uid)
	}
	return uids, nil
}

// openExistingJournal opens a journal that must already exist. Opening a
// missing path would silently create an empty database.
func openExistingJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal not found: %s", path)
	}
	return store.Open(path)
}
