package dialect

import (
	"sort"
	"sync"

	"github.com/lockplane/migrator/internal/migerr"
)

// registry is process-wide state keyed by driverName (e.g. "pg", "sqlite3",
// "libsql", "mysql"), with a parallel dialect-default table so a caller who
// only knows the dialect ("postgresql") still resolves to something usable.
type registry struct {
	mu            sync.RWMutex
	byDriverName  map[string]Driver
	dialectDefault map[Name]string // dialect -> driverName to use when none is specified
}

var global = &registry{
	byDriverName:   make(map[string]Driver),
	dialectDefault: make(map[Name]string),
}

// Register adds a driver under driverName. If asDefault is true, it also
// becomes the fallback for its dialect when callers look up by dialect
// alone.
func Register(driverName string, d Driver, asDefault bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.byDriverName[driverName] = d
	if asDefault {
		global.dialectDefault[d.Dialect()] = driverName
	}
}

// Lookup resolves driverName first; if empty or unknown, falls back to the
// registered default for dialect. Fails with DriverNotSupportedError if
// neither resolves.
func Lookup(driverName string, dialect Name) (Driver, error) {
	global.mu.RLock()
	defer global.mu.RUnlock()

	if driverName != "" {
		if d, ok := global.byDriverName[driverName]; ok {
			return d, nil
		}
	}
	if def, ok := global.dialectDefault[dialect]; ok {
		if d, ok := global.byDriverName[def]; ok {
			return d, nil
		}
	}
	return nil, migerr.DriverNotSupportedf("no driver registered for driverName=%q dialect=%q", driverName, dialect)
}

// Names returns every registered driverName, sorted, for diagnostics.
func Names() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	names := make([]string, 0, len(global.byDriverName))
	for n := range global.byDriverName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
