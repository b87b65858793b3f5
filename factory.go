package blobpath

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DriverFactory builds a Backend from the client params configured for its
// scheme.
type DriverFactory func(params ClientParams) (Backend, error)

var (
	driverFactories = make(map[string]DriverFactory)
	factoryMutex    sync.RWMutex
)

const modulePath = "github.com/gobeaver/blobpath"

// knownDrivers maps every built-in scheme to the package whose init
// registers it, so a lookup for an unlinked driver can say what to import.
var knownDrivers = map[string]string{
	"fs":    modulePath + "/driver/local",
	"mem":   modulePath + "/driver/memory",
	"s3":    modulePath + "/driver/s3",
	"gs":    modulePath + "/driver/gcs",
	"azure": modulePath + "/driver/azure",
	"minio": modulePath + "/driver/minio",
	"sftp":  modulePath + "/driver/sftp",
}

// RegisterDriver registers a driver factory for a scheme. Driver packages
// call it from init.
func RegisterDriver(scheme string, factory DriverFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	driverFactories[strings.ToLower(scheme)] = factory
}

// Drivers returns the sorted schemes with a registered driver.
func Drivers() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	out := make([]string, 0, len(driverFactories))
	for s := range driverFactories {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// CreateDriver builds a backend for scheme using the registered driver.
// The read_only param wraps the result in a read-only decorator.
func CreateDriver(scheme string, params ClientParams) (Backend, error) {
	scheme = strings.ToLower(scheme)
	factoryMutex.RLock()
	factory, exists := driverFactories[scheme]
	factoryMutex.RUnlock()

	if !exists {
		return nil, missingDriver(scheme)
	}
	return buildBackend(scheme, factory, params)
}

func buildBackend(scheme string, factory DriverFactory, params ClientParams) (Backend, error) {
	b, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("create %s driver: %w", scheme, err)
	}
	if params.ReadOnly() {
		b = NewReadOnly(b)
	}
	return b, nil
}

func missingDriver(scheme string) error {
	if pkg, ok := knownDrivers[scheme]; ok {
		return &MissingDependencyError{Scheme: scheme, Package: pkg}
	}
	return fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
}
