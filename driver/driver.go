// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the set of GL-style interfaces
// through which GPU resources are created, uploaded and
// bound.
// It is designed so that a tiered GL/GLES back-end (or an
// in-memory double) can be implemented in a mostly
// straightforward manner.
package driver

import (
	"errors"
	"strings"
	"sync"

	"github.com/gviegas/glrt"
)

// Driver is the interface that provides methods for
// loading and unloading an underlying implementation.
type Driver interface {
	// Open initializes the driver.
	// If it succeeds, further calls with the same receiver
	// have no effect and must return the same GPU instance.
	// Callers should assume that Open is not safe for
	// parallel execution.
	Open() (GPU, error)

	// Name returns the name of the driver.
	// It must not cause the driver to be opened.
	Name() string

	// Close deinitializes the driver.
	// Closing a driver that is not open has no effect.
	// Callers should assume that Close is not safe for
	// parallel execution.
	Close()
}

// ErrNoDriver means that no registered driver matched
// the requested name, or that all of them failed to open.
var ErrNoDriver = errors.New("driver: driver not found")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrContextLost means that the graphics context was
// discarded by the platform. Every handle created before
// the loss is void. Object creation fails with this error
// until the context is restored.
var ErrContextLost = errors.New("driver: graphics context lost")

// Drivers returns the registered Drivers.
// Client code imports specific driver packages, and then
// call this function from init. As such, drivers that do
// not register themselves on init will not be considered
// for selection.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Register registers a Driver.
// Driver implementations are expected to call Register
// exactly once, from an init function.
// If a driver with the same name has already been
// registered, it will be replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			glrt.Logger().Warn("driver replaced", "name", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
	glrt.Logger().Debug("driver registered", "name", drv.Name())
}

// Open opens the first registered driver whose name
// contains name. It is case insensitive.
// If name is the empty string, then all registered
// drivers are considered.
// It returns the opened Driver and its GPU.
func Open(name string) (Driver, GPU, error) {
	err := ErrNoDriver
	name = strings.ToLower(name)
	for _, drv := range Drivers() {
		if !strings.Contains(strings.ToLower(drv.Name()), name) {
			continue
		}
		var gpu GPU
		if gpu, err = drv.Open(); err != nil {
			glrt.Logger().Warn("driver failed to open", "name", drv.Name(), "err", err)
			continue
		}
		glrt.Logger().Info("driver opened", "name", drv.Name())
		return drv, gpu, nil
	}
	return nil, nil, err
}

// Variables used for driver registration.
var (
	mu      sync.Mutex
	drivers = make([]Driver, 0, 1)
)
