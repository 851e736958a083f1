package component

import "github.com/roach88/rendersync/internal/ir"

// InitialDataProvider returns the host's pre-existing values, one per
// declared or host-native key. Required.
type InitialDataProvider interface {
	InitialData() ir.IRObject
}

// Renderer applies a flat patch. onComplete is invoked by the host after
// the patch is applied; it may be called from any goroutine, or never.
// Required.
type Renderer interface {
	Render(patch ir.IRObject, onComplete func())
}

// NativeDataProvider exposes the host's last-applied view state. It is a
// read-only baseline for the strict diff fallback. Optional.
type NativeDataProvider interface {
	NativeData() ir.IRObject
}

// InjectedRenderer runs a compiled render function and returns the render
// data it collected as path -> value. Optional.
type InjectedRenderer interface {
	InjectedRender() (ir.IRObject, error)
}

// capabilities is the host checked once at construction.
type capabilities struct {
	initial  InitialDataProvider
	renderer Renderer
	native   NativeDataProvider
	injected InjectedRenderer
}

// resolveHost checks the required capabilities and picks up the optional
// ones. The returned error lists every missing capability.
func resolveHost(host any) (capabilities, error) {
	var caps capabilities
	var missing []string

	if p, ok := host.(InitialDataProvider); ok {
		caps.initial = p
	} else {
		missing = append(missing, "InitialData")
	}
	if r, ok := host.(Renderer); ok {
		caps.renderer = r
	} else {
		missing = append(missing, "Render")
	}
	caps.native, _ = host.(NativeDataProvider)
	caps.injected, _ = host.(InjectedRenderer)

	if len(missing) > 0 {
		return caps, &missingCapabilityError{missing: missing}
	}
	return caps, nil
}

type missingCapabilityError struct {
	missing []string
}

func (e *missingCapabilityError) Error() string {
	msg := "host does not implement"
	for i, m := range e.missing {
		if i > 0 {
			msg += " and"
		}
		msg += " " + m
	}
	return msg
}
