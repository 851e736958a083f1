// Package component binds a component definition to a render host and
// drives its lifecycle.
//
// An Instance moves through initial -> created -> mounted -> destroyed.
// Created builds the instance data from the host's initial values and the
// declared DataSource, then performs the first render. Later renders are
// requested by data writes (Set), forced patches (ForceUpdate) and
// absorbed-request replays, and are coalesced per tick by the render
// watcher on the shared engine.Loop.
//
// Hosts are plain Go values. InitialDataProvider and Renderer are required
// and checked once by Registry.New; a host missing either produces a
// broken instance whose every method returns an error wrapping ErrBroken.
// NativeDataProvider and InjectedRenderer are optional.
//
// Advisory problems (duplicate method keys, forced non-local keys, failing
// render functions, invalid paths) are sent to the Registry's Reporter and
// never interrupt rendering.
package component
