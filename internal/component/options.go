package component

import "github.com/roach88/rendersync/internal/ir"

// IdentityKey is the reserved data key holding the instance uid. It is
// always part of localKeys.
const IdentityKey = "__cid"

// DataSource declares a component's own data.
//
// Exactly one of Factory and Literal is used. Factory wins when both are
// set. A zero DataSource declares no data.
type DataSource struct {
	// Factory is called once with a read-only copy of the host's initial
	// data, so it may derive values from props. Its result is used as is.
	Factory func(initial ir.IRObject) ir.IRObject

	// Literal is deep-cloned per instance.
	Literal ir.IRObject
}

// FactoryData builds a DataSource from a factory.
func FactoryData(fn func(initial ir.IRObject) ir.IRObject) DataSource {
	return DataSource{Factory: fn}
}

// LiteralData builds a DataSource from a literal object.
func LiteralData(obj ir.IRObject) DataSource {
	return DataSource{Literal: obj}
}

// Computed derives a value from the instance data. It must not mutate data.
type Computed func(data ir.IRObject) ir.IRValue

// WatchHandler is called with the host, the new value and the previous one.
type WatchHandler func(host any, newVal, oldVal ir.IRValue)

// Hooks are the optional lifecycle callbacks of a component.
type Hooks struct {
	BeforeCreate func(host any)
	Created      func(host any, args ...any)
	BeforeMount  func(host any)
	Mounted      func(host any)
	Updated      func(host any)
	Destroyed    func(host any)
}

// Options is a component definition.
type Options struct {
	// Name and Resource identify the component in reports and journals.
	Name     string
	Resource string

	Data     DataSource
	Computed map[string]Computed

	// Props lists host-native keys. They are readable through data but are
	// never part of localKeys.
	Props []string

	// Methods lists method names. A method named like a data, computed or
	// prop key is reported as a duplicate.
	Methods []string

	// Watch registers handlers per data path. Handlers for one path run in
	// slice order.
	Watch map[string][]WatchHandler

	Hooks Hooks

	// NativeRender makes every flush an unconditional full render: no diff,
	// no localKeys filter, and data changes render only through ForceUpdate.
	NativeRender bool
}
