package component

import (
	"fmt"
	"slices"

	"github.com/roach88/rendersync/internal/ir"
)

// initState builds data and localKeys, checks method names and registers
// the declared watchers. Runs once, during Created.
func (in *Instance) initState() {
	in.initData()
	in.initComputed()
	in.initMethods()
	in.initWatch()
}

// initData merges the host's initial values with the declared data.
//
// Declared keys become localKeys. Host keys not declared are deep-cloned
// into data so a later in-place mutation on the host side cannot make a
// changed value look unchanged.
func (in *Instance) initData() {
	initial := in.caps.initial.InitialData()
	if initial == nil {
		initial = ir.IRObject{}
	}

	src := in.opts.Data
	switch {
	case src.Factory != nil:
		in.data = src.Factory(ir.CloneObject(initial))
	case src.Literal != nil:
		in.data = ir.CloneObject(src.Literal)
	}
	if in.data == nil {
		in.data = ir.IRObject{}
	}
	in.localKeys.AddObject(in.data)

	for key, v := range initial {
		if _, ok := in.data[key]; !ok {
			in.data[key] = ir.Clone(v)
		}
	}

	in.data[IdentityKey] = ir.IRInt(in.uid)
	in.localKeys.Add(IdentityKey)
}

func (in *Instance) initComputed() {
	for key := range in.opts.Computed {
		in.localKeys.Add(key)
	}
}

// initMethods reports every method name that shadows a data, prop or
// computed key. Reports are sorted by method name.
func (in *Instance) initMethods() {
	methods := slices.Clone(in.opts.Methods)
	slices.Sort(methods)
	for _, m := range slices.Compact(methods) {
		_, inData := in.data[m]
		_, inComputed := in.opts.Computed[m]
		if inData || inComputed || slices.Contains(in.opts.Props, m) {
			in.report(CodeDuplicateKey,
				fmt.Sprintf("method %q is duplicated with data/props/computed", m), m, nil)
		}
	}
}

func (in *Instance) initWatch() {
	keys := make([]string, 0, len(in.opts.Watch))
	for key := range in.opts.Watch {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		for _, h := range in.opts.Watch[key] {
			if h == nil {
				continue
			}
			if _, err := in.watch(key, func(newVal, oldVal ir.IRValue) {
				h(in.host, newVal, oldVal)
			}); err != nil {
				in.report(CodeInvalidPath, "watch path is not a valid path", key, err)
			}
		}
	}
}

// snapshot returns data with every computed value evaluated. Values are
// shared with data; consumers clone what they keep.
func (in *Instance) snapshot() ir.IRObject {
	out := make(ir.IRObject, len(in.data)+len(in.opts.Computed))
	for k, v := range in.data {
		out[k] = v
	}
	for k, fn := range in.opts.Computed {
		if fn != nil {
			out[k] = fn(in.data)
		}
	}
	return out
}

// baseline returns the host's last-applied view, or nil.
func (in *Instance) baseline() ir.IRObject {
	if in.caps.native == nil {
		return nil
	}
	return in.caps.native.NativeData()
}
