package patch

import (
	"github.com/roach88/rendersync/internal/ir"
)

// Preprocess drops render-data entries whose ancestor path is also present;
// the ancestor's value already carries them. A render function that reads
// both "list" and "list[0].title" only needs "list" diffed.
func Preprocess(renderData ir.IRObject) ir.IRObject {
	cands, _ := Candidates(renderData)
	out := make(ir.IRObject, len(renderData))

	var kept []ir.Path
	for _, c := range cands {
		covered := false
		for _, k := range kept {
			if k.IsAncestorOf(c.Path) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		kept = append(kept, c.Path)
		out[c.Path.String()] = c.Value
	}

	for k, v := range renderData {
		if _, err := ir.ParsePath(k); err != nil {
			out[k] = v
		}
	}
	return out
}
