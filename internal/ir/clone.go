package ir

// Clone returns a deep, reference-severing copy of v. Scalars are
// immutable and returned as-is. A nil (undefined) stays nil.
func Clone(v IRValue) IRValue {
	switch val := v.(type) {
	case IRArray:
		return cloneArray(val)
	case IRObject:
		return CloneObject(val)
	default:
		return v
	}
}

// CloneObject is Clone for objects. A nil object clones to nil.
func CloneObject(obj IRObject) IRObject {
	if obj == nil {
		return nil
	}
	out := make(IRObject, len(obj))
	for k, elem := range obj {
		out[k] = Clone(elem)
	}
	return out
}

func cloneArray(arr IRArray) IRArray {
	if arr == nil {
		return nil
	}
	out := make(IRArray, len(arr))
	for i, elem := range arr {
		out[i] = Clone(elem)
	}
	return out
}

// NormalizeUndefined deep-copies v, replacing every nil (undefined) with
// IRNull. Patches pass through this before delivery so the host never
// aliases cached state and never sees an undefined.
func NormalizeUndefined(v IRValue) IRValue {
	switch val := v.(type) {
	case nil:
		return IRNull{}
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = NormalizeUndefined(elem)
		}
		return out
	case IRObject:
		return NormalizeObject(val)
	default:
		return v
	}
}

// NormalizeObject is NormalizeUndefined for objects.
func NormalizeObject(obj IRObject) IRObject {
	out := make(IRObject, len(obj))
	for k, elem := range obj {
		out[k] = NormalizeUndefined(elem)
	}
	return out
}

// Equal reports deep structural equality. Numbers compare by value across
// IRInt and IRFloat; nil (undefined) differs from IRNull.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRInt, IRFloat:
		an, _ := number(a)
		bn, ok := number(b)
		return ok && an == bn
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func number(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRFloat:
		return float64(n), true
	}
	return 0, false
}

// GetByPath walks v along p. It reports false when a segment is missing or
// the value at that point is not a container of the right kind.
func GetByPath(v IRValue, p Path) (IRValue, bool) {
	cur := v
	for _, seg := range p {
		if seg.IsIndex {
			arr, ok := cur.(IRArray)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.Index]
			continue
		}
		obj, ok := cur.(IRObject)
		if !ok {
			return nil, false
		}
		next, present := obj[seg.Key]
		if !present {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SetByPath writes v at p inside root, creating intermediate objects and
// arrays as needed. Arrays are grown with undefined holes. The first
// segment of p must be a key.
func SetByPath(root IRObject, p Path, v IRValue) {
	if len(p) == 0 || p[0].IsIndex {
		return
	}
	root[p[0].Key] = SetIn(root[p[0].Key], p[1:], v)
}

// SetIn returns container with v stored at p, replacing non-container
// values on the way. Objects are updated in place; arrays may be
// reallocated when they grow, so callers must store the result.
func SetIn(container IRValue, p Path, v IRValue) IRValue {
	if len(p) == 0 {
		return v
	}
	seg := p[0]
	if seg.IsIndex {
		arr, ok := container.(IRArray)
		if !ok {
			arr = IRArray{}
		}
		for len(arr) <= seg.Index {
			arr = append(arr, nil)
		}
		arr[seg.Index] = SetIn(arr[seg.Index], p[1:], v)
		return arr
	}
	obj, ok := container.(IRObject)
	if !ok || obj == nil {
		obj = IRObject{}
	}
	obj[seg.Key] = SetIn(obj[seg.Key], p[1:], v)
	return obj
}
