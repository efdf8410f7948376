package unification

import (
	"strconv"
	"strings"

	"github.com/unifiedsync/syncd/domain/entity"
)

// lookup reads a dotted path. Numeric segments index into arrays.
func lookup(raw entity.Raw, path string) (any, bool) {
	var cur any = map[string]any(raw)
	for seg := range strings.SplitSeq(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case entity.Raw:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// assign writes v at a dotted path, creating intermediate objects. Numeric
// segments create or extend arrays.
func assign(raw entity.Raw, path string, v any) {
	segs := strings.Split(path, ".")
	set(map[string]any(raw), segs, v)
}

func set(node map[string]any, segs []string, v any) {
	head := segs[0]
	if len(segs) == 1 {
		node[head] = v
		return
	}
	next := segs[1]
	if i, err := strconv.Atoi(next); err == nil && i >= 0 {
		arr, _ := node[head].([]any)
		for len(arr) <= i {
			arr = append(arr, nil)
		}
		if len(segs) == 2 {
			arr[i] = v
		} else {
			child, ok := arr[i].(map[string]any)
			if !ok {
				child = map[string]any{}
			}
			set(child, segs[2:], v)
			arr[i] = child
		}
		node[head] = arr
		return
	}
	child, ok := node[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[head] = child
	}
	set(child, segs[1:], v)
}
