package timeline

import (
	"sort"

	"maunium.net/go/mautrix/id"
)

// orderKey sorts items chronologically. The event ID breaks timestamp ties
// so iteration order is stable across runs.
type orderKey struct {
	ts int64
	id id.EventID
}

func (k orderKey) before(o orderKey) bool {
	if k.ts != o.ts {
		return k.ts < o.ts
	}
	return k.id < o.id
}

func (k orderKey) after(o orderKey) bool {
	return o.before(k)
}

// orderIndex is a sorted set of keys.
type orderIndex struct {
	keys []orderKey
}

func (idx *orderIndex) search(key orderKey) int {
	return sort.Search(len(idx.keys), func(i int) bool {
		return !idx.keys[i].before(key)
	})
}

// insert adds key at its sorted position. It returns false if the key was
// already present.
func (idx *orderIndex) insert(key orderKey) bool {
	pos := idx.search(key)
	if pos < len(idx.keys) && idx.keys[pos] == key {
		return false
	}
	idx.keys = append(idx.keys, orderKey{})
	copy(idx.keys[pos+1:], idx.keys[pos:])
	idx.keys[pos] = key
	return true
}

func (idx *orderIndex) len() int {
	return len(idx.keys)
}
