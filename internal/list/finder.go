package list

// Snapshotter exposes the current ordered items of a collection.
type Snapshotter[T any] interface {
	Snapshot() []T
}

// Finder resolves a key to a position by scanning a fresh snapshot of its
// source on every call. It keeps no index, so it never goes stale.
type Finder[K comparable, T any] struct {
	source  Snapshotter[T]
	extract func(T) K
}

// NewFinder builds a Finder over source using extract to derive each item's key.
func NewFinder[K comparable, T any](source Snapshotter[T], extract func(T) K) Finder[K, T] {
	return Finder[K, T]{source: source, extract: extract}
}

// PositionOf returns the lowest position whose key equals key.
func (f Finder[K, T]) PositionOf(key K) (int, bool) {
	for i, item := range f.source.Snapshot() {
		if f.extract(item) == key {
			return i, true
		}
	}
	return 0, false
}

// PositionsOf returns, in ascending order, every position whose key is in keys.
func (f Finder[K, T]) PositionsOf(keys map[K]struct{}) []int {
	var positions []int
	for i, item := range f.source.Snapshot() {
		if _, ok := keys[f.extract(item)]; ok {
			positions = append(positions, i)
		}
	}
	return positions
}

// EditableAssistant performs key-addressed edits on a list through a Finder.
type EditableAssistant[K comparable, T any] struct {
	list   *IndexedList[T]
	finder Finder[K, T]
}

// NewEditableAssistant pairs l with finder. finder should read from l.
func NewEditableAssistant[K comparable, T any](l *IndexedList[T], finder Finder[K, T]) EditableAssistant[K, T] {
	return EditableAssistant[K, T]{list: l, finder: finder}
}

// ReplaceWhereKeyIs replaces the first item keyed key with value. It reports
// whether an item was found; an absent key leaves the list untouched.
func (a EditableAssistant[K, T]) ReplaceWhereKeyIs(key K, value T) bool {
	position, ok := a.finder.PositionOf(key)
	if !ok {
		return false
	}
	// The position came from the current snapshot so it is in range.
	_ = a.list.ReplaceAt(position, value)
	return true
}

// RemoveWhereKeyIn removes every item whose key is in keys and returns how many
// were removed. Zero matches is not an error.
func (a EditableAssistant[K, T]) RemoveWhereKeyIn(keys ...K) int {
	if len(keys) == 0 {
		return 0
	}
	set := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	positions := a.finder.PositionsOf(set)
	// Highest first so earlier positions stay valid.
	for i := len(positions) - 1; i >= 0; i-- {
		_ = a.list.RemoveAt(positions[i])
	}
	return len(positions)
}
