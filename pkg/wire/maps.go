package wire

import (
	"cmp"
	"context"
	"slices"

	"github.com/samber/lo"
)

// Key 是可以作为 Map/Set 键的可编码类型。
type Key interface {
	comparable
	Encoder
}

// OrderedKey 是可排序的键，OrderedMap 按其升序编码。
type OrderedKey interface {
	cmp.Ordered
	Encoder
}

// Map 是键值映射：u64 长度前缀，随后是按 Go map 迭代顺序排列的键值对。
// 同一个 Map 多次编码的字节不保证相同，需要确定性输出时使用 OrderedMap。
type Map[K Key, V Encoder] map[K]V

func (m Map[K, V]) Size() int {
	size := lenPrefixSize
	for k, v := range m {
		size += k.Size() + v.Size()
	}
	return size
}

func (m Map[K, V]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	total, err := writeLen(ctx, cfg, w, len(m))
	if err != nil {
		return total, err
	}
	for k, v := range m {
		n, err := encodePair(ctx, cfg, w, k, v)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *Map[K, V]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	out, err := decodePairs[K, V](ctx, cfg, r)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// OrderedMap 与 Map 线上格式相同，但总是按键升序编码，输出是确定的。
type OrderedMap[K OrderedKey, V Encoder] map[K]V

func (m OrderedMap[K, V]) Size() int {
	return Map[K, V](m).Size()
}

func (m OrderedMap[K, V]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	total, err := writeLen(ctx, cfg, w, len(m))
	if err != nil {
		return total, err
	}
	keys := lo.Keys(map[K]V(m))
	slices.Sort(keys)
	for _, k := range keys {
		n, err := encodePair(ctx, cfg, w, k, m[k])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *OrderedMap[K, V]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	out, err := decodePairs[K, V](ctx, cfg, r)
	if err != nil {
		return err
	}
	*m = OrderedMap[K, V](out)
	return nil
}

func encodePair[K, V Encoder](ctx context.Context, cfg Config, w Writer, k K, v V) (int, error) {
	n, err := k.EncodeTo(ctx, cfg, w)
	if err != nil {
		return n, err
	}
	m, err := v.EncodeTo(ctx, cfg, w)
	return n + m, err
}

func decodePairs[K Key, V Encoder](ctx context.Context, cfg Config, r Reader) (map[K]V, error) {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, min(n, maxPreallocElems))
	for i := 0; i < n; i++ {
		var k K
		if err := decodeValue(ctx, cfg, r, &k); err != nil {
			return nil, err
		}
		var v V
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Set 是元素集合，编码同 Seq，元素顺序为 Go map 迭代顺序。
type Set[T Key] map[T]struct{}

func NewSet[T Key](elements ...T) Set[T] {
	set := make(Set[T], len(elements))
	set.Insert(elements...)
	return set
}

func (set Set[T]) Insert(elements ...T) {
	for i := range elements {
		set[elements[i]] = struct{}{}
	}
}

// Contain 当且仅当所有元素都在集合中时返回 true。
func (set Set[T]) Contain(elements ...T) bool {
	for i := range elements {
		if _, ok := set[elements[i]]; !ok {
			return false
		}
	}
	return true
}

func (set Set[T]) Remove(elements ...T) {
	for i := range elements {
		delete(set, elements[i])
	}
}

func (set Set[T]) Len() int {
	return len(set)
}

func (set Set[T]) Collect() []T {
	return lo.Keys(map[T]struct{}(set))
}

func (set Set[T]) Size() int {
	size := lenPrefixSize
	for k := range set {
		size += k.Size()
	}
	return size
}

func (set Set[T]) EncodeTo(ctx context.Context, cfg Config, w Writer) (int, error) {
	total, err := writeLen(ctx, cfg, w, len(set))
	if err != nil {
		return total, err
	}
	for k := range set {
		n, err := k.EncodeTo(ctx, cfg, w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (set *Set[T]) DecodeFrom(ctx context.Context, cfg Config, r Reader) error {
	n, err := readLen(ctx, cfg, r)
	if err != nil {
		return err
	}
	out := make(Set[T], min(n, maxPreallocElems))
	for i := 0; i < n; i++ {
		var v T
		if err := decodeValue(ctx, cfg, r, &v); err != nil {
			return err
		}
		out[v] = struct{}{}
	}
	*set = out
	return nil
}
