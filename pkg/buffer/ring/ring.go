// Copyright (c) 2019 The Gnet Authors. All rights reserved.
// Copyright (c) 2019 Chao yuepan, Allen Xu
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package ring 实现了一个按 2 的幂扩容的泛型环形双端队列。
package ring

import "math/bits"

// DefaultCapacity 是首次写入时分配的容量。
const DefaultCapacity = 16

// Ring 是一个环形双端队列，两端的插入与删除均摊 O(1)。
// 零值可直接使用，非并发安全。
type Ring[T any] struct {
	buf  []T
	head int // 队首元素下标
	n    int // 元素个数
}

// New 创建一个至少能容纳 size 个元素的 Ring，size 会被向上取整为 2 的幂。
func New[T any](size int) *Ring[T] {
	r := &Ring[T]{}
	if size > 0 {
		r.buf = make([]T, ceilToPowerOfTwo(size))
	}
	return r
}

func (r *Ring[T]) Len() int {
	return r.n
}

func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

func (r *Ring[T]) IsEmpty() bool {
	return r.n == 0
}

func (r *Ring[T]) IsFull() bool {
	return r.n == len(r.buf)
}

// mask 依赖容量始终为 2 的幂。
func (r *Ring[T]) index(i int) int {
	return (r.head + i) & (len(r.buf) - 1)
}

func (r *Ring[T]) PushBack(v T) {
	if r.IsFull() {
		r.grow(r.n + 1)
	}
	r.buf[r.index(r.n)] = v
	r.n++
}

func (r *Ring[T]) PushFront(v T) {
	if r.IsFull() {
		r.grow(r.n + 1)
	}
	r.head = (r.head - 1) & (len(r.buf) - 1)
	r.buf[r.head] = v
	r.n++
}

// PopFront 移除并返回队首元素，队列为空时 ok 为 false。
func (r *Ring[T]) PopFront() (v T, ok bool) {
	if r.n == 0 {
		return v, false
	}
	var zero T
	v = r.buf[r.head]
	r.buf[r.head] = zero
	r.head = r.index(1)
	r.n--
	return v, true
}

// PopBack 移除并返回队尾元素，队列为空时 ok 为 false。
func (r *Ring[T]) PopBack() (v T, ok bool) {
	if r.n == 0 {
		return v, false
	}
	var zero T
	i := r.index(r.n - 1)
	v = r.buf[i]
	r.buf[i] = zero
	r.n--
	return v, true
}

// At 返回从队首开始的第 i 个元素，越界时 panic。
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("ring: index out of range")
	}
	return r.buf[r.index(i)]
}

// Range 从队首到队尾遍历，fn 返回 false 时停止。
func (r *Ring[T]) Range(fn func(i int, v T) bool) {
	for i := 0; i < r.n; i++ {
		if !fn(i, r.buf[r.index(i)]) {
			return
		}
	}
}

// Slice 按队首到队尾的顺序复制出所有元素。
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.n)
	r.copyTo(out)
	return out
}

func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.head = 0
	r.n = 0
}

// copyTo 把元素按顺序写入 dst，返回写入个数。环跨越边界时分两段复制。
func (r *Ring[T]) copyTo(dst []T) int {
	if r.n == 0 {
		return 0
	}
	end := r.head + r.n
	if end <= len(r.buf) {
		return copy(dst, r.buf[r.head:end])
	}
	m := copy(dst, r.buf[r.head:])
	return m + copy(dst[m:], r.buf[:end-len(r.buf)])
}

// grow 把容量翻倍直到不小于 need，容量始终为 2 的幂。
func (r *Ring[T]) grow(need int) {
	newCap := len(r.buf)
	if newCap == 0 {
		newCap = max(DefaultCapacity, ceilToPowerOfTwo(need))
	}
	for newCap < need || newCap == len(r.buf) {
		newCap *= 2
	}

	buf := make([]T, newCap)
	r.copyTo(buf)
	r.buf = buf
	r.head = 0
}

func ceilToPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	// n 已经是 2 的幂。
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len(uint(n))
}
