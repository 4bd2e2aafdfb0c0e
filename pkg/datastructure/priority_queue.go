package datastructure

import "errors"

var ErrItemNotInHeap = errors.New("item not in heap")

// PriorityQueueNode orders by Rank, then Hops, then Dist, then insertion
// order, so equal ranked entries pop deterministically.
type PriorityQueueNode[T comparable] struct {
	Rank float64
	Hops int32
	Dist float64
	Item T
	seq  uint64
}

func (n PriorityQueueNode[T]) less(o PriorityQueueNode[T]) bool {
	if n.Rank != o.Rank {
		return n.Rank < o.Rank
	}
	if n.Hops != o.Hops {
		return n.Hops < o.Hops
	}
	if n.Dist != o.Dist {
		return n.Dist < o.Dist
	}
	return n.seq < o.seq
}

// MinHeap binary heap priority queue with decrease key.
type MinHeap[T comparable] struct {
	heap []PriorityQueueNode[T]
	pos  map[T]int
	seq  uint64
}

func NewMinHeap[T comparable]() *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]PriorityQueueNode[T], 0),
		pos:  make(map[T]int),
	}
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / 2
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].Item] = i
	h.pos[h.heap[j].Item] = j
}

// heapifyUp move index up while it is smaller than its parent. O(logN).
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].less(h.heap[h.parent(index)]) {
		h.swap(index, h.parent(index))
		index = h.parent(index)
	}
}

// heapifyDown move index down to the smaller child until heap property holds. O(logN).
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		smallest := index
		left := 2*index + 1
		right := 2*index + 2
		if left < len(h.heap) && h.heap[left].less(h.heap[smallest]) {
			smallest = left
		}
		if right < len(h.heap) && h.heap[right].less(h.heap[smallest]) {
			smallest = right
		}
		if smallest == index {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) isEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) Contains(item T) bool {
	_, ok := h.pos[item]
	return ok
}

// GetMin returns the minimum without removing it.
func (h *MinHeap[T]) GetMin() (PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	return h.heap[0], nil
}

// Insert adds key. If the item is already queued it is updated instead.
func (h *MinHeap[T]) Insert(key PriorityQueueNode[T]) {
	if _, ok := h.pos[key.Item]; ok {
		_ = h.update(key)
		return
	}
	h.seq++
	key.seq = h.seq
	h.heap = append(h.heap, key)
	index := h.Size() - 1
	h.pos[key.Item] = index
	h.heapifyUp(index)
}

// ExtractMin removes and returns the minimum. O(logN).
func (h *MinHeap[T]) ExtractMin() (PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	root := h.heap[0]
	last := h.Size() - 1
	h.swap(0, last)
	h.heap = h.heap[:last]
	delete(h.pos, root.Item)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}
	return root, nil
}

// DecreaseKey lowers the rank (or tie-break fields) of a queued item.
func (h *MinHeap[T]) DecreaseKey(key PriorityQueueNode[T]) error {
	return h.update(key)
}

func (h *MinHeap[T]) update(key PriorityQueueNode[T]) error {
	index, ok := h.pos[key.Item]
	if !ok {
		return ErrItemNotInHeap
	}
	key.seq = h.heap[index].seq
	old := h.heap[index]
	h.heap[index] = key
	if key.less(old) {
		h.heapifyUp(index)
	} else {
		h.heapifyDown(index)
	}
	return nil
}
