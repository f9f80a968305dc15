// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package pathfinder

import (
	"container/heap"
	"slices"
)

type entry struct {
	id   string
	cost float64
	seq  uint64
}

// entryHeap orders by cost, then by insertion order.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// frontier is the search state grown from one end of the path.
type frontier struct {
	origin   string
	costs    map[string]float64
	cameFrom map[string]string
	via      map[string]string
	queue    entryHeap
	seq      uint64
}

func newFrontier(origin string) *frontier {
	fr := &frontier{
		origin:   origin,
		costs:    map[string]float64{origin: 0},
		cameFrom: make(map[string]string),
		via:      make(map[string]string),
	}
	fr.push(origin, 0)
	return fr
}

func (fr *frontier) push(id string, cost float64) {
	fr.seq++
	heap.Push(&fr.queue, entry{id: id, cost: cost, seq: fr.seq})
}

// peek returns the cheapest live entry. Entries superseded by a cheaper
// push are dropped on the way.
func (fr *frontier) peek() (entry, bool) {
	for fr.queue.Len() > 0 {
		top := fr.queue[0]
		if top.cost <= fr.costs[top.id] {
			return top, true
		}
		heap.Pop(&fr.queue)
	}
	return entry{}, false
}

func (fr *frontier) pop() entry {
	return heap.Pop(&fr.queue).(entry)
}

// offer records cost for reaching id from prev via rel when it beats the
// best known cost.
func (fr *frontier) offer(prev, rel, id string, cost float64) bool {
	if best, ok := fr.costs[id]; ok && cost >= best {
		return false
	}
	fr.costs[id] = cost
	fr.cameFrom[id] = prev
	fr.via[id] = rel
	fr.push(id, cost)
	return true
}

func (fr *frontier) reached(id string) bool {
	_, ok := fr.cameFrom[id]
	return ok
}

// trace walks back from id to the origin. The path starts at the origin and
// rels[i] joins path[i] to path[i+1].
func (fr *frontier) trace(id string) (path, rels []string) {
	path = []string{id}
	for {
		prev, ok := fr.cameFrom[id]
		if !ok {
			break
		}
		rels = append(rels, fr.via[id])
		path = append(path, prev)
		id = prev
	}
	slices.Reverse(path)
	slices.Reverse(rels)
	return path, rels
}
