// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package peer

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// Table is the listener-wide peer-id -> Peer map. Inserts happen on
// accept, removals on disconnect; both are single-key operations, so
// a mutex-guarded map is enough — there is no cross-peer transaction
// to coordinate. ids tracks the live key set in a mapset.Set so
// disconnect-all can snapshot and iterate it without holding the
// table lock across the whole teardown sweep.
type Table struct {
	mu    sync.RWMutex
	peers map[string]*Peer
	ids   mapset.Set
}

// NewTable creates an empty peer table.
func NewTable() *Table {
	return &Table{
		peers: make(map[string]*Peer),
		ids:   mapset.NewSet(),
	}
}

// Install inserts p, replacing any existing record at the same id.
// The prior record's connection is not torn down here — that
// treats concurrent duplicate peer-ids as the caller's problem.
func (t *Table) Install(p *Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[p.ID] = p
	t.ids.Add(p.ID)
}

// Remove atomically takes the peer record out of the table. ok is
// false if no record existed at id (already removed, e.g. by a
// concurrent disconnect).
func (t *Table) Remove(id string) (*Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if ok {
		delete(t.peers, id)
		t.ids.Remove(id)
	}
	return p, ok
}

// Get looks up a peer by id.
func (t *Table) Get(id string) (*Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

// Len reports the number of connected peers.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// IDs returns a snapshot of the currently connected peer ids, read off
// ids rather than peers so a caller iterating the result (e.g.
// disconnect-all) never holds the table lock for the iteration itself.
func (t *Table) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	raw := t.ids.ToSlice()
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		out = append(out, id.(string))
	}
	return out
}
