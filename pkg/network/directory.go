package network

import (
	"net"
	"sort"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// PeerRecord is one known peer: its identity, where it was last heard
// from, and the profile it last announced.
type PeerRecord struct {
	ID          protocol.UserID
	Addr        ma.Multiaddr // /ip4/<host>/udp/<port>
	DisplayName string
	Bio         string
	Status      string
	LastSeen    time.Time
}

// UDPAddr converts the record's multiaddr back to a UDP address.
func (r *PeerRecord) UDPAddr() (*net.UDPAddr, error) {
	addr, err := manet.ToNetAddr(r.Addr)
	if err != nil {
		return nil, err
	}
	return addr.(*net.UDPAddr), nil
}

// Directory tracks known peers. The listener, presence, and user
// goroutines all touch it, so every access takes the lock.
type Directory struct {
	mu    sync.RWMutex
	peers map[protocol.UserID]*PeerRecord
}

// NewDirectory creates an empty peer directory.
func NewDirectory() *Directory {
	return &Directory{peers: make(map[protocol.UserID]*PeerRecord)}
}

// Upsert inserts or refreshes a peer, stamping LastSeen.
func (d *Directory) Upsert(id protocol.UserID, addr *net.UDPAddr) {
	maddr, err := manet.FromNetAddr(addr)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.peers[id]
	if !ok {
		rec = &PeerRecord{ID: id}
		d.peers[id] = rec
	}
	rec.Addr = maddr
	rec.LastSeen = time.Now()
}

// UpsertProfile refreshes a peer and replicates its announced profile.
func (d *Directory) UpsertProfile(id protocol.UserID, addr *net.UDPAddr, name, bio, status string) {
	d.Upsert(id, addr)

	d.mu.Lock()
	defer d.mu.Unlock()

	if rec, ok := d.peers[id]; ok {
		rec.DisplayName = name
		rec.Bio = bio
		rec.Status = status
	}
}

// Lookup returns a copy of the record for id.
func (d *Directory) Lookup(id protocol.UserID) (PeerRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.peers[id]
	if !ok {
		return PeerRecord{}, false
	}
	return *rec, true
}

// All returns a snapshot of every record, sorted by identity.
func (d *Directory) All() []PeerRecord {
	d.mu.RLock()
	out := make([]PeerRecord, 0, len(d.peers))
	for _, rec := range d.peers {
		out = append(out, *rec)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of known peers.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}

// SweepIdle drops peers not heard from within maxAge and returns how
// many were removed. Runs on the presence cadence.
func (d *Directory) SweepIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, rec := range d.peers {
		if rec.LastSeen.Before(cutoff) {
			delete(d.peers, id)
			removed++
		}
	}
	return removed
}
