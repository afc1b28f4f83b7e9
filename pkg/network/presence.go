package network

import (
	"log"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// BroadcastPresence announces the local profile on the segment.
func (n *Node) BroadcastPresence() error {
	msg := protocol.NewProfile(n.id, n.cfg.Name, n.cfg.Bio, n.cfg.Status)
	return n.broadcast(msg)
}

// presenceLoop periodically announces the local profile and sweeps idle
// directory entries. A single goroutine drives the loop, so ticks never
// overlap.
func (n *Node) presenceLoop() {
	defer n.wg.Done()

	// Announce immediately so peers discover us without waiting a full
	// interval.
	if err := n.BroadcastPresence(); err != nil {
		log.Printf("Presence broadcast failed: %v", err)
	}

	ticker := time.NewTicker(n.cfg.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if err := n.BroadcastPresence(); err != nil {
				log.Printf("Presence broadcast failed: %v", err)
			}
			if removed := n.directory.SweepIdle(n.cfg.PeerTTL); removed > 0 {
				log.Printf("Swept %d idle peers from directory", removed)
			}
		}
	}
}
