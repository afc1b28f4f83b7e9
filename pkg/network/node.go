package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
	"github.com/lsnp-net/lsnp-node/pkg/storage"
)

var (
	ErrUnknownPeer    = errors.New("unknown peer")
	ErrUnknownSession = errors.New("unknown game session")
	ErrNotRunning     = errors.New("node not running")
)

// seenCacheSize bounds the duplicate-suppression window.
const seenCacheSize = 4096

// Config holds the node's tunables. Zero values are filled in from
// DefaultConfig.
type Config struct {
	Name   string
	Bio    string
	Status string
	Port   int

	PresenceInterval time.Duration // PROFILE broadcast cadence
	PeerTTL          time.Duration // directory idle-sweep age
	TokenTTL         time.Duration // expiry of issued tokens
	PostTTL          time.Duration // absolute TTL stamped on posts
	RequestTimeout   time.Duration // pending-request deadline
	RetryBackoff     time.Duration // base retry backoff
	MaxAttempts      int           // total transmissions per request
}

// DefaultConfig returns the standard node configuration.
func DefaultConfig() Config {
	return Config{
		Port:             protocol.DefaultPort,
		PresenceInterval: 30 * time.Second,
		PeerTTL:          5 * time.Minute,
		TokenTTL:         time.Hour,
		PostTTL:          5 * time.Minute,
		RequestTimeout:   15 * time.Second,
		RetryBackoff:     2 * time.Second,
		MaxAttempts:      3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.PresenceInterval == 0 {
		c.PresenceInterval = def.PresenceInterval
	}
	if c.PeerTTL == 0 {
		c.PeerTTL = def.PeerTTL
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = def.TokenTTL
	}
	if c.PostTTL == 0 {
		c.PostTTL = def.PostTTL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}

// Node is one LSNP process: it owns the socket, the protocol state, and
// the three background loops (listener, presence, retry).
type Node struct {
	cfg       Config
	id        protocol.UserID
	transport Transport

	directory *Directory
	tokens    *protocol.TokenAuthority
	history   *storage.HistoryDB
	pending   *pendingTable
	rels      *relationshipState
	games     *gameTable
	seen      *lru.Cache[string, struct{}]

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started time.Time

	closeOnce sync.Once

	// Callbacks for the user-facing surface. All are optional and are
	// invoked from the listener or retry goroutine.
	OnPostReceived    func(from protocol.UserID, content string)
	OnDMReceived      func(from protocol.UserID, content string)
	OnFollowerAdded   func(follower protocol.UserID)
	OnFollowerRemoved func(follower protocol.UserID)
	OnFollowConfirmed func(target protocol.UserID, kind RequestKind)
	OnRequestTimeout  func(req *PendingRequest)
	OnPeerDiscovered  func(peer PeerRecord)
	OnGameEvent       func(g GameSession, note string)
}

// NewNode creates a node over the given transport. The transport's
// local IP becomes part of the node identity.
func NewNode(cfg Config, transport Transport) (*Node, error) {
	cfg = cfg.withDefaults()
	if cfg.Name == "" {
		return nil, errors.New("node name required")
	}

	history, err := storage.NewHistoryDB()
	if err != nil {
		return nil, err
	}

	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		history.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:       cfg,
		id:        protocol.NewUserID(cfg.Name, transport.LocalIP()),
		transport: transport,
		directory: NewDirectory(),
		tokens:    protocol.NewTokenAuthority(),
		history:   history,
		pending:   newPendingTable(),
		rels:      newRelationshipState(),
		games:     newGameTable(),
		seen:      seen,
		ctx:       ctx,
		cancel:    cancel,
	}
	return n, nil
}

// Start launches the listener, presence, and retry loops.
func (n *Node) Start() {
	n.started = time.Now()

	n.wg.Add(3)
	go n.listenLoop()
	go n.presenceLoop()
	go n.retryLoop()

	log.Printf("✓ LSNP node %s listening on port %d", n.id, n.cfg.Port)
}

// Close stops all loops, releases the socket, and closes the history
// database. Safe to call more than once. No in-flight request is
// retried past shutdown.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.cancel()
		err = n.transport.Close() // unblocks the listener
		n.wg.Wait()
		n.history.Close()
		log.Printf("LSNP node %s stopped", n.id)
	})
	return err
}

// ID returns the local identity.
func (n *Node) ID() protocol.UserID { return n.id }

// Uptime reports how long the node has been running.
func (n *Node) Uptime() time.Duration {
	if n.started.IsZero() {
		return 0
	}
	return time.Since(n.started)
}

// Peers returns a snapshot of the peer directory.
func (n *Node) Peers() []PeerRecord { return n.directory.All() }

// History exposes the message/post history store.
func (n *Node) History() *storage.HistoryDB { return n.history }

// PendingRequests reports the number of in-flight acknowledged requests.
func (n *Node) PendingRequests() int { return n.pending.len() }

// RevokeToken adds a raw token to the process-wide revocation set.
func (n *Node) RevokeToken(raw string) { n.tokens.Revoke(raw) }

// send encodes and transmits a message to one destination.
func (n *Node) send(msg *protocol.Message, dest *net.UDPAddr) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return n.transport.Send(data, dest)
}

// broadcast encodes and transmits a message to the segment broadcast
// address.
func (n *Node) broadcast(msg *protocol.Message) error {
	return n.send(msg, n.transport.BroadcastAddr())
}

// sendRequest transmits an acknowledged request and registers it for
// retry. The transmission counts as the first attempt.
func (n *Node) sendRequest(kind RequestKind, target protocol.UserID, msg *protocol.Message, dest *net.UDPAddr) error {
	if err := n.send(msg, dest); err != nil {
		return err
	}

	now := time.Now()
	n.pending.add(&PendingRequest{
		ID:       msg.Get(protocol.FieldMessageID),
		Kind:     kind,
		Target:   target,
		Message:  msg,
		Dest:     dest,
		Deadline: now.Add(n.cfg.RequestTimeout),
		Attempts: 1,
		NextSend: now.Add(n.cfg.RetryBackoff),
	})
	return nil
}

// peerAddr resolves a peer id to its UDP address via the directory.
func (n *Node) peerAddr(id protocol.UserID) (*net.UDPAddr, error) {
	rec, ok := n.directory.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, id)
	}
	addr, err := rec.UDPAddr()
	if err != nil {
		return nil, fmt.Errorf("peer %s has unresolvable address: %v", id, err)
	}
	return addr, nil
}

// retryLoop drives pending-request retries and expiry.
func (n *Node) retryLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case now := <-ticker.C:
			retry, expired := n.pending.due(now, n.cfg.MaxAttempts, n.cfg.RetryBackoff)

			for _, req := range retry {
				log.Printf("Retrying %s to %s (attempt %d/%d)", req.Kind, req.Target, req.Attempts, n.cfg.MaxAttempts)
				if err := n.send(req.Message, req.Dest); err != nil {
					log.Printf("Retry send failed: %v", err)
				}
			}

			for _, req := range expired {
				log.Printf("⚠️  %s to %s timed out after %d attempts", req.Kind, req.Target, req.Attempts)
				n.rels.abort(req)
				if n.OnRequestTimeout != nil {
					n.OnRequestTimeout(req)
				}
			}
		}
	}
}
