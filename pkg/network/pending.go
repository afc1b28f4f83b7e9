package network

import (
	"net"
	"sync"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// RequestKind classifies a pending acknowledged request.
type RequestKind string

const (
	RequestFollow   RequestKind = "FOLLOW"
	RequestUnfollow RequestKind = "UNFOLLOW"
	RequestDM       RequestKind = "DM"
)

// PendingRequest is an outbound request awaiting its ACK. The retry loop
// resends it with exponential backoff until the ACK arrives, the retry
// budget runs out, or the deadline passes.
type PendingRequest struct {
	ID       string
	Kind     RequestKind
	Target   protocol.UserID
	Message  *protocol.Message
	Dest     *net.UDPAddr
	Deadline time.Time
	Attempts int
	NextSend time.Time
}

// pendingTable holds in-flight acknowledged requests keyed by
// correlation id.
type pendingTable struct {
	mu       sync.Mutex
	requests map[string]*PendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{requests: make(map[string]*PendingRequest)}
}

// add registers a freshly sent request. The initial transmission counts
// as the first attempt.
func (p *pendingTable) add(req *PendingRequest) {
	p.mu.Lock()
	p.requests[req.ID] = req
	p.mu.Unlock()
}

// resolve removes and returns the request matching an ACK. Unknown ids
// return false: duplicate or late ACKs are no-ops.
func (p *pendingTable) resolve(id string) (*PendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[id]
	if !ok {
		return nil, false
	}
	delete(p.requests, id)
	return req, true
}

// due returns requests whose backoff timer has elapsed, advancing their
// attempt count and next-send time under the lock. Requests past their
// deadline or retry budget are removed and returned separately.
func (p *pendingTable) due(now time.Time, maxAttempts int, backoffBase time.Duration) (retry, expired []*PendingRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, req := range p.requests {
		if now.After(req.Deadline) || req.Attempts >= maxAttempts {
			delete(p.requests, id)
			expired = append(expired, req)
			continue
		}
		if now.Before(req.NextSend) {
			continue
		}
		req.Attempts++
		// Backoff doubles per attempt: base, 2*base, 4*base, ...
		req.NextSend = now.Add(backoffBase << (req.Attempts - 1))
		retry = append(retry, req)
	}
	return retry, expired
}

// len returns the number of in-flight requests.
func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
