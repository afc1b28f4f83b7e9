package network

import (
	"testing"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

func TestFollowHandshake(t *testing.T) {
	fn := newFakeNet()
	a, fta := newTestNode(t, fn, "alice", "10.0.0.2")
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	knowPeer(a, b.ID())
	knowPeer(b, a.ID())

	if err := a.Follow(b.ID()); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	if got := a.rels.followingState(b.ID()); got != EdgePending {
		t.Errorf("state after Follow() = %s, want PENDING", got)
	}

	// B accepts the FOLLOW and replies with an ACK.
	if n := pump(t, b, ftb, 1); n != 1 {
		t.Fatalf("B received %d packets, want 1", n)
	}

	followers := b.Followers()
	if len(followers) != 1 || followers[0] != a.ID() {
		t.Fatalf("B followers = %v, want [%s]", followers, a.ID())
	}

	// A correlates the ACK and activates the edge.
	ack := <-fta.in
	a.dispatch(ack.data, ack.src)
	if got := a.rels.followingState(b.ID()); got != EdgeActive {
		t.Errorf("state after ACK = %s, want ACTIVE", got)
	}
	if a.PendingRequests() != 0 {
		t.Errorf("pending requests = %d after ACK, want 0", a.PendingRequests())
	}

	// A re-delivered ACK with the same correlation id is a no-op.
	a.dispatch(ack.data, ack.src)
	if got := a.rels.followingState(b.ID()); got != EdgeActive {
		t.Errorf("state after duplicate ACK = %s, want ACTIVE", got)
	}
}

func TestFollowUnknownPeer(t *testing.T) {
	fn := newFakeNet()
	a, _ := newTestNode(t, fn, "alice", "10.0.0.2")

	err := a.Follow("ghost@10.0.0.99")
	if err == nil {
		t.Fatal("Follow() accepted an unknown peer")
	}
	if a.PendingRequests() != 0 {
		t.Error("Follow() of unknown peer registered a pending request")
	}
}

func TestInboundFollowIdempotent(t *testing.T) {
	fn := newFakeNet()
	a, _ := newTestNode(t, fn, "alice", "10.0.0.2")
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	knowPeer(a, b.ID())
	if err := a.Follow(b.ID()); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	// Deliver the same FOLLOW datagram twice (network duplication).
	p := <-ftb.in
	b.dispatch(p.data, p.src)
	b.dispatch(p.data, p.src)

	if got := len(b.Followers()); got != 1 {
		t.Errorf("followers after duplicate FOLLOW = %d, want 1", got)
	}
}

func TestLostAckRecoveredByRetransmit(t *testing.T) {
	fn := newFakeNet()
	a, fta := newTestNode(t, fn, "alice", "10.0.0.2")
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	knowPeer(a, b.ID())
	knowPeer(b, a.ID())

	if err := a.Follow(b.ID()); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	p := <-ftb.in
	b.dispatch(p.data, p.src)

	// The first ACK is lost on the wire.
	<-fta.in

	// The retry loop resends the FOLLOW under the same correlation id.
	// B already committed the follower, but it must answer again or A
	// can never leave PENDING.
	b.dispatch(p.data, p.src)

	select {
	case ack := <-fta.in:
		a.dispatch(ack.data, ack.src)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("retransmitted FOLLOW was not acknowledged")
	}

	if got := a.rels.followingState(b.ID()); got != EdgeActive {
		t.Errorf("state after recovered ACK = %s, want ACTIVE", got)
	}
	if got := len(b.Followers()); got != 1 {
		t.Errorf("B followers after retransmit = %d, want 1", got)
	}
	if a.PendingRequests() != 0 {
		t.Errorf("pending requests = %d after recovered ACK, want 0", a.PendingRequests())
	}
}

func TestFollowNotAddressedToUsDropped(t *testing.T) {
	fn := newFakeNet()
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	// A FOLLOW addressed to carol lands on B's socket. B must neither
	// record the follower nor acknowledge on carol's behalf.
	auth := protocol.NewTokenAuthority()
	token := auth.Issue("alice@10.0.0.2", time.Hour, protocol.ScopeFollow)
	stray := protocol.NewFollow("alice@10.0.0.2", "carol@10.0.0.4", protocol.NewMessageID(), token.String())
	data, _ := stray.Encode()
	b.dispatch(data, &packetSrc)

	if len(b.Followers()) != 0 {
		t.Error("follower recorded from a FOLLOW addressed elsewhere")
	}
	select {
	case p := <-ftb.in:
		t.Errorf("unexpected reply sent: %s", p.data)
	default:
	}
}

func TestInboundFollowBadTokenNoAck(t *testing.T) {
	fn := newFakeNet()
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	// FOLLOW with a chat-scope token must be rejected without an ACK.
	bad := protocol.NewFollow("alice@10.0.0.2", b.ID(), protocol.NewMessageID(), "alice@10.0.0.2|9999999999|chat")
	data, _ := bad.Encode()
	b.dispatch(data, &packetSrc)

	if len(b.Followers()) != 0 {
		t.Error("follower recorded despite invalid token")
	}
	select {
	case p := <-ftb.in:
		t.Errorf("unexpected reply sent: %s", p.data)
	default:
	}
}

func TestUnfollowFlow(t *testing.T) {
	fn := newFakeNet()
	a, fta := newTestNode(t, fn, "alice", "10.0.0.2")
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	knowPeer(a, b.ID())
	knowPeer(b, a.ID())

	if err := a.Follow(b.ID()); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}
	pump(t, b, ftb, 1)
	pump(t, a, fta, 1)

	if err := a.Unfollow(b.ID()); err != nil {
		t.Fatalf("Unfollow() error: %v", err)
	}
	if got := a.rels.followingState(b.ID()); got != EdgePendingUnfollow {
		t.Errorf("state after Unfollow() = %s, want PENDING_UNFOLLOW", got)
	}

	pump(t, b, ftb, 1)
	if len(b.Followers()) != 0 {
		t.Error("B still lists A as follower after UNFOLLOW")
	}

	pump(t, a, fta, 1)
	if got := a.rels.followingState(b.ID()); got != EdgeNone {
		t.Errorf("state after unfollow ACK = %s, want NONE", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	fn := newFakeNet()
	ft := fn.transport("10.0.0.2")

	node, err := NewNode(Config{
		Name:           "alice",
		RequestTimeout: 200 * time.Millisecond,
		RetryBackoff:   20 * time.Millisecond,
		MaxAttempts:    2,
	}, ft)
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}

	timedOut := make(chan *PendingRequest, 1)
	node.OnRequestTimeout = func(req *PendingRequest) { timedOut <- req }

	node.Start()
	defer node.Close()

	// The target is known but nothing answers at its address.
	target := protocol.UserID("ghost@10.0.0.99")
	knowPeer(node, target)

	if err := node.Follow(target); err != nil {
		t.Fatalf("Follow() error: %v", err)
	}

	select {
	case req := <-timedOut:
		if req.Kind != RequestFollow || req.Target != target {
			t.Errorf("timeout for %s/%s, want FOLLOW/%s", req.Kind, req.Target, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("request never timed out")
	}

	if node.PendingRequests() != 0 {
		t.Errorf("pending requests = %d after timeout, want 0", node.PendingRequests())
	}
	if got := node.rels.followingState(target); got != EdgeNone {
		t.Errorf("edge state after timeout = %s, want NONE", got)
	}
}
