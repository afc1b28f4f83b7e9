package network

import (
	"net"
	"testing"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

func TestDispatchSelfOriginFiltered(t *testing.T) {
	fn := newFakeNet()
	a, _ := newTestNode(t, fn, "alice", "10.0.0.2")

	// Our own broadcast comes back on the same socket.
	profile := protocol.NewProfile(a.ID(), "alice", "bio", "")
	data, _ := profile.Encode()
	a.dispatch(data, &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: protocol.DefaultPort})

	if a.directory.Len() != 0 {
		t.Error("node recorded itself as a peer")
	}
}

func TestDispatchSpoofRejected(t *testing.T) {
	fn := newFakeNet()
	b, _ := newTestNode(t, fn, "bob", "10.0.0.3")

	auth := protocol.NewTokenAuthority()
	token := auth.Issue("alice@10.0.0.2", time.Hour, protocol.ScopeChat)
	dm := protocol.NewDM("alice@10.0.0.2", b.ID(), "pretend I am alice", protocol.NewMessageID(), token.String())
	data, _ := dm.Encode()

	// The packet claims alice's address but arrives from elsewhere.
	b.dispatch(data, &net.UDPAddr{IP: net.ParseIP("10.0.0.66"), Port: protocol.DefaultPort})

	conv, _ := b.History().GetConversation("alice@10.0.0.2")
	if len(conv) != 0 {
		t.Error("spoofed DM was accepted")
	}
}

func TestDispatchMalformedDropped(t *testing.T) {
	fn := newFakeNet()
	b, _ := newTestNode(t, fn, "bob", "10.0.0.3")

	// No type, garbage, and a FOLLOW missing its token: all dropped
	// without panicking the dispatcher.
	b.dispatch([]byte("not a message"), &packetSrc)
	b.dispatch([]byte{0x00, 0xff, 0xfe}, &packetSrc)

	incomplete := protocol.NewMessage(protocol.TypeFollow).
		Set(protocol.FieldFrom, "alice@10.0.0.2").
		Set(protocol.FieldTo, b.ID().String())
	data, _ := incomplete.Encode()
	b.dispatch(data, &packetSrc)

	if len(b.Followers()) != 0 {
		t.Error("incomplete FOLLOW was processed")
	}
}

func TestProfileDiscovery(t *testing.T) {
	fn := newFakeNet()
	b, _ := newTestNode(t, fn, "bob", "10.0.0.3")

	discovered := make(chan PeerRecord, 1)
	b.OnPeerDiscovered = func(rec PeerRecord) { discovered <- rec }

	profile := protocol.NewProfile("alice@10.0.0.2", "Alice", "hello there", "busy")
	data, _ := profile.Encode()
	b.dispatch(data, &packetSrc)

	rec, ok := b.directory.Lookup("alice@10.0.0.2")
	if !ok {
		t.Fatal("PROFILE did not create a directory entry")
	}
	if rec.DisplayName != "Alice" || rec.Bio != "hello there" || rec.Status != "busy" {
		t.Errorf("profile not replicated: %+v", rec)
	}

	addr, err := rec.UDPAddr()
	if err != nil {
		t.Fatalf("UDPAddr() error: %v", err)
	}
	if addr.IP.String() != "10.0.0.2" || addr.Port != protocol.DefaultPort {
		t.Errorf("UDPAddr() = %v, want 10.0.0.2:%d", addr, protocol.DefaultPort)
	}

	select {
	case <-discovered:
	default:
		t.Error("OnPeerDiscovered not invoked for a new peer")
	}

	// A second PROFILE refreshes, it does not re-discover.
	profile2 := protocol.NewProfile("alice@10.0.0.2", "Alice", "updated bio", "")
	data2, _ := profile2.Encode()
	b.dispatch(data2, &packetSrc)

	select {
	case <-discovered:
		t.Error("OnPeerDiscovered invoked again for a known peer")
	default:
	}

	rec, _ = b.directory.Lookup("alice@10.0.0.2")
	if rec.Bio != "updated bio" {
		t.Errorf("profile refresh not applied: bio = %q", rec.Bio)
	}
}

func TestDirectorySweepIdle(t *testing.T) {
	d := NewDirectory()
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: protocol.DefaultPort}

	d.Upsert("old@10.0.0.2", addr)
	d.Upsert("fresh@10.0.0.3", &net.UDPAddr{IP: net.ParseIP("10.0.0.3"), Port: protocol.DefaultPort})

	// Age the first record by hand.
	d.mu.Lock()
	d.peers["old@10.0.0.2"].LastSeen = time.Now().Add(-10 * time.Minute)
	d.mu.Unlock()

	removed := d.SweepIdle(5 * time.Minute)
	if removed != 1 {
		t.Errorf("SweepIdle() removed %d, want 1", removed)
	}
	if _, ok := d.Lookup("old@10.0.0.2"); ok {
		t.Error("idle peer survived the sweep")
	}
	if _, ok := d.Lookup("fresh@10.0.0.3"); !ok {
		t.Error("fresh peer was swept")
	}
}

func TestNodeStartClose(t *testing.T) {
	fn := newFakeNet()
	ft := fn.transport("10.0.0.2")

	node, err := NewNode(Config{Name: "alice", PresenceInterval: 50 * time.Millisecond}, ft)
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}

	node.Start()

	if node.ID() != "alice@10.0.0.2" {
		t.Errorf("ID() = %s, want alice@10.0.0.2", node.ID())
	}
	if node.Uptime() < 0 {
		t.Error("Uptime() negative")
	}

	// Close is idempotent and joins every loop.
	if err := node.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := node.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestRevokedTokenRejected(t *testing.T) {
	fn := newFakeNet()
	a, _ := newTestNode(t, fn, "alice", "10.0.0.2")
	b, ftb := newTestNode(t, fn, "bob", "10.0.0.3")

	knowPeer(a, b.ID())

	if err := a.SendDM(b.ID(), "first"); err != nil {
		t.Fatalf("SendDM() error: %v", err)
	}

	p := <-ftb.in
	msg := protocol.Decode(p.data)
	b.RevokeToken(msg.Get(protocol.FieldToken))

	b.dispatch(p.data, p.src)

	conv, _ := b.History().GetConversation(a.ID().String())
	if len(conv) != 0 {
		t.Error("DM with a revoked token was accepted")
	}
}
