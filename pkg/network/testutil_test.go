package network

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// fakeNet is an in-memory broadcast segment wiring fake transports
// together by IP.
type fakeNet struct {
	mu    sync.Mutex
	nodes map[string]*fakeTransport
}

func newFakeNet() *fakeNet {
	return &fakeNet{nodes: make(map[string]*fakeTransport)}
}

type packet struct {
	data []byte
	src  *net.UDPAddr
}

type fakeTransport struct {
	fn   *fakeNet
	ip   string
	in   chan packet
	done chan struct{}
	once sync.Once
}

func (fn *fakeNet) transport(ip string) *fakeTransport {
	fn.mu.Lock()
	defer fn.mu.Unlock()

	t := &fakeTransport{
		fn:   fn,
		ip:   ip,
		in:   make(chan packet, 64),
		done: make(chan struct{}),
	}
	fn.nodes[ip] = t
	return t
}

func (t *fakeTransport) srcAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(t.ip), Port: protocol.DefaultPort}
}

func (t *fakeTransport) Send(data []byte, addr *net.UDPAddr) error {
	t.fn.mu.Lock()
	defer t.fn.mu.Unlock()

	deliver := func(dst *fakeTransport) {
		select {
		case dst.in <- packet{data: data, src: t.srcAddr()}:
		default: // fake segment drops on overflow, like UDP would
		}
	}

	if addr.IP.Equal(net.IPv4bcast) {
		for _, dst := range t.fn.nodes {
			deliver(dst)
		}
		return nil
	}

	if dst, ok := t.fn.nodes[addr.IP.String()]; ok {
		deliver(dst)
	}
	// Unknown destinations are silently dropped: UDP gives no feedback.
	return nil
}

func (t *fakeTransport) Receive() ([]byte, *net.UDPAddr, error) {
	select {
	case <-t.done:
		return nil, nil, net.ErrClosed
	case p := <-t.in:
		return p.data, p.src, nil
	}
}

func (t *fakeTransport) BroadcastAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: protocol.DefaultPort}
}

func (t *fakeTransport) LocalIP() string { return t.ip }

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// newTestNode creates an unstarted node on the fake segment. Tests pump
// packets by hand for determinism.
func newTestNode(t *testing.T, fn *fakeNet, name, ip string) (*Node, *fakeTransport) {
	t.Helper()

	ft := fn.transport(ip)
	node, err := NewNode(Config{Name: name, Bio: name + " bio"}, ft)
	if err != nil {
		t.Fatalf("NewNode() error: %v", err)
	}
	t.Cleanup(func() { node.Close() })
	return node, ft
}

// pump synchronously dispatches up to max queued packets into the node.
func pump(t *testing.T, node *Node, ft *fakeTransport, max int) int {
	t.Helper()

	delivered := 0
	for delivered < max {
		select {
		case p := <-ft.in:
			node.dispatch(p.data, p.src)
			delivered++
		case <-time.After(100 * time.Millisecond):
			return delivered
		}
	}
	return delivered
}

// packetSrc is a canned source address for hand-crafted datagrams.
var packetSrc = net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: protocol.DefaultPort}

// knowPeer seeds a directory entry for a peer.
func knowPeer(node *Node, id protocol.UserID) {
	node.directory.Upsert(id, &net.UDPAddr{IP: net.ParseIP(id.Host()), Port: protocol.DefaultPort})
}
