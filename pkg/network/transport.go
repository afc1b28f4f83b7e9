package network

import (
	"fmt"
	"log"
	"net"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// Transport abstracts the datagram socket. Sends are fire-and-forget;
// Receive blocks until a datagram arrives or the transport is closed.
type Transport interface {
	Send(data []byte, addr *net.UDPAddr) error
	Receive() ([]byte, *net.UDPAddr, error)
	BroadcastAddr() *net.UDPAddr
	LocalIP() string
	Close() error
}

// UDPTransport is the production transport: one UDP socket bound to the
// well-known LSNP port, used for both unicast and broadcast.
type UDPTransport struct {
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	localIP   string
	buf       []byte
}

// NewUDPTransport binds the LSNP socket on the given port.
func NewUDPTransport(port int) (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP port %d: %v", port, err)
	}

	t := &UDPTransport{
		conn:      conn,
		broadcast: &net.UDPAddr{IP: broadcastIP(), Port: port},
		localIP:   localIP(),
		buf:       make([]byte, protocol.MaxDatagramSize),
	}

	return t, nil
}

// Send transmits one datagram to addr.
func (t *UDPTransport) Send(data []byte, addr *net.UDPAddr) error {
	_, err := t.conn.WriteToUDP(data, addr)
	return err
}

// Receive blocks for the next datagram and returns a copy of its payload
// together with the source address.
func (t *UDPTransport) Receive() ([]byte, *net.UDPAddr, error) {
	n, addr, err := t.conn.ReadFromUDP(t.buf)
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, n)
	copy(data, t.buf[:n])
	return data, addr, nil
}

// BroadcastAddr returns the segment broadcast address on the LSNP port.
func (t *UDPTransport) BroadcastAddr() *net.UDPAddr {
	return t.broadcast
}

// LocalIP returns the local IPv4 address used in the node identity.
func (t *UDPTransport) LocalIP() string {
	return t.localIP
}

// Close releases the socket, unblocking any pending Receive.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// broadcastIP walks the interfaces for a directed broadcast address and
// falls back to the limited broadcast address.
func broadcastIP() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPv4bcast
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if bcast := directedBroadcast(ipnet); bcast != nil {
				return bcast
			}
		}
	}

	return net.IPv4bcast
}

// directedBroadcast computes the directed broadcast address of an IPv4
// network. Some interfaces report an IPv4 address with a 16-byte mask,
// so the mask is trimmed to its last four bytes before use. Returns nil
// for non-IPv4 networks.
func directedBroadcast(ipnet *net.IPNet) net.IP {
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[net.IPv6len-net.IPv4len:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip4[i] | ^mask[i]
	}
	return bcast
}

// localIP finds the outbound IPv4 address without sending anything.
func localIP() string {
	conn, err := net.Dial("udp4", "10.255.255.255:1")
	if err != nil {
		log.Printf("Failed to determine local IP, using loopback: %v", err)
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
