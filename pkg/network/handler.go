package network

import (
	"errors"
	"log"
	"net"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// listenLoop blocks on the transport and dispatches every inbound
// datagram. One bad datagram never stops the loop.
func (n *Node) listenLoop() {
	defer n.wg.Done()

	for {
		data, src, err := n.transport.Receive()
		if err != nil {
			select {
			case <-n.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Receive error: %v", err)
			continue
		}

		n.dispatch(data, src)
	}
}

// dispatch decodes a datagram and routes it: malformed messages are
// dropped, self-originated messages are filtered, the claimed sender is
// checked against the source address, and duplicates are absorbed before
// any handler runs.
func (n *Node) dispatch(data []byte, src *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling datagram: %v", r)
		}
	}()

	msg := protocol.Decode(data)
	if msg.Type() == "" {
		return
	}
	if err := msg.Validate(); err != nil {
		log.Printf("Dropped %s from %s: %v", msg.Type(), src.IP, err)
		return
	}

	sender := n.sender(msg)

	// Self-origin filter: our own broadcasts come back on the same
	// socket.
	if sender == n.id {
		return
	}

	// Spoof check: the claimed sender must match the address the packet
	// actually came from.
	if sender != "" && sender.Host() != src.IP.String() {
		log.Printf("⚠️  Spoof detected: sender claims %s but packet came from %s", sender, src.IP)
		return
	}

	// Duplicate suppression over the bounded seen-id window. PROFILE
	// has no correlation id and is refresh-idempotent anyway.
	// Acknowledged request types are exempt: the retry loop resends
	// them under the same correlation id, and a retransmission must
	// reach the handler so a lost ACK can be answered again. Their
	// handlers absorb the duplicate themselves.
	if id := msg.Get(protocol.FieldMessageID); id != "" && !needsAck(msg.Type()) {
		if dup, _ := n.seen.ContainsOrAdd(id, struct{}{}); dup {
			return
		}
	}

	switch msg.Type() {
	case protocol.TypeProfile:
		n.handleProfile(msg, src)
	case protocol.TypeFollow:
		n.handleFollow(msg, src)
	case protocol.TypeUnfollow:
		n.handleUnfollow(msg, src)
	case protocol.TypeAck:
		n.handleAck(msg, src)
	case protocol.TypePost:
		n.handlePost(msg, src)
	case protocol.TypeDM:
		n.handleDM(msg, src)
	case protocol.TypeGameInvite:
		n.handleGameInvite(msg, src)
	case protocol.TypeGameMove:
		n.handleGameMove(msg, src)
	case protocol.TypeGameResult:
		n.handleGameResult(msg, src)
	default:
		log.Printf("Unknown message type %s from %s", msg.Type(), src.IP)
	}
}

// needsAck reports whether a message type is an acknowledged request,
// meaning every delivery of it must be answered with an ACK.
func needsAck(msgType string) bool {
	switch msgType {
	case protocol.TypeFollow, protocol.TypeUnfollow, protocol.TypeDM:
		return true
	}
	return false
}

// sender extracts the claimed sender identity of a message.
func (n *Node) sender(msg *protocol.Message) protocol.UserID {
	if from := msg.Get(protocol.FieldFrom); from != "" {
		return protocol.UserID(from)
	}
	return protocol.UserID(msg.Get(protocol.FieldUserID))
}

// handleProfile refreshes the directory with an announced profile.
func (n *Node) handleProfile(msg *protocol.Message, src *net.UDPAddr) {
	id := protocol.UserID(msg.Get(protocol.FieldUserID))

	_, known := n.directory.Lookup(id)
	n.directory.UpsertProfile(
		id,
		src,
		msg.Get(protocol.FieldName),
		msg.Get(protocol.FieldBio),
		msg.Get(protocol.FieldStatus),
	)

	if !known {
		log.Printf("👋 Discovered peer %s (%s)", id, msg.Get(protocol.FieldName))
		if n.OnPeerDiscovered != nil {
			if rec, ok := n.directory.Lookup(id); ok {
				n.OnPeerDiscovered(rec)
			}
		}
	}
}
