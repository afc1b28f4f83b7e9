package network

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
	"github.com/lsnp-net/lsnp-node/pkg/storage"
)

// Post sends a broadcast post as one unicast datagram per follower.
// Followers without a resolvable address are skipped with a warning.
func (n *Node) Post(content string) error {
	followers := n.rels.followerList()
	if len(followers) == 0 {
		return fmt.Errorf("no followers to post to")
	}

	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopePost)
	msg := protocol.NewPost(n.id, content, protocol.NewMessageID(), token.String(), n.cfg.PostTTL)

	sent := 0
	for _, follower := range followers {
		addr, err := n.peerAddr(follower)
		if err != nil {
			log.Printf("⚠️  Skipping follower %s: %v", follower, err)
			continue
		}
		if err := n.send(msg, addr); err != nil {
			log.Printf("⚠️  Failed to send post to %s: %v", follower, err)
			continue
		}
		sent++
	}

	log.Printf("📤 Post sent to %d/%d followers", sent, len(followers))
	return nil
}

// SendDM sends an acknowledged direct message to a known peer. The
// message is appended to local history optimistically, before the ACK.
func (n *Node) SendDM(target protocol.UserID, content string) error {
	addr, err := n.peerAddr(target)
	if err != nil {
		return err
	}

	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopeChat)
	msg := protocol.NewDM(n.id, target, content, protocol.NewMessageID(), token.String())

	if err := n.history.SaveMessage(&storage.StoredMessage{
		PeerID:     target.String(),
		MessageID:  msg.Get(protocol.FieldMessageID),
		FromID:     n.id.String(),
		ToID:       target.String(),
		Content:    content,
		Timestamp:  time.Now().Unix(),
		IsOutgoing: true,
	}); err != nil {
		return err
	}

	return n.sendRequest(RequestDM, target, msg, addr)
}

// handlePost processes an inbound POST. Posts are only shown when they
// come from a peer this node follows, carry a valid post-scope token,
// and have not outlived their TTL.
func (n *Node) handlePost(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldUserID))

	if msg.Expired(time.Now()) {
		log.Printf("Dropped POST from %s: TTL expired", from)
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopePost, from); err != nil {
		log.Printf("Rejected POST from %s: %v", from, err)
		return
	}
	if n.rels.followingState(from) != EdgeActive {
		log.Printf("Ignoring POST from %s: not following", from)
		return
	}

	n.directory.Upsert(from, src)

	if err := n.history.SavePost(&storage.StoredPost{
		MessageID: msg.Get(protocol.FieldMessageID),
		UserID:    from.String(),
		Content:   msg.Get(protocol.FieldContent),
		Timestamp: msg.GetInt(protocol.FieldTimestamp, time.Now().Unix()),
		ExpiresAt: msg.GetInt(protocol.FieldTTL, 0),
	}); err != nil {
		log.Printf("Failed to store post: %v", err)
	}

	log.Printf("📰 [POST] %s: %s", from, msg.Get(protocol.FieldContent))
	if n.OnPostReceived != nil {
		n.OnPostReceived(from, msg.Get(protocol.FieldContent))
	}
}

// handleDM processes an inbound direct message: it must be addressed to
// this node and pass chat-scope token validation, then it is appended to
// history and acknowledged.
func (n *Node) handleDM(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldFrom))
	to := protocol.UserID(msg.Get(protocol.FieldTo))

	if to != n.id {
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopeChat, from); err != nil {
		log.Printf("Rejected DM from %s: %v", from, err)
		return
	}

	n.directory.Upsert(from, src)

	if err := n.history.SaveMessage(&storage.StoredMessage{
		PeerID:    from.String(),
		MessageID: msg.Get(protocol.FieldMessageID),
		FromID:    from.String(),
		ToID:      n.id.String(),
		Content:   msg.Get(protocol.FieldContent),
		Timestamp: msg.GetInt(protocol.FieldTimestamp, time.Now().Unix()),
	}); err != nil {
		// Redelivered DM: the UNIQUE constraint blocks a second append.
		// Re-ACK so the sender stops retrying, but surface nothing.
		n.ack(msg, src)
		return
	}

	log.Printf("📨 [DM] %s: %s", from, msg.Get(protocol.FieldContent))
	if n.OnDMReceived != nil {
		n.OnDMReceived(from, msg.Get(protocol.FieldContent))
	}

	n.ack(msg, src)
}
