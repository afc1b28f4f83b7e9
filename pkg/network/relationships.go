package network

import (
	"fmt"
	"log"
	"net"
	"sort"
	"sync"

	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// EdgeState is the local view of a directed follow edge toward a target.
type EdgeState string

const (
	EdgeNone            EdgeState = "NONE"
	EdgePending         EdgeState = "PENDING"
	EdgeActive          EdgeState = "ACTIVE"
	EdgePendingUnfollow EdgeState = "PENDING_UNFOLLOW"
)

// FollowEdge is a snapshot of one outbound relationship.
type FollowEdge struct {
	Target protocol.UserID
	State  EdgeState
}

// relationshipState holds both edge sets: who follows me (always
// ACTIVE; inbound follows are accepted once validated) and who I follow
// (PENDING until the ACK lands).
type relationshipState struct {
	mu        sync.RWMutex
	followers map[protocol.UserID]struct{}
	following map[protocol.UserID]EdgeState
}

func newRelationshipState() *relationshipState {
	return &relationshipState{
		followers: make(map[protocol.UserID]struct{}),
		following: make(map[protocol.UserID]EdgeState),
	}
}

func (r *relationshipState) followingState(target protocol.UserID) EdgeState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.following[target]; ok {
		return s
	}
	return EdgeNone
}

func (r *relationshipState) setFollowing(target protocol.UserID, state EdgeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state == EdgeNone {
		delete(r.following, target)
		return
	}
	r.following[target] = state
}

// addFollower records an inbound follower. Returns false when the
// follower was already present (idempotent re-delivery).
func (r *relationshipState) addFollower(id protocol.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.followers[id]; ok {
		return false
	}
	r.followers[id] = struct{}{}
	return true
}

// removeFollower drops an inbound follower if present.
func (r *relationshipState) removeFollower(id protocol.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.followers[id]; !ok {
		return false
	}
	delete(r.followers, id)
	return true
}

func (r *relationshipState) followerList() []protocol.UserID {
	r.mu.RLock()
	out := make([]protocol.UserID, 0, len(r.followers))
	for id := range r.followers {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *relationshipState) followingList() []FollowEdge {
	r.mu.RLock()
	out := make([]FollowEdge, 0, len(r.following))
	for id, state := range r.following {
		out = append(out, FollowEdge{Target: id, State: state})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// abort reverts the edge touched by a timed-out request: a failed
// follow goes back to NONE, a failed unfollow back to ACTIVE.
func (r *relationshipState) abort(req *PendingRequest) {
	switch req.Kind {
	case RequestFollow:
		r.setFollowing(req.Target, EdgeNone)
	case RequestUnfollow:
		r.setFollowing(req.Target, EdgeActive)
	}
}

// Followers returns who follows this node.
func (n *Node) Followers() []protocol.UserID { return n.rels.followerList() }

// Following returns the outbound follow edges and their states.
func (n *Node) Following() []FollowEdge { return n.rels.followingList() }

// Follow sends an acknowledged FOLLOW request to a known peer. The edge
// stays PENDING until the ACK arrives.
func (n *Node) Follow(target protocol.UserID) error {
	addr, err := n.peerAddr(target)
	if err != nil {
		return err
	}

	switch n.rels.followingState(target) {
	case EdgeActive:
		return fmt.Errorf("already following %s", target)
	case EdgePending:
		return fmt.Errorf("follow request to %s already pending", target)
	}

	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopeFollow)
	msg := protocol.NewFollow(n.id, target, protocol.NewMessageID(), token.String())

	n.rels.setFollowing(target, EdgePending)
	if err := n.sendRequest(RequestFollow, target, msg, addr); err != nil {
		n.rels.setFollowing(target, EdgeNone)
		return err
	}
	return nil
}

// Unfollow sends an acknowledged UNFOLLOW request for an active edge.
func (n *Node) Unfollow(target protocol.UserID) error {
	addr, err := n.peerAddr(target)
	if err != nil {
		return err
	}

	if n.rels.followingState(target) != EdgeActive {
		return fmt.Errorf("not following %s", target)
	}

	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopeFollow)
	msg := protocol.NewUnfollow(n.id, target, protocol.NewMessageID(), token.String())

	n.rels.setFollowing(target, EdgePendingUnfollow)
	if err := n.sendRequest(RequestUnfollow, target, msg, addr); err != nil {
		n.rels.setFollowing(target, EdgeActive)
		return err
	}
	return nil
}

// handleFollow processes an inbound FOLLOW addressed to this node.
// The token must validate; a rejected follow gets no ACK.
func (n *Node) handleFollow(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldFrom))

	if protocol.UserID(msg.Get(protocol.FieldTo)) != n.id {
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopeFollow, from); err != nil {
		log.Printf("Rejected FOLLOW from %s: %v", from, err)
		return
	}

	n.directory.Upsert(from, src)

	if n.rels.addFollower(from) {
		log.Printf("➕ %s is now following you", from.Name())
		if n.OnFollowerAdded != nil {
			n.OnFollowerAdded(from)
		}
	}

	n.ack(msg, src)
}

// handleUnfollow processes an inbound UNFOLLOW. The ACK is sent whether
// or not the sender was a follower, so re-delivery stays harmless.
func (n *Node) handleUnfollow(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldFrom))

	if protocol.UserID(msg.Get(protocol.FieldTo)) != n.id {
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopeFollow, from); err != nil {
		log.Printf("Rejected UNFOLLOW from %s: %v", from, err)
		return
	}

	if n.rels.removeFollower(from) {
		log.Printf("➖ %s unfollowed you", from.Name())
		if n.OnFollowerRemoved != nil {
			n.OnFollowerRemoved(from)
		}
	}

	n.ack(msg, src)
}

// handleAck correlates an inbound ACK with its pending request and
// drives the edge to its terminal state. Unknown ids are duplicates or
// expired requests and are dropped silently.
func (n *Node) handleAck(msg *protocol.Message, src *net.UDPAddr) {
	id := msg.Get(protocol.FieldMessageID)

	req, ok := n.pending.resolve(id)
	if !ok {
		return
	}

	switch req.Kind {
	case RequestFollow:
		n.rels.setFollowing(req.Target, EdgeActive)
		log.Printf("✓ Now following %s", req.Target)
		if n.OnFollowConfirmed != nil {
			n.OnFollowConfirmed(req.Target, req.Kind)
		}
	case RequestUnfollow:
		n.rels.setFollowing(req.Target, EdgeNone)
		log.Printf("✓ Unfollowed %s", req.Target)
		if n.OnFollowConfirmed != nil {
			n.OnFollowConfirmed(req.Target, req.Kind)
		}
	case RequestDM:
		log.Printf("✓ DM to %s delivered", req.Target)
	}
}

// ack replies with an ACK carrying the request's correlation id.
func (n *Node) ack(msg *protocol.Message, src *net.UDPAddr) {
	reply := protocol.NewAck(msg.Get(protocol.FieldMessageID))
	if err := n.send(reply, src); err != nil {
		log.Printf("Failed to send ACK: %v", err)
	}
}
