// Package protocol implements the LSNP wire protocol.
//
// The protocol package defines the datagram codec, message types, peer
// identities, and the capability-token scheme used by the LSNP local
// social networking protocol.
//
// # Wire Format
//
// LSNP messages are UTF-8 text datagrams. Each field is one line of the
// form "KEY: value" and a blank line terminates the message:
//
//	TYPE: DM
//	FROM: alice@192.168.1.10
//	TO: bob@192.168.1.11
//	CONTENT: hello
//	TIMESTAMP: 1724980000
//	MESSAGE_ID: f3a91c02d84b7e65
//	TOKEN: alice@192.168.1.10|1724983600|chat
//
// Keys are emitted upper-case and decoded lower-case. Lines without a
// ": " separator are skipped; decoding never fails, callers treat missing
// keys as absent fields. Values must not contain literal newlines.
//
// # Message Types
//
// Presence & discovery:
//   - PROFILE: broadcast identity announcement with display name and bio
//
// Relationships:
//   - FOLLOW/UNFOLLOW: acknowledged relationship requests
//   - ACK: correlates to a request via MESSAGE_ID
//
// Content:
//   - POST: broadcast-style post, unicast to each follower
//   - DM: acknowledged direct message
//
// Games:
//   - TICTACTOE_INVITE/MOVE/RESULT: two-party game session messages
//
// # Tokens
//
// Scoped capability tokens are serialized "subject|expiry|scope". They are
// authorization by convention, not authentication: tokens carry no
// signature, and validity means only that the claimed sender matches the
// subject, the scope matches the action, the expiry has not passed, and
// the token has not been revoked. A real deployment would add a MAC or
// signature.
package protocol
