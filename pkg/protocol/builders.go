package protocol

import (
	"fmt"
	"time"
)

// NewProfile builds a PROFILE announcement. Status is optional and only
// emitted when non-empty.
func NewProfile(userID UserID, name, bio, status string) *Message {
	m := NewMessage(TypeProfile).
		Set(FieldUserID, userID.String()).
		Set(FieldName, name).
		Set(FieldBio, bio)
	if status != "" {
		m.Set(FieldStatus, status)
	}
	m.Set(FieldTimestamp, fmt.Sprint(time.Now().Unix()))
	return m
}

// NewFollow builds a FOLLOW request carrying a fresh correlation id.
func NewFollow(from, to UserID, messageID, token string) *Message {
	return NewMessage(TypeFollow).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldMessageID, messageID).
		Set(FieldToken, token)
}

// NewUnfollow builds an UNFOLLOW request.
func NewUnfollow(from, to UserID, messageID, token string) *Message {
	return NewMessage(TypeUnfollow).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldMessageID, messageID).
		Set(FieldToken, token)
}

// NewAck builds an ACK for the given correlation id.
func NewAck(messageID string) *Message {
	return NewMessage(TypeAck).
		Set(FieldMessageID, messageID).
		Set(FieldStatus, "ok")
}

// NewPost builds a POST. The TTL field is the absolute expiry of the
// post in epoch seconds.
func NewPost(userID UserID, content, messageID, token string, ttl time.Duration) *Message {
	now := time.Now()
	return NewMessage(TypePost).
		Set(FieldUserID, userID.String()).
		Set(FieldContent, content).
		Set(FieldTTL, fmt.Sprint(now.Add(ttl).Unix())).
		Set(FieldMessageID, messageID).
		Set(FieldToken, token).
		Set(FieldTimestamp, fmt.Sprint(now.Unix()))
}

// NewDM builds a direct message.
func NewDM(from, to UserID, content, messageID, token string) *Message {
	return NewMessage(TypeDM).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldContent, content).
		Set(FieldTimestamp, fmt.Sprint(time.Now().Unix())).
		Set(FieldMessageID, messageID).
		Set(FieldToken, token)
}

// NewGameInvite builds a TICTACTOE_INVITE. Symbol is the symbol the
// inviter keeps for itself; the invitee plays the complement.
func NewGameInvite(from, to UserID, gameID, symbol, messageID, token string) *Message {
	return NewMessage(TypeGameInvite).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldGameID, gameID).
		Set(FieldSymbol, symbol).
		Set(FieldMessageID, messageID).
		Set(FieldTimestamp, fmt.Sprint(time.Now().Unix())).
		Set(FieldToken, token)
}

// NewGameMove builds a TICTACTOE_MOVE for board cell position (0-8).
func NewGameMove(from, to UserID, gameID string, position int, symbol string, turn int, messageID, token string) *Message {
	return NewMessage(TypeGameMove).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldGameID, gameID).
		Set(FieldPosition, fmt.Sprint(position)).
		Set(FieldSymbol, symbol).
		Set(FieldTurn, fmt.Sprint(turn)).
		Set(FieldMessageID, messageID).
		Set(FieldToken, token)
}

// NewGameResult builds a TICTACTOE_RESULT. The result is expressed from
// the recipient's perspective; winningLine is "a,b,c" cell indices and
// may be empty for a draw.
func NewGameResult(from, to UserID, gameID, result, symbol, winningLine string) *Message {
	m := NewMessage(TypeGameResult).
		Set(FieldFrom, from.String()).
		Set(FieldTo, to.String()).
		Set(FieldGameID, gameID).
		Set(FieldMessageID, NewMessageID()).
		Set(FieldResult, result).
		Set(FieldSymbol, symbol)
	if winningLine != "" {
		m.Set(FieldWinningLine, winningLine)
	}
	m.Set(FieldTimestamp, fmt.Sprint(time.Now().Unix()))
	return m
}
