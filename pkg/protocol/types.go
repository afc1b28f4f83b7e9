package protocol

import (
	"strings"

	"github.com/google/uuid"
)

// Protocol constants
const (
	// DefaultPort is the well-known LSNP UDP port.
	DefaultPort = 50999

	// MaxDatagramSize bounds inbound datagram reads.
	MaxDatagramSize = 8192
)

// Message types
const (
	TypeProfile  = "PROFILE"
	TypeFollow   = "FOLLOW"
	TypeUnfollow = "UNFOLLOW"
	TypeAck      = "ACK"
	TypePost     = "POST"
	TypeDM       = "DM"

	TypeGameInvite = "TICTACTOE_INVITE"
	TypeGameMove   = "TICTACTOE_MOVE"
	TypeGameResult = "TICTACTOE_RESULT"
)

// Token scopes
const (
	ScopeFollow = "follow"
	ScopePost   = "post"
	ScopeChat   = "chat"
	ScopeGame   = "game"
)

// Field keys (decoded form, always lower-case)
const (
	FieldType        = "type"
	FieldUserID      = "user_id"
	FieldFrom        = "from"
	FieldTo          = "to"
	FieldName        = "name"
	FieldBio         = "bio"
	FieldStatus      = "status"
	FieldContent     = "content"
	FieldMessageID   = "message_id"
	FieldToken       = "token"
	FieldTimestamp   = "timestamp"
	FieldTTL         = "ttl"
	FieldGameID      = "gameid"
	FieldSymbol      = "symbol"
	FieldPosition    = "position"
	FieldTurn        = "turn"
	FieldResult      = "result"
	FieldWinningLine = "winning_line"
)

// Game results, expressed from the recipient's perspective.
const (
	ResultWin  = "WIN"
	ResultLose = "LOSE"
	ResultDraw = "DRAW"
)

// requiredFields lists the fields a message must carry per type.
// Messages of unknown types are not validated here.
var requiredFields = map[string][]string{
	TypeProfile:    {FieldUserID, FieldName, FieldBio},
	TypeFollow:     {FieldFrom, FieldTo, FieldMessageID, FieldToken},
	TypeUnfollow:   {FieldFrom, FieldTo, FieldMessageID, FieldToken},
	TypeAck:        {FieldMessageID, FieldStatus},
	TypePost:       {FieldUserID, FieldContent, FieldMessageID, FieldToken, FieldTTL},
	TypeDM:         {FieldFrom, FieldTo, FieldContent, FieldMessageID, FieldToken, FieldTimestamp},
	TypeGameInvite: {FieldFrom, FieldTo, FieldGameID, FieldSymbol, FieldMessageID, FieldToken},
	TypeGameMove:   {FieldFrom, FieldTo, FieldGameID, FieldPosition, FieldSymbol, FieldTurn, FieldMessageID, FieldToken},
	TypeGameResult: {FieldFrom, FieldTo, FieldGameID, FieldResult, FieldSymbol},
}

// NewMessageID generates a 16-hex-character correlation id.
func NewMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
