package network

import (
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/lsnp-net/lsnp-node/pkg/crypto"
	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// GameStatus is the lifecycle state of a tic-tac-toe session.
type GameStatus string

const (
	GameInvited  GameStatus = "INVITED"
	GameActive   GameStatus = "ACTIVE"
	GameFinished GameStatus = "FINISHED"
)

// GameSession is one two-party tic-tac-toe session. Board cells are ""
// when empty, "X" or "O" once played; cell 0 is the top-left corner.
type GameSession struct {
	ID             string
	Opponent       protocol.UserID
	MySymbol       string
	OpponentSymbol string
	Board          [9]string
	MyTurn         bool
	Moves          int
	Status         GameStatus
}

// winningTriples are the three rows, three columns, and two diagonals.
var winningTriples = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// winner returns the winning symbol and its line when the board has a
// completed triple.
func winner(board [9]string) (symbol string, line [3]int, ok bool) {
	for _, t := range winningTriples {
		if board[t[0]] != "" && board[t[0]] == board[t[1]] && board[t[1]] == board[t[2]] {
			return board[t[0]], t, true
		}
	}
	return "", [3]int{}, false
}

// isFull reports whether every cell is occupied.
func isFull(board [9]string) bool {
	for _, cell := range board {
		if cell == "" {
			return false
		}
	}
	return true
}

func formatLine(line [3]int) string {
	return fmt.Sprintf("%d,%d,%d", line[0], line[1], line[2])
}

func complement(symbol string) string {
	if symbol == "X" {
		return "O"
	}
	return "X"
}

// gameTable holds the active sessions.
type gameTable struct {
	mu    sync.RWMutex
	games map[string]*GameSession
}

func newGameTable() *gameTable {
	return &gameTable{games: make(map[string]*GameSession)}
}

func (g *gameTable) put(s *GameSession) {
	g.mu.Lock()
	g.games[s.ID] = s
	g.mu.Unlock()
}

func (g *gameTable) get(id string) (*GameSession, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.games[id]
	return s, ok
}

func (g *gameTable) remove(id string) {
	g.mu.Lock()
	delete(g.games, id)
	g.mu.Unlock()
}

func (g *gameTable) all() []GameSession {
	g.mu.RLock()
	out := make([]GameSession, 0, len(g.games))
	for _, s := range g.games {
		out = append(out, *s)
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Games returns a snapshot of the active sessions.
func (n *Node) Games() []GameSession { return n.games.all() }

// InviteGame starts a session against a known peer. The inviter keeps
// symbol for itself and the invitee plays the complement. The invitee
// moves first: its opening move is the implicit accept.
func (n *Node) InviteGame(target protocol.UserID, symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)
	if symbol != "X" && symbol != "O" {
		return "", fmt.Errorf("symbol must be X or O, got %q", symbol)
	}

	addr, err := n.peerAddr(target)
	if err != nil {
		return "", err
	}

	gameID := crypto.ShortID(n.id.String(), target.String())
	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopeGame)
	msg := protocol.NewGameInvite(n.id, target, gameID, symbol, protocol.NewMessageID(), token.String())

	if err := n.send(msg, addr); err != nil {
		return "", err
	}

	session := &GameSession{
		ID:             gameID,
		Opponent:       target,
		MySymbol:       symbol,
		OpponentSymbol: complement(symbol),
		MyTurn:         false,
		Status:         GameInvited,
	}
	n.games.put(session)

	log.Printf("🎮 Invited %s to game %s (you play %s)", target.Name(), gameID, symbol)
	return gameID, nil
}

// MakeMove plays a cell in an active session and transmits the move.
// The turn flips only after the transmission succeeds. A move that
// completes a winning triple or fills the board finishes the session and
// sends the single RESULT datagram.
func (n *Node) MakeMove(gameID string, position int) error {
	if position < 0 || position > 8 {
		return fmt.Errorf("position %d out of range [0,8]", position)
	}

	session, ok := n.games.get(gameID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, gameID)
	}

	n.games.mu.Lock()
	if session.Status == GameFinished {
		n.games.mu.Unlock()
		return fmt.Errorf("game %s already finished", gameID)
	}
	if !session.MyTurn {
		n.games.mu.Unlock()
		return fmt.Errorf("not your turn in game %s", gameID)
	}
	if session.Board[position] != "" {
		n.games.mu.Unlock()
		return fmt.Errorf("cell %d already taken", position)
	}

	session.Board[position] = session.MySymbol
	session.Moves++
	session.Status = GameActive
	board := session.Board
	mySymbol := session.MySymbol
	opponent := session.Opponent
	turn := session.Moves
	n.games.mu.Unlock()

	addr, err := n.peerAddr(opponent)
	if err != nil {
		return err
	}

	token := n.tokens.Issue(n.id, n.cfg.TokenTTL, protocol.ScopeGame)
	msg := protocol.NewGameMove(n.id, opponent, gameID, position, mySymbol, turn, protocol.NewMessageID(), token.String())
	if err := n.send(msg, addr); err != nil {
		return err
	}

	n.games.mu.Lock()
	session.MyTurn = false
	n.games.mu.Unlock()

	n.settleBoard(session, board, mySymbol, addr)
	return nil
}

// settleBoard checks for a terminal position after a local move and, if
// reached, sends the RESULT (expressed from the opponent's perspective)
// and finishes the session.
func (n *Node) settleBoard(session *GameSession, board [9]string, mover string, addr *net.UDPAddr) {
	winSym, line, won := winner(board)

	var result, winningLine string
	switch {
	case won && winSym == mover:
		result = protocol.ResultLose // recipient's perspective
		winningLine = formatLine(line)
	case won:
		result = protocol.ResultWin
		winningLine = formatLine(line)
	case isFull(board):
		result = protocol.ResultDraw
	default:
		return
	}

	msg := protocol.NewGameResult(n.id, session.Opponent, session.ID, result, mover, winningLine)
	if err := n.send(msg, addr); err != nil {
		log.Printf("Failed to send game result: %v", err)
	}

	n.finishGame(session, result, winningLine, true)
}

// finishGame transitions a session to FINISHED and drops it from the
// active table. The result is given from this node's perspective when
// local is false (inbound RESULT), or the opponent's when local is true.
func (n *Node) finishGame(session *GameSession, result, winningLine string, local bool) {
	n.games.mu.Lock()
	session.Status = GameFinished
	snapshot := *session
	n.games.mu.Unlock()
	n.games.remove(session.ID)

	note := result
	if local {
		// Invert the perspective for our own log line.
		switch result {
		case protocol.ResultWin:
			note = protocol.ResultLose
		case protocol.ResultLose:
			note = protocol.ResultWin
		}
	}
	if winningLine != "" {
		note += " (line " + winningLine + ")"
	}

	log.Printf("🏁 Game %s finished: %s", session.ID, note)
	if n.OnGameEvent != nil {
		n.OnGameEvent(snapshot, note)
	}
}

// handleGameInvite creates the invitee side of a session. The first
// move is the implicit accept.
func (n *Node) handleGameInvite(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldFrom))

	if protocol.UserID(msg.Get(protocol.FieldTo)) != n.id {
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopeGame, from); err != nil {
		log.Printf("Rejected game invite from %s: %v", from, err)
		return
	}

	gameID := msg.Get(protocol.FieldGameID)
	inviterSymbol := strings.ToUpper(msg.Get(protocol.FieldSymbol))
	if inviterSymbol != "X" && inviterSymbol != "O" {
		log.Printf("Dropped game invite %s: bad symbol %q", gameID, inviterSymbol)
		return
	}

	if _, exists := n.games.get(gameID); exists {
		// Duplicate invite for a session we already track.
		return
	}

	n.directory.Upsert(from, src)

	mySymbol := complement(inviterSymbol)
	session := &GameSession{
		ID:             gameID,
		Opponent:       from,
		MySymbol:       mySymbol,
		OpponentSymbol: inviterSymbol,
		MyTurn:         true, // first move accepts the invite
		Status:         GameInvited,
	}
	n.games.put(session)

	log.Printf("🎮 %s invites you to tic-tac-toe (game %s, you play %s)", from.Name(), gameID, mySymbol)
	if n.OnGameEvent != nil {
		n.OnGameEvent(*session, "invited")
	}
}

// handleGameMove applies an opponent's move. Moves for unknown or
// finished sessions are ignored with a diagnostic: either no session was
// established or it already ended.
func (n *Node) handleGameMove(msg *protocol.Message, src *net.UDPAddr) {
	from := protocol.UserID(msg.Get(protocol.FieldFrom))
	gameID := msg.Get(protocol.FieldGameID)

	if protocol.UserID(msg.Get(protocol.FieldTo)) != n.id {
		return
	}
	if err := n.tokens.Validate(msg.Get(protocol.FieldToken), protocol.ScopeGame, from); err != nil {
		log.Printf("Rejected game move from %s: %v", from, err)
		return
	}

	session, ok := n.games.get(gameID)
	if !ok {
		log.Printf("Ignoring move for unknown game %s (never established or already finished)", gameID)
		return
	}

	position := int(msg.GetInt(protocol.FieldPosition, -1))
	if position < 0 || position > 8 {
		log.Printf("Dropped move in game %s: position out of range", gameID)
		return
	}

	n.games.mu.Lock()
	if session.Status == GameFinished {
		n.games.mu.Unlock()
		log.Printf("Ignoring move for finished game %s", gameID)
		return
	}
	if session.Board[position] != "" {
		n.games.mu.Unlock()
		log.Printf("Dropped move in game %s: cell %d already taken", gameID, position)
		return
	}

	session.Board[position] = session.OpponentSymbol
	session.Moves++
	session.Status = GameActive
	session.MyTurn = true
	board := session.Board
	snapshot := *session
	n.games.mu.Unlock()

	log.Printf("🎮 [game %s] %s played cell %d", gameID, from.Name(), position)
	if n.OnGameEvent != nil {
		n.OnGameEvent(snapshot, "move")
	}

	// The mover reports the terminal result; finish locally as well so a
	// lost RESULT datagram cannot strand the session.
	if winSym, line, won := winner(board); won {
		result := protocol.ResultLose
		if winSym == snapshot.MySymbol {
			result = protocol.ResultWin
		}
		n.finishGame(session, result, formatLine(line), false)
		return
	}
	if isFull(board) {
		n.finishGame(session, protocol.ResultDraw, "", false)
	}
}

// handleGameResult finishes a session on the reporting side's word.
func (n *Node) handleGameResult(msg *protocol.Message, src *net.UDPAddr) {
	gameID := msg.Get(protocol.FieldGameID)

	if protocol.UserID(msg.Get(protocol.FieldTo)) != n.id {
		return
	}
	session, ok := n.games.get(gameID)
	if !ok {
		log.Printf("Result for unknown game %s: %s", gameID, msg.Get(protocol.FieldResult))
		return
	}

	n.finishGame(session, msg.Get(protocol.FieldResult), msg.Get(protocol.FieldWinningLine), false)
}
