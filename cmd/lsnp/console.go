package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lsnp-net/lsnp-node/pkg/network"
	"github.com/lsnp-net/lsnp-node/pkg/protocol"
)

// console runs the interactive command loop until EOF or "exit".
func console(node *network.Node) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}

		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			return
		}
		execute(node, cmd, args)
		fmt.Print("> ")
	}
}

func execute(node *network.Node, cmd string, args []string) {
	switch cmd {
	case "help":
		printHelp()

	case "peers":
		peers := node.Peers()
		if len(peers) == 0 {
			fmt.Println("No peers discovered yet.")
			return
		}
		for _, p := range peers {
			name := p.DisplayName
			if name == "" {
				name = p.ID.Name()
			}
			fmt.Printf("  %-30s %-15s last seen %s ago\n", p.ID, name, time.Since(p.LastSeen).Round(time.Second))
		}

	case "follow":
		withPeer(node, args, func(target protocol.UserID) {
			if err := node.Follow(target); err != nil {
				fmt.Printf("Cannot follow: %v\n", err)
				return
			}
			fmt.Printf("Follow request sent to %s, waiting for acknowledgement...\n", target.Name())
		})

	case "unfollow":
		withPeer(node, args, func(target protocol.UserID) {
			if err := node.Unfollow(target); err != nil {
				fmt.Printf("Cannot unfollow: %v\n", err)
				return
			}
			fmt.Printf("Unfollow request sent to %s...\n", target.Name())
		})

	case "followers":
		followers := node.Followers()
		if len(followers) == 0 {
			fmt.Println("Nobody follows you yet.")
			return
		}
		for _, id := range followers {
			fmt.Printf("  %s\n", id)
		}

	case "following":
		edges := node.Following()
		if len(edges) == 0 {
			fmt.Println("You follow nobody.")
			return
		}
		for _, e := range edges {
			fmt.Printf("  %-30s %s\n", e.Target, e.State)
		}

	case "post":
		if len(args) == 0 {
			fmt.Println("Usage: post <text>")
			return
		}
		if err := node.Post(strings.Join(args, " ")); err != nil {
			fmt.Printf("Cannot post: %v\n", err)
			return
		}
		fmt.Println("Post sent to all followers.")

	case "dm":
		if len(args) < 2 {
			fmt.Println("Usage: dm <peer> <text>")
			return
		}
		withPeer(node, args[:1], func(target protocol.UserID) {
			if err := node.SendDM(target, strings.Join(args[1:], " ")); err != nil {
				fmt.Printf("Cannot send DM: %v\n", err)
				return
			}
			fmt.Printf("DM sent to %s, awaiting acknowledgement...\n", target.Name())
		})

	case "posts":
		posts, err := node.History().GetPosts()
		if err != nil {
			fmt.Printf("Cannot read feed: %v\n", err)
			return
		}
		if len(posts) == 0 {
			fmt.Println("Your feed is empty.")
			return
		}
		for _, p := range posts {
			at := time.Unix(p.Timestamp, 0).Format("15:04:05")
			fmt.Printf("  [%s] %s: %s\n", at, p.UserID, p.Content)
		}

	case "dms":
		withPeer(node, args, func(target protocol.UserID) {
			msgs, err := node.History().GetConversation(target.String())
			if err != nil {
				fmt.Printf("Cannot read conversation: %v\n", err)
				return
			}
			if len(msgs) == 0 {
				fmt.Printf("No messages with %s.\n", target.Name())
				return
			}
			for _, m := range msgs {
				arrow := "←"
				if m.IsOutgoing {
					arrow = "→"
				}
				at := time.Unix(m.Timestamp, 0).Format("15:04:05")
				fmt.Printf("  [%s] %s %s\n", at, arrow, m.Content)
			}
		})

	case "ttinvite":
		if len(args) == 0 {
			fmt.Println("Usage: ttinvite <peer> [X|O]")
			return
		}
		symbol := "X"
		if len(args) > 1 {
			symbol = args[1]
		}
		withPeer(node, args[:1], func(target protocol.UserID) {
			gameID, err := node.InviteGame(target, symbol)
			if err != nil {
				fmt.Printf("Cannot invite: %v\n", err)
				return
			}
			fmt.Printf("🎮 Invited %s to game %s. They make the first move.\n", target.Name(), gameID)
		})

	case "ttaccept":
		if len(args) != 1 {
			fmt.Println("Usage: ttaccept <game>")
			return
		}
		g, ok := findGame(node, args[0])
		if !ok {
			fmt.Printf("No game %q. Try 'ttgames'.\n", args[0])
			return
		}
		if g.Status != network.GameInvited || !g.MyTurn {
			fmt.Printf("Game %s needs no acceptance.\n", g.ID)
			return
		}
		fmt.Printf("You play %s against %s. Your first move accepts the invite:\n", g.MySymbol, g.Opponent.Name())
		fmt.Print(renderBoard(g.Board))
		fmt.Printf("Play with: ttmove %s <position 0-8>\n", g.ID)

	case "ttmove":
		if len(args) != 2 {
			fmt.Println("Usage: ttmove <game> <position 0-8>")
			return
		}
		position, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("Position must be a number: %v\n", err)
			return
		}
		if err := node.MakeMove(args[0], position); err != nil {
			fmt.Printf("Cannot move: %v\n", err)
			return
		}
		if g, ok := findGame(node, args[0]); ok {
			fmt.Print(renderBoard(g.Board))
		}

	case "ttgames":
		games := node.Games()
		if len(games) == 0 {
			fmt.Println("No active games.")
			return
		}
		for _, g := range games {
			turn := "their turn"
			if g.MyTurn {
				turn = "YOUR turn"
			}
			fmt.Printf("  %s vs %s (%s, you are %s, %s)\n", g.ID, g.Opponent.Name(), g.Status, g.MySymbol, turn)
			fmt.Print(renderBoard(g.Board))
		}

	case "revoke":
		if len(args) != 1 {
			fmt.Println("Usage: revoke <token>")
			return
		}
		node.RevokeToken(args[0])
		fmt.Println("Token revoked. Messages carrying it will be rejected.")

	default:
		fmt.Printf("Unknown command %q. Type 'help'.\n", cmd)
	}
}

// withPeer resolves the first argument to a peer id, accepting either a
// full user id or a bare name known from the directory.
func withPeer(node *network.Node, args []string, fn func(protocol.UserID)) {
	if len(args) == 0 {
		fmt.Println("A peer is required.")
		return
	}
	arg := args[0]

	if strings.Contains(arg, "@") {
		if _, _, err := protocol.ParseUserID(arg); err != nil {
			fmt.Printf("Bad peer id: %v\n", err)
			return
		}
		fn(protocol.UserID(arg))
		return
	}

	var matches []protocol.UserID
	for _, p := range node.Peers() {
		if p.ID.Name() == arg || p.DisplayName == arg {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		fmt.Printf("No known peer named %q. Try 'peers'.\n", arg)
	case 1:
		fn(matches[0])
	default:
		fmt.Printf("%q is ambiguous, use a full id:\n", arg)
		for _, id := range matches {
			fmt.Printf("  %s\n", id)
		}
	}
}

func findGame(node *network.Node, gameID string) (network.GameSession, bool) {
	for _, g := range node.Games() {
		if g.ID == gameID {
			return g, true
		}
	}
	return network.GameSession{}, false
}

// renderBoard draws the 3x3 board with cell numbers in empty cells.
func renderBoard(board [9]string) string {
	cell := func(i int) string {
		if board[i] == "" {
			return strconv.Itoa(i)
		}
		return board[i]
	}

	var b strings.Builder
	for row := 0; row < 3; row++ {
		fmt.Fprintf(&b, "   %s | %s | %s\n", cell(row*3), cell(row*3+1), cell(row*3+2))
		if row < 2 {
			b.WriteString("  ---+---+---\n")
		}
	}
	return b.String()
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  peers                    list discovered peers")
	fmt.Println("  follow <peer>            follow a peer (acknowledged)")
	fmt.Println("  unfollow <peer>          stop following a peer")
	fmt.Println("  followers                who follows you")
	fmt.Println("  following                who you follow")
	fmt.Println("  post <text>              send a post to all followers")
	fmt.Println("  posts                    show your feed")
	fmt.Println("  dm <peer> <text>         send a direct message")
	fmt.Println("  dms <peer>               show a conversation")
	fmt.Println("  ttinvite <peer> [X|O]    invite a peer to tic-tac-toe")
	fmt.Println("  ttaccept <game>          show a pending invite (first move accepts)")
	fmt.Println("  ttmove <game> <pos>      play position 0-8")
	fmt.Println("  ttgames                  list game sessions")
	fmt.Println("  revoke <token>           revoke a capability token")
	fmt.Println("  exit                     quit")
}
