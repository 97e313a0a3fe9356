// Command ws_chat is an interactive terminal client for a live session:
// it mints an identity token, joins a meeting and relays chat from stdin.
// Useful for poking at a locally running server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	meeting := flag.String("meeting", "", "meeting ID of an ongoing live session")
	userID := flag.String("user", "cli-user", "user ID")
	name := flag.String("name", "CLI User", "display name")
	role := flag.String("role", "student", "role (teacher or student)")
	secret := flag.String("secret", "", "JWT secret the server was started with")
	issuer := flag.String("issuer", "", "JWT issuer, when the server requires one")
	audience := flag.String("audience", "", "JWT audience, when the server requires one")
	flag.Parse()

	if *meeting == "" {
		return errors.New("-meeting is required")
	}
	if *secret == "" {
		return errors.New("-secret is required")
	}

	token, err := auth.GenerateToken(&auth.JWTConfig{
		Secret:   []byte(*secret),
		Issuer:   *issuer,
		Audience: *audience,
		TTL:      time.Hour,
	}, auth.Identity{UserID: *userID, DisplayName: *name, Role: auth.Role(*role)})
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	joinPayload, err := json.Marshal(proto.JoinMeetingData{MeetingID: *meeting})
	if err != nil {
		return fmt.Errorf("marshal join-meeting: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinMeeting, Data: joinPayload}); err != nil {
		return fmt.Errorf("send join-meeting: %w", err)
	}

	fmt.Printf("Connected to %s as %s in meeting %s\n", *addr, *name, *meeting)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError {
			fmt.Printf("server error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			continue
		}

		switch outbound.Event {
		case proto.EventPreviousMessages:
			var evt proto.PreviousMessagesData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal previous-messages: %v", err)
				continue
			}
			for _, msg := range evt.Messages {
				fmt.Printf("%s: %s\n", msg.UserName, msg.Content)
			}
			names := make([]string, 0, len(evt.Presence))
			for _, peer := range evt.Presence {
				names = append(names, peer.UserName)
			}
			fmt.Printf("present: %s\n", strings.Join(names, ", "))
		case proto.EventNewMessage:
			var msg proto.MessagePayload
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				log.Printf("unmarshal new-message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", msg.UserName, msg.Content)
		case proto.EventUserJoined:
			var evt proto.PresenceChangeData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal user-joined: %v", err)
				continue
			}
			fmt.Printf("* %s joined\n", evt.UserName)
		case proto.EventUserLeft:
			var evt proto.PresenceChangeData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal user-left: %v", err)
				continue
			}
			fmt.Printf("* %s left\n", evt.UserName)
		case proto.EventUserTyping:
			var evt proto.TypingData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				continue
			}
			fmt.Printf("* %s is typing...\n", evt.UserName)
		case proto.EventUserStoppedTyping:
			// Quiet; the next message or departure supersedes it.
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.SendMessageData{Message: text})
			if err != nil {
				log.Printf("marshal send-message: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
