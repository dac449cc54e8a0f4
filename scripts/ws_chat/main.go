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

	"github.com/vovakirdan/toychat/internal/proto"
)

// incoming is proto.Outbound with the payload left raw.
type incoming struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3031/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	token := flag.String("token", "", "identity token (see `toychat token`)")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
	}

	if err := send(proto.InboundTypeHello, proto.HelloData{User: *user, Token: *token}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoin, proto.JoinData{Room: *room}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send, /typing to signal typing. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, *room, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func printMessage(msg proto.EventMessage) {
	ts := time.UnixMilli(msg.TS).Format(time.Kitchen)
	fmt.Printf("[%s %s] %s: %s\n", msg.Room, ts, msg.User, msg.Text)
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var in incoming
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			// Treat expected shutdowns quietly.
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

		if in.Type == proto.OutboundTypeError && in.Error != nil {
			fmt.Printf("! %s: %s\n", in.Error.Code, in.Error.Msg)
			continue
		}

		switch in.Event {
		case proto.EventNameMessage:
			var msg proto.EventMessage
			if err := json.Unmarshal(in.Data, &msg); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			printMessage(msg)
		case proto.EventNameHistory:
			var hist proto.EventHistory
			if err := json.Unmarshal(in.Data, &hist); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			fmt.Printf("-- %d earlier messages in %s --\n", len(hist.Messages), hist.Room)
			for _, msg := range hist.Messages {
				printMessage(msg)
			}
		case proto.EventNameTyping:
			var typing proto.EventTyping
			if err := json.Unmarshal(in.Data, &typing); err != nil {
				log.Printf("unmarshal typing: %v", err)
				continue
			}
			fmt.Printf("[%s] %s is typing...\n", typing.Room, typing.User)
		default:
			fmt.Printf("event=%s data=%s\n", in.Event, in.Data)
		}
	}
}

func writeLoop(ctx context.Context, room string, send func(string, any) error) {
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

			var err error
			if text == "/typing" {
				err = send(proto.InboundTypeTyping, proto.TypingData{Room: room})
			} else {
				err = send(proto.InboundTypeMsg, proto.MsgData{Room: room, Text: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
