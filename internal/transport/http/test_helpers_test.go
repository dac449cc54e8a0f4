package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/config"
	"github.com/vovakirdan/toychat/internal/core"
	"github.com/vovakirdan/toychat/internal/history"
	"github.com/vovakirdan/toychat/internal/proto"
	"github.com/vovakirdan/toychat/internal/store/memory"
)

// testConfig returns a config suitable for httptest servers.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.MaxMessageBytes = 1 << 20
	cfg.RateLimitPerMinute = 0
	return cfg
}

// startTestServer runs a hub over an in-memory store with the general and
// toy1 rooms already created.
func startTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	st := memory.New()
	for _, room := range []string{"general", "toy1"} {
		if err := st.EnsureRoom(context.Background(), room); err != nil {
			t.Fatalf("ensure room: %v", err)
		}
	}

	logger := zerolog.Nop()
	hub := core.NewHub(history.New(st, cfg.HistoryLimit, &logger), &logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := NewServer(hub, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})

	return ts
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// sendRaw writes a frame exactly as given.
func sendRaw(ctx context.Context, t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("send raw: %v", err)
	}
}

// outbound mirrors proto.Outbound with raw data for decoding per event.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func read(ctx context.Context, t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	var out outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readEvent reads until an event named name arrives and decodes its data.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, name string, dst any) {
	t.Helper()
	for {
		out := read(ctx, t, conn)
		if out.Type != proto.OutboundTypeEvent || out.Event != name {
			continue
		}
		if err := json.Unmarshal(out.Data, dst); err != nil {
			t.Fatalf("unmarshal %s: %v", name, err)
		}
		return
	}
}

// readError reads until an error arrives.
func readError(ctx context.Context, t *testing.T, conn *websocket.Conn) *proto.Error {
	t.Helper()
	for {
		out := read(ctx, t, conn)
		if out.Type == proto.OutboundTypeError {
			if out.Error == nil {
				t.Fatalf("error outbound without error body")
			}
			return out.Error
		}
	}
}

func joinRoom(ctx context.Context, t *testing.T, conn *websocket.Conn, room string) proto.EventHistory {
	t.Helper()
	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: room})
	var hist proto.EventHistory
	readEvent(ctx, t, conn, proto.EventNameHistory, &hist)
	return hist
}
