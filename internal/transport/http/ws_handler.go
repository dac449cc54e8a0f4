package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/auth"
	"github.com/vovakirdan/toychat/internal/core"
	"github.com/vovakirdan/toychat/internal/proto"
	"github.com/vovakirdan/toychat/internal/utils"
)

// WSOptions configures the websocket gateway.
type WSOptions struct {
	JWT                *auth.JWTConfig
	JWTRequired        bool
	AllowedOrigins     []string
	MaxMessageBytes    int64
	RateLimitPerMinute int
}

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub  *core.Hub
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	if opts.JWT == nil {
		opts.JWT = &auth.JWTConfig{}
	}
	return &WSHandler{hub: hub, opts: opts, log: logger}
}

// connState is what the read loop knows about its own connection.
type connState struct {
	session       *core.Session
	authenticated bool
	limiter       *rateLimiter
	// legacy is set once the client uses a browser-client event name;
	// the write loop then answers in the same dialect.
	legacy atomic.Bool
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	acceptOpts := &websocket.AcceptOptions{OriginPatterns: h.opts.AllowedOrigins}
	if len(h.opts.AllowedOrigins) == 0 {
		acceptOpts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	identity := identityFromContext(ctx)
	state := &connState{
		session:       core.NewSession(utils.NewSessionID(), identity),
		authenticated: identity != "",
		limiter:       newRateLimiter(h.opts.RateLimitPerMinute),
	}
	h.hub.RegisterSession(state.session)
	defer h.hub.UnregisterSession(state.session)

	h.log.Debug().Str("session_id", state.session.ID).Str("identity", identity).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, state)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, state)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", state.session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, state *connState) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", state.session.ID).Msg("read ws inbound")
			return err
		}

		cmd, protoErr := h.handleInbound(state, inbound)
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, errorOutbound(protoErr)); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd == nil {
			continue
		}
		select {
		case state.session.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleInbound applies connection-level policy and maps the message to a
// command. A nil command with a nil error means nothing to forward.
func (h *WSHandler) handleInbound(state *connState, inbound proto.Inbound) (*core.Command, *proto.Error) {
	if !state.limiter.allow() {
		return nil, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}
	}

	if proto.IsLegacy(inbound.Type) {
		state.legacy.Store(true)
	}
	if proto.Canonical(inbound.Type) == proto.InboundTypeHello {
		return h.hello(state, inbound)
	}
	if h.opts.JWTRequired && !state.authenticated {
		return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "authenticate with hello first"}
	}
	return inboundToCommand(inbound)
}

func (h *WSHandler) hello(state *connState, inbound proto.Inbound) (*core.Command, *proto.Error) {
	var hello proto.HelloData
	if perr := decode(inbound.Data, &hello); perr != nil {
		return nil, perr
	}

	if hello.Token != "" {
		if !h.opts.JWT.Enabled() {
			return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "tokens are not accepted"}
		}
		claims, err := auth.ValidateToken(h.opts.JWT, hello.Token)
		if err != nil {
			h.log.Debug().Err(err).Str("session_id", state.session.ID).Msg("hello token rejected")
			return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
		}
		state.authenticated = true
		return &core.Command{Kind: core.CommandIdentify, Identity: claims.DisplayName()}, nil
	}

	if h.opts.JWTRequired {
		return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "token is required"}
	}
	if state.authenticated {
		// an authenticated identity is never replaced by a claimed one
		return nil, nil
	}
	if hello.User == "" {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user is required"}
	}
	return &core.Command{Kind: core.CommandIdentify, Identity: hello.User}, nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, state *connState) error {
	session := state.session
	for {
		select {
		case event, ok := <-session.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event, state.legacy.Load())); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
