package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/core"
	"github.com/liveclass/liveclass-server/internal/proto"
	"github.com/liveclass/liveclass-server/internal/store"
)

// SessionResolver is what the gateway needs from the session controller:
// the single "is this meeting joinable now" decision.
type SessionResolver interface {
	ResolveOngoing(ctx context.Context, meetingID string) (*store.Lesson, error)
}

// ConnectionBinding ties one websocket connection to the room it joined.
// It is owned by the gateway and passed into hub calls; the hub never keeps
// per-connection mutable state of its own.
type ConnectionBinding struct {
	ConnID string
	RoomID string
	UserID string
	Name   string
}

// WSHandler is the connection gateway: it authenticates inbound realtime
// connections, admits them only into ongoing live sessions, and bridges
// them to the room hub for the lifetime of the connection.
type WSHandler struct {
	hub      *core.Hub
	sessions SessionResolver
	verifier *auth.Verifier
	log      *zerolog.Logger
}

// NewWSHandler builds the websocket gateway handler.
func NewWSHandler(hub *core.Hub, sessions SessionResolver, verifier *auth.Verifier, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		verifier: verifier,
		log:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// Browsers cannot set headers on websocket upgrades; the token rides
	// the query string.
	identity, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	binding, protoErr, err := h.admit(ctx, conn, identity)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws join failed")
		return
	}
	if protoErr != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr})
		conn.Close(websocket.StatusPolicyViolation, protoErr.Code)
		return
	}

	client := core.NewClient(binding.ConnID, binding.UserID, binding.Name)
	if err := h.hub.Join(ctx, binding.RoomID, client); err != nil {
		_ = wsjson.Write(ctx, conn, errorFrame(err))
		conn.Close(websocket.StatusInternalError, "join failed")
		return
	}
	// The deferred Leave is the only ungraceful-disconnect detection in the
	// system; it must run on every exit path, including abrupt peer loss.
	defer h.hub.Leave(context.Background(), binding.RoomID, binding.ConnID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, binding)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
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
		if s := websocket.CloseStatus(err); s != 0 {
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
			h.log.Warn().Err(err).Str("conn_id", binding.ConnID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// admit reads the initial join-meeting frame and checks the session is
// joinable. A protocol error means the connection was refused; a plain
// error means the transport broke before the handshake completed.
func (h *WSHandler) admit(ctx context.Context, conn *websocket.Conn, identity *auth.Identity) (*ConnectionBinding, *proto.Error, error) {
	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, nil, err
	}
	if inbound.Type != proto.InboundTypeJoinMeeting {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "expected join-meeting"}, nil
	}

	var join proto.JoinMeetingData
	if err := json.Unmarshal(inbound.Data, &join); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed join-meeting"}, nil
	}
	if join.MeetingID == "" {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "meetingId is required"}, nil
	}
	if join.UserID != "" && join.UserID != identity.UserID {
		return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "userId does not match token"}, nil
	}

	if _, err := h.sessions.ResolveOngoing(ctx, join.MeetingID); err != nil {
		h.log.Debug().Err(err).Str("meeting_id", join.MeetingID).Msg("ws join refused")
		return nil, &proto.Error{Code: core.ErrCodeSessionNotActive, Msg: "live session is not active"}, nil
	}

	name := identity.DisplayName
	if name == "" {
		name = join.UserName
	}
	return &ConnectionBinding{
		ConnID: uuid.NewString(),
		RoomID: join.MeetingID,
		UserID: identity.UserID,
		Name:   name,
	}, nil, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, binding *ConnectionBinding) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		var protoErr *proto.Error
		switch inbound.Type {
		case proto.InboundTypeSendMessage:
			var data proto.SendMessageData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				protoErr = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed send-message"}
				break
			}
			if data.MeetingID != "" && data.MeetingID != binding.RoomID {
				protoErr = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "connection is bound to another meeting"}
				break
			}
			if _, err := h.hub.Send(ctx, binding.RoomID, binding.ConnID, data.Message); err != nil {
				protoErr = protoErrorOf(err)
			}
		case proto.InboundTypeTyping:
			if err := h.hub.SetTyping(ctx, binding.RoomID, binding.ConnID, true); err != nil {
				protoErr = protoErrorOf(err)
			}
		case proto.InboundTypeStopTyping:
			if err := h.hub.SetTyping(ctx, binding.RoomID, binding.ConnID, false); err != nil {
				protoErr = protoErrorOf(err)
			}
		case proto.InboundTypeJoinMeeting:
			protoErr = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "connection already bound to a meeting"}
		default:
			protoErr = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
		}

		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ConnID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
