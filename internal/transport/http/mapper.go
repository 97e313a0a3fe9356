package http

import (
	"errors"

	"github.com/liveclass/liveclass-server/internal/core"
	"github.com/liveclass/liveclass-server/internal/proto"
	"github.com/liveclass/liveclass-server/internal/store"
)

func messagePayload(msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        msg.ID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Content:   msg.Body,
		Kind:      string(msg.Kind),
		Timestamp: msg.CreatedAt.UnixMilli(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventHistory:
		messages := make([]proto.MessagePayload, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messagePayload(msg))
		}
		presence := make([]proto.PeerPayload, 0, len(event.Presence))
		for _, peer := range event.Presence {
			presence = append(presence, proto.PeerPayload{UserID: peer.UserID, UserName: peer.Name})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPreviousMessages,
			Data: proto.PreviousMessagesData{
				MeetingID: event.RoomID,
				Messages:  messages,
				Presence:  presence,
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data: proto.PresenceChangeData{
				UserID:    event.UserID,
				UserName:  event.UserName,
				Timestamp: event.At.UnixMilli(),
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserLeft,
			Data: proto.PresenceChangeData{
				UserID:    event.UserID,
				UserName:  event.UserName,
				Timestamp: event.At.UnixMilli(),
			},
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  messagePayload(event.Message),
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Data: proto.TypingData{
				UserID:   event.UserID,
				UserName: event.UserName,
			},
		}
	case core.EventStoppedTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserStoppedTyping,
			Data: proto.TypingData{
				UserID: event.UserID,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

// protoErrorOf converts a hub error into a protocol error frame payload.
func protoErrorOf(err error) *proto.Error {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		return &proto.Error{Code: coreErr.Code, Msg: coreErr.Message}
	}
	return &proto.Error{Code: "internal", Msg: "internal error"}
}

// errorFrame wraps a hub error into a full outbound envelope.
func errorFrame(err error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: protoErrorOf(err)}
}
