package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoinMeeting = "join-meeting"
	InboundTypeSendMessage = "send-message"
	InboundTypeTyping      = "typing"
	InboundTypeStopTyping  = "stop-typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventPreviousMessages  = "previous-messages"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
)

// JoinMeetingData binds the connection to a meeting room. The identity token
// presented at the upgrade is authoritative; UserID, when present, must
// match it.
type JoinMeetingData struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
}

// SendMessageData is a chat message from the client. MeetingID, when
// present, must name the meeting the connection is bound to.
type SendMessageData struct {
	Message   string `json:"message"`
	MeetingID string `json:"meetingId,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is one chat message on the wire.
type MessagePayload struct {
	ID        int64  `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Content   string `json:"content"`
	Kind      string `json:"kind,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// PeerPayload is one present user in a presence snapshot.
type PeerPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// PreviousMessagesData is delivered to the joiner only.
type PreviousMessagesData struct {
	MeetingID string           `json:"meetingId"`
	Messages  []MessagePayload `json:"messages"`
	Presence  []PeerPayload    `json:"presence"`
}

// PresenceChangeData announces a join or leave to room peers.
type PresenceChangeData struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// TypingData announces a typing status change to room peers.
type TypingData struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
