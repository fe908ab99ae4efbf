// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

// EmotionNeutral is the emotion attached to replies when the generation
// backend returned plain text with no structured emotion tag.
const EmotionNeutral = "neutral"

// Reply is the result of a generation call. The backend may return either
// plain prose or a structured {message, emotion} object; Structured records
// which shape was received so the dispatcher can apply the neutral default.
type Reply struct {
	Message    string
	Emotion    string
	Structured bool
}

// EmotionOrNeutral returns the emotion tag, falling back to "neutral" for
// plain-text replies or structured replies with an empty tag.
func (r Reply) EmotionOrNeutral() string {
	if !r.Structured || r.Emotion == "" {
		return EmotionNeutral
	}
	return r.Emotion
}

// EventType identifies an outbound wire event.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventThinkingStart  EventType = "thinking_start"
	EventSuggestion     EventType = "suggestion"
	EventReply          EventType = "reply"
	EventError          EventType = "error"
	EventPong           EventType = "pong"
)

// EventData is the payload of context-carrying outbound events.
type EventData struct {
	Context string `json:"context,omitempty"`
	AppName string `json:"app_name,omitempty"`
	Message string `json:"message,omitempty"`
	Emotion string `json:"emotion,omitempty"`
}

// Event is an outbound wire message broadcast to connected sessions.
// Field usage per event type:
//
//	session_started, pong  -> SessionID
//	thinking_start         -> Data.Context
//	suggestion             -> Data.AppName, Data.Message, Data.Emotion
//	reply                  -> Data.Message, Data.Emotion
//	error                  -> Message
type Event struct {
	Type      EventType  `json:"type"`
	SessionID string     `json:"session_id,omitempty"`
	Message   string     `json:"message,omitempty"`
	Data      *EventData `json:"data,omitempty"`
}

// ThinkingEvent announces that a generation call is about to start.
func ThinkingEvent(reason string) Event {
	return Event{Type: EventThinkingStart, Data: &EventData{Context: reason}}
}

// SuggestionEvent carries an unsolicited remark about a focused app.
func SuggestionEvent(appName, message, emotion string) Event {
	return Event{Type: EventSuggestion, Data: &EventData{
		AppName: appName,
		Message: message,
		Emotion: emotion,
	}}
}

// ReplyEvent carries the answer to a client question.
func ReplyEvent(message, emotion string) Event {
	return Event{Type: EventReply, Data: &EventData{
		Message: message,
		Emotion: emotion,
	}}
}

// ErrorEvent reports a failed exchange to the client.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// SessionStartedEvent tells a freshly connected client its session id.
func SessionStartedEvent(sessionID string) Event {
	return Event{Type: EventSessionStarted, SessionID: sessionID}
}

// PongEvent answers a client ping.
func PongEvent(sessionID string) Event {
	return Event{Type: EventPong, SessionID: sessionID}
}
