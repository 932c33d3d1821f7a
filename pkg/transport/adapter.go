// Package transport implements the Transport Adapter (spec §4.8): the
// boundary between the messaging platform and the Event Loop.
package transport

import "context"

// Attachment is one inbound file/image reference carried on an
// IncomingMessage.
type Attachment struct {
	URL      string
	MIMEType string
}

// ConversationKind distinguishes a 1:1 conversation from a multi-party one
// (spec §3 ChatContext.kind). Values match the generated ent enum's
// constants (ent/chatcontext.KindDirect / KindGroup) by name, so callers can
// convert with a plain string cast at the store boundary.
type ConversationKind string

const (
	Direct ConversationKind = "Direct"
	Group  ConversationKind = "Group"
)

// IncomingMessage is one inbound message off the adapter's stream (spec
// §4.8). ReplyTo is the identity used for both agent keying and reply
// routing; for 1:1 chats it equals Source. Kind and SourceName seed a new
// ChatContext's kind/display_name on first contact with an identity; both
// are ignored once the ChatContext already exists.
type IncomingMessage struct {
	Source      string
	SourceName  string
	Message     string
	Attachments []Attachment
	Timestamp   int64 // unix millis
	ReplyTo     string
	Kind        ConversationKind
}

// Adapter is the abstract transport capability the Event Loop drives: send,
// typing, an optional health refresh, and an inbound message stream.
type Adapter interface {
	// SendMessage delivers text to identity.
	SendMessage(ctx context.Context, identity, text string) error
	// SendTyping toggles a typing indicator for identity.
	SendTyping(ctx context.Context, identity string, stop bool) error
	// Refresh is a best-effort health check, called on the Event Loop's
	// periodic tick. Implementations that have nothing to check no-op.
	Refresh(ctx context.Context) error
	// Inbound returns the channel of incoming messages. The channel is not
	// closed when Run returns; it stays in use across the Supervisor's
	// restarts of Run.
	Inbound() <-chan IncomingMessage
	// Run starts the inbound stream; blocks until ctx is cancelled or the
	// stream fails, then returns an error the Supervisor uses to decide
	// whether to reconnect.
	Run(ctx context.Context) error
	// FetchAttachment downloads an attachment's bytes, applying whatever
	// platform-specific authentication private URLs require.
	FetchAttachment(ctx context.Context, url string) ([]byte, error)
}
