// Package slackadapter implements the Transport Adapter (spec §4.8) over
// Slack's Socket Mode, grounded on pkg/slack/{client,service}.go's
// nil-safe, slog-instrumented wrapper style around the slack-go SDK —
// reworked from that package's outbound-only single-channel notification
// shape into a bidirectional, multi-identity one (every DM/channel the bot
// is a member of is a distinct `reply_to` identity here, not a single fixed
// channel).
package slackadapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/codeready-toolchain/sage/pkg/transport"
)

// maxAttachmentBytes caps how much of a private file Slack's API returns
// before FetchAttachment gives up reading.
const maxAttachmentBytes = 20 * 1024 * 1024

// maxOutboundRetries bounds the send attempts in all, the first one included,
// on transient broken-pipe/connection-reset classes of errors (spec §4.8).
const maxOutboundRetries = 3

const outboundRetryBackoff = 500 * time.Millisecond

// Config carries the bot's Slack credentials.
type Config struct {
	BotToken string
	AppToken string
}

// Adapter implements transport.Adapter over Slack Socket Mode.
type Adapter struct {
	api *slack.Client
	sm  *socketmode.Client

	inbound chan transport.IncomingMessage
	logger  *slog.Logger
}

var _ transport.Adapter = (*Adapter)(nil)

// New constructs an Adapter. Does not connect until Run is called.
func New(cfg Config) *Adapter {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &Adapter{
		api:     api,
		sm:      socketmode.New(api),
		inbound: make(chan transport.IncomingMessage, 64),
		logger:  slog.Default().With("component", "slackadapter"),
	}
}

// Inbound implements transport.Adapter.
func (a *Adapter) Inbound() <-chan transport.IncomingMessage { return a.inbound }

// Run connects to Socket Mode and dispatches incoming events until ctx is
// cancelled or the connection drops; the Supervisor restarts it on return.
func (a *Adapter) Run(ctx context.Context) error {
	go a.handleEvents(ctx)
	return a.sm.RunContext(ctx)
}

func (a *Adapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.sm.Events:
			if !ok {
				return
			}
			a.dispatch(evt)
		}
	}
}

func (a *Adapter) dispatch(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		a.logger.Info("connecting to Slack")
	case socketmode.EventTypeConnectionError:
		a.logger.Warn("Slack connection error", "evt", evt.Data)
	case socketmode.EventTypeConnected:
		a.logger.Info("connected to Slack")
	case socketmode.EventTypeEventsAPI:
		a.handleEventsAPI(evt)
	}
}

func (a *Adapter) handleEventsAPI(evt socketmode.Event) {
	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	if evt.Request != nil {
		a.sm.Ack(*evt.Request)
	}

	inner, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Ignore our own messages and message-subtype edits/deletes/joins.
	if inner.BotID != "" || inner.SubType != "" {
		return
	}

	// A DM is keyed and answered by the sender's user id (posting to a user
	// id lands in the bot's DM with that user); other channels by channel id.
	kind := channelKind(inner.Channel)
	replyTo := inner.Channel
	if kind == transport.Direct {
		replyTo = inner.User
	}
	msg := transport.IncomingMessage{
		Source:     inner.User,
		SourceName: a.channelDisplayName(inner.Channel),
		Message:    inner.Text,
		Timestamp:  parseSlackTS(inner.TimeStamp),
		ReplyTo:    replyTo,
		Kind:       kind,
	}
	for _, f := range inner.Files {
		msg.Attachments = append(msg.Attachments, transport.Attachment{
			URL:      f.URLPrivate,
			MIMEType: f.Mimetype,
		})
	}

	select {
	case a.inbound <- msg:
	default:
		a.logger.Warn("inbound buffer full, dropping message", "channel", inner.Channel)
	}
}

// channelKind classifies a Slack channel id by its prefix: "D" is a 1:1 DM,
// "C"/"G" are public/private multi-party channels (including legacy
// "group" DMs, which use the "G" prefix).
func channelKind(channelID string) transport.ConversationKind {
	if strings.HasPrefix(channelID, "D") {
		return transport.Direct
	}
	return transport.Group
}

// channelDisplayName best-effort resolves a channel id to its human-readable
// name for a new ChatContext's display_name. Returns "" (leaving
// display_name unset) rather than failing the whole event on a lookup error
// — this is cosmetic, not required to process the message.
func (a *Adapter) channelDisplayName(channelID string) string {
	info, err := a.api.GetConversationInfo(&slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		a.logger.Warn("resolve channel display name failed", "channel", channelID, "err", err)
		return ""
	}
	if info.IsIM {
		return ""
	}
	return info.Name
}

// parseSlackTS converts a Slack message timestamp ("1620000000.000100") to
// unix millis, falling back to the current time if it's malformed.
func parseSlackTS(ts string) int64 {
	secs, _, _ := strings.Cut(ts, ".")
	var n int64
	for _, c := range secs {
		if c < '0' || c > '9' {
			return time.Now().UnixMilli()
		}
		n = n*10 + int64(c-'0')
	}
	if n == 0 {
		return time.Now().UnixMilli()
	}
	return n * 1000
}

// SendMessage implements transport.Adapter, making up to
// maxOutboundRetries attempts in all while the error is of the
// broken-pipe/connection-reset classes (spec §4.8).
func (a *Adapter) SendMessage(ctx context.Context, identity, text string) error {
	var lastErr error
	for attempt := 1; attempt <= maxOutboundRetries; attempt++ {
		_, _, err := a.api.PostMessageContext(ctx, identity, slack.MsgOptionText(text, false))
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransientNetErr(err) {
			return fmt.Errorf("slack: send message to %s: %w", identity, err)
		}
		a.logger.Warn("transient send error, retrying", "identity", identity, "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(outboundRetryBackoff):
		}
	}
	return fmt.Errorf("slack: send message to %s failed after %d attempts: %w", identity, maxOutboundRetries, lastErr)
}

// SendTyping implements transport.Adapter. Slack's Events API / Socket Mode
// transport has no public typing-indicator endpoint for bot users (that was
// an RTM-only affordance); this is a documented no-op rather than a
// misleading partial implementation.
func (a *Adapter) SendTyping(ctx context.Context, identity string, stop bool) error {
	return nil
}

// Refresh implements transport.Adapter: auth.test as a cheap liveness check.
func (a *Adapter) Refresh(ctx context.Context) error {
	_, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: refresh auth test: %w", err)
	}
	return nil
}

// FetchAttachment implements transport.Adapter. Slack file URLs are
// private; the SDK signs the request with the bot token on our behalf.
func (a *Adapter) FetchAttachment(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.api.GetFile(url, &limitedWriter{w: &buf, max: maxAttachmentBytes}); err != nil {
		return nil, fmt.Errorf("slack: fetch attachment: %w", err)
	}
	return buf.Bytes(), nil
}

// limitedWriter bounds how much of a private file GetFile will stream into
// memory.
type limitedWriter struct {
	w      io.Writer
	max    int
	nwrote int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.nwrote+len(p) > l.max {
		return 0, fmt.Errorf("attachment exceeds %d bytes", l.max)
	}
	n, err := l.w.Write(p)
	l.nwrote += n
	return n, err
}

// isTransientNetErr classifies "broken pipe"/"connection reset" errors as
// retryable, per spec §4.8's outbound retry contract.
func isTransientNetErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset")
}
