// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot runs the chat half of ticketref: a Matrix /sync long-poll
// loop that feeds room messages through a dispatch engine and posts the
// resulting reply lines back as notices.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/ticketref/lib/clock"
	"github.com/bureau-foundation/ticketref/lib/dispatch"
	"github.com/bureau-foundation/ticketref/lib/ref"
	"github.com/bureau-foundation/ticketref/messaging"
)

// syncFilter restricts the /sync response to the two event types the
// bot consumes: room messages (the dispatch input) and canonical alias
// changes (the channel-name source for binding matches). Presence,
// typing notifications, receipts, and account data are all noise for a
// ticket bot and are filtered server-side.
const syncFilter = `{
	"room": {
		"state": {
			"types": ["m.room.canonical_alias"]
		},
		"timeline": {
			"types": ["m.room.message", "m.room.canonical_alias"],
			"limit": 50
		},
		"ephemeral": {
			"types": []
		},
		"account_data": {
			"types": []
		}
	},
	"presence": {
		"types": []
	},
	"account_data": {
		"types": []
	}
}`

// Config assembles a Bot. Session and Engine are required; everything
// else defaults.
type Config struct {
	// Session is the authenticated Matrix session the bot syncs and
	// replies through.
	Session messaging.Session

	// Engine turns message text into reply lines.
	Engine *dispatch.Engine

	// MaxBackoff caps the exponential retry delay after /sync
	// failures. Default: 30 seconds.
	MaxBackoff time.Duration

	// Clock supplies the backoff timer. Defaults to the real clock;
	// tests inject a fake.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bot owns the sync loop state: the since token, the per-room channel
// target cache, and the retry backoff. Not safe for concurrent use —
// Run is the only entry point and everything below it executes on the
// calling goroutine.
type Bot struct {
	session    messaging.Session
	engine     *dispatch.Engine
	maxBackoff time.Duration
	clock      clock.Clock
	logger     *slog.Logger

	// channels maps rooms to the target string handed to the dispatch
	// engine: the canonical alias localpart ("#tor") when the room
	// has one, the raw room ID otherwise. Updated whenever a
	// canonical alias state event arrives.
	channels map[ref.RoomID]string
}

// New builds a Bot from the config. The engine must already have its
// providers registered.
func New(cfg Config) (*Bot, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("bot: Session is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("bot: Engine is required")
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		session:    cfg.Session,
		engine:     cfg.Engine,
		maxBackoff: maxBackoff,
		clock:      clk,
		logger:     logger,
		channels:   make(map[ref.RoomID]string),
	}, nil
}

// Run performs the initial sync and then long-polls /sync until ctx is
// cancelled. Messages from before the initial sync are never
// dispatched — the baseline snapshot only accepts pending invites and
// seeds the channel cache, so the bot does not reply to backlog from
// while it was offline.
//
// Transient sync errors retry with exponential backoff (1 second
// doubling to MaxBackoff, reset on success). An authentication error
// (M_UNKNOWN_TOKEN) is fatal: the token has been revoked and no retry
// can succeed.
func (b *Bot) Run(ctx context.Context) error {
	sinceToken, err := b.initialSync(ctx)
	if err != nil {
		return err
	}
	return b.syncLoop(ctx, sinceToken)
}

// initialSync obtains the since token for the incremental loop,
// accepts invites that piled up while the bot was offline, and seeds
// the channel cache from the state snapshot.
func (b *Bot) initialSync(ctx context.Context) (string, error) {
	// No long-poll timeout: the first /sync without a since token
	// returns the current snapshot immediately.
	response, err := b.session.Sync(ctx, messaging.SyncOptions{
		Filter: syncFilter,
	})
	if err != nil {
		return "", fmt.Errorf("initial sync: %w", err)
	}

	b.logger.Info("initial sync complete",
		"next_batch", response.NextBatch,
		"joined_rooms", len(response.Rooms.Join),
		"pending_invites", len(response.Rooms.Invite),
	)

	b.acceptInvites(ctx, response.Rooms.Invite)
	for roomID, room := range response.Rooms.Join {
		b.updateChannel(roomID, room)
	}

	return response.NextBatch, nil
}

// syncLoop runs the incremental /sync long-poll loop. The long-poll
// timeout is 30 seconds: when no events arrive within that window the
// homeserver returns an empty response and the loop immediately
// re-polls; when events do arrive it returns at once.
func (b *Bot) syncLoop(ctx context.Context, sinceToken string) error {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		response, err := b.session.Sync(ctx, messaging.SyncOptions{
			Since:      sinceToken,
			Timeout:    30000, // long-poll hold, in milliseconds
			SetTimeout: true,
			Filter:     syncFilter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) {
				return fmt.Errorf("access token rejected: %w", err)
			}
			// TCP-level errors (connection reset, EOF) often indicate
			// a poisoned connection in the HTTP pool. Drop idle
			// connections so the next attempt opens a fresh socket.
			if closer, ok := b.session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			b.logger.Error("sync failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-b.clock.After(backoff):
			}
			backoff *= 2
			if backoff > b.maxBackoff {
				backoff = b.maxBackoff
			}
			continue
		}

		backoff = time.Second
		sinceToken = response.NextBatch

		b.processSyncResponse(ctx, response)
	}
}

// processSyncResponse handles one incremental /sync batch: join rooms
// the bot was invited to, fold canonical alias changes into the
// channel cache, then dispatch new messages. Alias updates run before
// message dispatch so a room rename applies to messages in the same
// batch.
func (b *Bot) processSyncResponse(ctx context.Context, response *messaging.SyncResponse) {
	b.acceptInvites(ctx, response.Rooms.Invite)

	for roomID, room := range response.Rooms.Join {
		b.updateChannel(roomID, room)
	}
	for roomID, room := range response.Rooms.Join {
		b.processMessages(ctx, roomID, room.Timeline.Events)
	}
}

// acceptInvites joins every room the bot has been invited to. Channels
// opt in to the bot by inviting it; there is no allow list beyond the
// binding globs in the tracker tables.
func (b *Bot) acceptInvites(ctx context.Context, invites map[ref.RoomID]messaging.InvitedRoom) {
	for roomID := range invites {
		b.logger.Info("accepting room invite", "room_id", roomID)
		if _, err := b.session.JoinRoom(ctx, roomID); err != nil {
			b.logger.Error("failed to accept room invite", "room_id", roomID, "error", err)
		}
	}
}

// updateChannel folds canonical alias events from the room's sync
// sections into the channel cache. Alias events appear in the state
// section on gap fills and in the timeline on live changes.
func (b *Bot) updateChannel(roomID ref.RoomID, room messaging.JoinedRoom) {
	for _, event := range room.State.Events {
		b.recordAlias(roomID, event)
	}
	for _, event := range room.Timeline.Events {
		if event.StateKey != nil {
			b.recordAlias(roomID, event)
		}
	}
}

func (b *Bot) recordAlias(roomID ref.RoomID, event messaging.Event) {
	if event.Type != "m.room.canonical_alias" {
		return
	}
	raw, _ := event.Content["alias"].(string)
	b.channels[roomID] = b.channelFromAlias(roomID, raw)
}

// channelFromAlias derives the dispatch target for a room. Rooms with
// a canonical alias match bindings by the alias localpart ("#tor");
// rooms without one fall back to the raw room ID, which only a
// wildcard binding can match.
func (b *Bot) channelFromAlias(roomID ref.RoomID, raw string) string {
	if raw == "" {
		return roomID.String()
	}
	alias, err := ref.ParseRoomAlias(raw)
	if err != nil {
		b.logger.Warn("unparseable canonical alias",
			"room_id", roomID, "alias", raw, "error", err)
		return roomID.String()
	}
	return alias.Channel()
}

// channelTarget returns the dispatch target for a room, fetching the
// canonical alias from the homeserver the first time a room is seen
// without one in the sync stream (messages can arrive in a batch whose
// state section is empty).
func (b *Bot) channelTarget(ctx context.Context, roomID ref.RoomID) string {
	if target, ok := b.channels[roomID]; ok {
		return target
	}

	var raw string
	content, err := b.session.GetStateEvent(ctx, roomID, "m.room.canonical_alias", "")
	switch {
	case err == nil:
		var alias messaging.CanonicalAliasContent
		if err := json.Unmarshal(content, &alias); err == nil {
			raw = alias.Alias
		}
	case messaging.IsMatrixError(err, messaging.ErrCodeNotFound):
		// The room has never had a canonical alias set. The room ID
		// fallback is cached below like any other resolution.
	default:
		b.logger.Warn("failed to read canonical alias", "room_id", roomID, "error", err)
		// Transient failure: use the room ID for this message but
		// leave the cache empty so the next message retries.
		return roomID.String()
	}

	target := b.channelFromAlias(roomID, raw)
	b.channels[roomID] = target
	return target
}

// processMessages dispatches the m.text messages of a timeline batch
// and posts the engine's reply lines as notices, one message per line,
// in engine order.
func (b *Bot) processMessages(ctx context.Context, roomID ref.RoomID, events []messaging.Event) {
	for _, event := range events {
		if event.Type != "m.room.message" || event.StateKey != nil {
			continue
		}
		// The bot's own replies come back through /sync. Skipping
		// its sender, and every non-text msgtype (notices included),
		// keeps two ticket bots from feeding each other.
		if event.Sender == b.session.UserID() {
			continue
		}
		msgtype, _ := event.Content["msgtype"].(string)
		if msgtype != "m.text" {
			continue
		}
		body, _ := event.Content["body"].(string)
		if body == "" {
			continue
		}

		target := b.channelTarget(ctx, roomID)
		for _, reply := range b.engine.HandleMessage(ctx, target, body) {
			if _, err := b.session.SendMessage(ctx, roomID, messaging.FormatNotice(reply)); err != nil {
				b.logger.Error("failed to send reply",
					"room_id", roomID,
					"channel", target,
					"error", err,
				)
			}
		}
	}
}
