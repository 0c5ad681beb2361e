package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/streamgate/streamgate/internal/history"
	"github.com/streamgate/streamgate/internal/store"
)

const startText = `Send me a media file and I will reply with a streaming link.

Documents with a video, audio, or image payload are re-sent as native media first so Telegram can stream them.

Commands:
/history - your recent streaming links`

// handler routes incoming updates to commands, link issuance, or the
// document re-send flow.
type handler struct {
	client      *Client
	issuer      *store.Issuer
	history     history.Store // nil when no history module is loaded
	logger      *slog.Logger
	recent      *recentSet
	config      Config
	botUsername string
}

func newHandler(client *Client, issuer *store.Issuer, hist history.Store, logger *slog.Logger, config Config, botUsername string) *handler {
	return &handler{
		client:      client,
		issuer:      issuer,
		history:     hist,
		logger:      logger,
		recent:      newRecentSet(defaultRecentCap),
		config:      config,
		botUsername: botUsername,
	}
}

// HandleUpdate processes a single update. Edited messages are ignored so a
// caption edit does not trigger a second re-send.
func (h *handler) HandleUpdate(ctx context.Context, update *Update) {
	msg := update.Message
	if msg == nil || msg.EditDate != 0 {
		return
	}

	if cmd := parseCommand(msg, h.botUsername); cmd != "" {
		h.handleCommand(ctx, msg, cmd)
		return
	}

	if msg.Document != nil {
		h.handleDocument(ctx, msg)
		return
	}

	if ref, ok := mediaRef(msg); ok {
		h.issueAndReply(ctx, msg, ref)
	}
}

// parseCommand extracts a leading bot command from the message, stripping
// an @botname suffix. Returns "" when the message is not a command.
func parseCommand(msg *Message, botUsername string) string {
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			fields := strings.Fields(msg.Text)
			if len(fields) == 0 {
				return ""
			}
			cmd := fields[0]
			if at := strings.Index(cmd, "@"); at != -1 {
				if !strings.EqualFold(cmd[at+1:], botUsername) {
					return ""
				}
				cmd = cmd[:at]
			}
			return strings.ToLower(cmd)
		}
	}
	return ""
}

func (h *handler) handleCommand(ctx context.Context, msg *Message, cmd string) {
	switch cmd {
	case "/start":
		h.reply(ctx, msg, startText)
	case "/history":
		h.handleHistory(ctx, msg)
	default:
		h.logger.Debug("unknown command", "command", cmd, "chat", msg.Chat.ID)
	}
}

func (h *handler) handleHistory(ctx context.Context, msg *Message) {
	if h.history == nil {
		h.reply(ctx, msg, "History is not enabled on this bot.")
		return
	}

	records, err := h.history.Recent(ctx, msg.Chat.ID, h.config.HistoryLimit)
	if err != nil {
		h.logger.Error("history lookup failed", "chat", msg.Chat.ID, "error", err)
		h.reply(ctx, msg, "Could not load your history, try again later.")
		return
	}
	if len(records) == 0 {
		h.reply(ctx, msg, "No links issued yet. Send me a media file to get one.")
		return
	}

	var b strings.Builder
	b.WriteString("Your recent links:\n")
	now := time.Now()
	for _, rec := range records {
		name := rec.FileName
		if name == "" {
			name = rec.MediaType
		}
		fmt.Fprintf(&b, "\n%s (%s)\n%s\n", name, humanBytes(rec.FileSize), h.playerLink(rec.Token))
		if rec.ExpiresAt.After(now) {
			fmt.Fprintf(&b, "expires in %s\n", rec.ExpiresAt.Sub(now).Round(time.Minute))
		} else {
			b.WriteString("expired\n")
		}
	}
	h.reply(ctx, msg, b.String())
}

// handleDocument classifies an incoming document and either re-sends it as
// native media or issues a streaming link directly.
func (h *handler) handleDocument(ctx context.Context, msg *Message) {
	doc := msg.Document

	if !h.recent.Add(doc.FileUniqueID) {
		h.logger.Debug("duplicate document skipped", "file", doc.FileUniqueID, "chat", msg.Chat.ID)
		return
	}

	status, err := h.client.SendMessage(ctx, SendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             "Preparing...",
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		h.logger.Error("status message failed", "chat", msg.Chat.ID, "error", err)
		return
	}

	kind := classifyDocument(doc)
	switch kind {
	case "":
		h.editStatus(ctx, status, "Unsupported file type.")
	case kindDocument:
		ref := store.FileRef{
			FileID:       doc.FileID,
			FileUniqueID: doc.FileUniqueID,
			FileName:     doc.FileName,
			MIMEType:     doc.MIMEType,
			FileSize:     doc.FileSize,
			MediaType:    kindDocument,
			ChatID:       msg.Chat.ID,
			MessageID:    msg.MessageID,
		}
		h.editStatus(ctx, status, h.issueText(ctx, ref))
	default:
		h.resend(ctx, msg, status, kind)
	}
}

// issueAndReply issues a streaming link for a native media message and
// replies with it.
func (h *handler) issueAndReply(ctx context.Context, msg *Message, ref store.FileRef) {
	h.reply(ctx, msg, h.issueText(ctx, ref))
}

// issueText issues a token for ref, records it, and renders the reply body.
func (h *handler) issueText(ctx context.Context, ref store.FileRef) string {
	token, err := h.issuer.Issue(ctx, ref)
	if err != nil {
		h.logger.Error("token issue failed", "file", ref.FileUniqueID, "error", err)
		return "Could not create a streaming link, try again later."
	}

	h.record(ctx, token, ref)

	name := ref.FileName
	if name == "" {
		name = ref.MediaType
	}
	return fmt.Sprintf("%s (%s)\n%s\n\nLink is valid for %s.",
		name, humanBytes(ref.FileSize), h.playerLink(token), h.issuer.TTL())
}

// record writes an issuance record when a history backend is available.
func (h *handler) record(ctx context.Context, token string, ref store.FileRef) {
	if h.history == nil {
		return
	}
	now := time.Now()
	err := h.history.Record(ctx, history.Record{
		Token:     token,
		ChatID:    ref.ChatID,
		FileName:  ref.FileName,
		MediaType: ref.MediaType,
		FileSize:  ref.FileSize,
		IssuedAt:  now,
		ExpiresAt: now.Add(h.issuer.TTL()),
	})
	if err != nil {
		h.logger.Error("history record failed", "token", token, "error", err)
	}
}

func (h *handler) playerLink(token string) string {
	return strings.TrimRight(h.config.BaseURL, "/") + "/player/" + token
}

func (h *handler) reply(ctx context.Context, msg *Message, text string) {
	_, err := h.client.SendMessage(ctx, SendMessageRequest{
		ChatID:                msg.Chat.ID,
		Text:                  text,
		ReplyToMessageID:      msg.MessageID,
		DisableWebPagePreview: true,
	})
	if err != nil {
		h.logger.Error("reply failed", "chat", msg.Chat.ID, "error", err)
	}
}

func (h *handler) editStatus(ctx context.Context, status *Message, text string) {
	_, err := h.client.EditMessageText(ctx, EditMessageTextRequest{
		ChatID:                status.Chat.ID,
		MessageID:             status.MessageID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		h.logger.Debug("status edit failed", "chat", status.Chat.ID, "error", err)
	}
}

// mediaRef extracts a streamable media reference from a native media
// message. Photos use the largest available size.
func mediaRef(msg *Message) (store.FileRef, bool) {
	ref := store.FileRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}

	switch {
	case msg.Video != nil:
		v := msg.Video
		ref.FileID, ref.FileUniqueID = v.FileID, v.FileUniqueID
		ref.FileName, ref.MIMEType, ref.FileSize = v.FileName, v.MIMEType, v.FileSize
		ref.MediaType = kindVideo
	case msg.Audio != nil:
		a := msg.Audio
		ref.FileID, ref.FileUniqueID = a.FileID, a.FileUniqueID
		ref.FileName, ref.MIMEType, ref.FileSize = a.FileName, a.MIMEType, a.FileSize
		ref.MediaType = kindAudio
	case msg.Voice != nil:
		v := msg.Voice
		ref.FileID, ref.FileUniqueID = v.FileID, v.FileUniqueID
		ref.MIMEType, ref.FileSize = v.MIMEType, v.FileSize
		ref.MediaType = kindAudio
	case len(msg.Photo) > 0:
		p := msg.Photo[len(msg.Photo)-1]
		ref.FileID, ref.FileUniqueID = p.FileID, p.FileUniqueID
		ref.FileSize = p.FileSize
		ref.MIMEType = "image/jpeg"
		ref.MediaType = kindPhoto
	default:
		return store.FileRef{}, false
	}

	if ref.MIMEType == "" {
		ref.MIMEType = fallbackMIME(ref.MediaType)
	}
	return ref, true
}

func fallbackMIME(mediaType string) string {
	switch mediaType {
	case kindVideo:
		return "video/mp4"
	case kindAudio:
		return "audio/mpeg"
	case kindPhoto:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
