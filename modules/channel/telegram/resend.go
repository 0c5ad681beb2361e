package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// editThrottle is the minimum interval between progress edits. Telegram
// rate-limits message edits aggressively.
const editThrottle = 700 * time.Millisecond

// resend downloads a classified document and re-sends it as native media,
// then issues a streaming link for the re-sent copy.
func (h *handler) resend(ctx context.Context, msg *Message, status *Message, kind string) {
	doc := msg.Document

	tmpDir, err := os.MkdirTemp("", "streamgate-resend-")
	if err != nil {
		h.logger.Error("resend temp dir failed", "error", err)
		h.editStatus(ctx, status, "Download failed.")
		return
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	path, err := h.download(ctx, doc, tmpDir, status)
	if err != nil {
		h.logger.Error("resend download failed",
			"file", doc.FileUniqueID,
			"error", err,
		)
		h.editStatus(ctx, status, "Download failed.")
		return
	}

	h.editStatus(ctx, status, fmt.Sprintf("Uploading %s...", kind))
	if err := h.client.SendChatAction(ctx, msg.Chat.ID, chatAction(kind)); err != nil {
		h.logger.Debug("chat action failed", "error", err)
	}

	sent, err := h.client.Upload(ctx, UploadRequest{
		Method:           uploadMethod(kind),
		Field:            uploadField(kind),
		Path:             path,
		FileName:         doc.FileName,
		ChatID:           msg.Chat.ID,
		Caption:          msg.Caption,
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		h.logger.Error("resend upload failed",
			"file", doc.FileUniqueID,
			"kind", kind,
			"error", err,
		)
		h.editStatus(ctx, status, "Upload failed.")
		return
	}

	// Issue the link against the re-sent copy so the player streams the
	// native media file, not the original document.
	if ref, ok := mediaRef(sent); ok {
		if ref.FileName == "" {
			ref.FileName = doc.FileName
		}
		if ref.FileSize == 0 {
			ref.FileSize = doc.FileSize
		}
		h.editStatus(ctx, status, h.issueText(ctx, ref))
		return
	}

	h.logger.Warn("re-sent message has no media payload", "file", doc.FileUniqueID, "kind", kind)
	h.editStatus(ctx, status, "Done.")
}

// download fetches the document via the Bot API file endpoint into dir,
// editing the status message with throttled progress.
func (h *handler) download(ctx context.Context, doc *Document, dir string, status *Message) (string, error) {
	f, err := h.client.GetFile(ctx, doc.FileID)
	if err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("telegram: getFile returned no path for %s", doc.FileUniqueID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.client.FileURL(f.FilePath), nil)
	if err != nil {
		return "", err
	}
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("telegram: file download status %d", resp.StatusCode)
	}

	name := doc.FileName
	if name == "" {
		name = filepath.Base(f.FilePath)
	}
	path := filepath.Join(dir, filepath.Base(name))

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	total := doc.FileSize
	if total == 0 {
		total = f.FileSize
	}
	prog := newProgress(ctx, h, status, "Downloading", total)

	_, err = io.Copy(out, io.TeeReader(resp.Body, prog))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	prog.finish()
	return path, nil
}

// progress edits a status message with throttled transfer updates. Edit
// failures are ignored; the transfer matters, the ticker does not.
type progress struct {
	ctx     context.Context
	handler *handler
	status  *Message
	phase   string
	total   int64
	done    int64
	start   time.Time
	last    time.Time
}

func newProgress(ctx context.Context, h *handler, status *Message, phase string, total int64) *progress {
	return &progress{
		ctx:     ctx,
		handler: h,
		status:  status,
		phase:   phase,
		total:   total,
		start:   time.Now(),
	}
}

// Write implements io.Writer for use with io.TeeReader.
func (p *progress) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	now := time.Now()
	if now.Sub(p.last) < editThrottle {
		return len(b), nil
	}
	p.last = now
	p.edit()
	return len(b), nil
}

// finish emits a final 100% edit regardless of throttling.
func (p *progress) finish() {
	p.edit()
}

func (p *progress) edit() {
	elapsed := time.Since(p.start).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-6
	}
	speed := int64(float64(p.done) / elapsed)

	var text string
	if p.total > 0 {
		percent := float64(p.done) / float64(p.total) * 100
		text = fmt.Sprintf("%s\n%.1f%% (%s/%s)\n%s/s",
			p.phase, percent, humanBytes(p.done), humanBytes(p.total), humanBytes(speed))
	} else {
		text = fmt.Sprintf("%s\n%s\n%s/s", p.phase, humanBytes(p.done), humanBytes(speed))
	}
	p.handler.editStatus(p.ctx, p.status, text)
}

func uploadMethod(kind string) string {
	switch kind {
	case kindVideo:
		return "sendVideo"
	case kindAudio:
		return "sendAudio"
	case kindPhoto:
		return "sendPhoto"
	default:
		return "sendDocument"
	}
}

func uploadField(kind string) string {
	switch kind {
	case kindVideo, kindAudio, kindPhoto:
		return kind
	default:
		return "document"
	}
}

func chatAction(kind string) string {
	switch kind {
	case kindVideo:
		return "upload_video"
	case kindAudio:
		return "upload_voice"
	case kindPhoto:
		return "upload_photo"
	default:
		return "upload_document"
	}
}
