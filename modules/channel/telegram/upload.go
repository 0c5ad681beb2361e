package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// uploadTimeout bounds a single multipart upload. Large media over a slow
// link can take a while, so it is far looser than the JSON call timeout.
const uploadTimeout = 30 * time.Minute

// UploadRequest describes a media upload via multipart/form-data.
type UploadRequest struct {
	// Method is the Bot API method: sendVideo, sendAudio, sendPhoto,
	// or sendDocument.
	Method string

	// Field is the name of the file part (video, audio, photo, document).
	Field string

	// Path is the local file to upload.
	Path string

	// FileName overrides the name sent to Telegram. Defaults to the
	// base name of Path.
	FileName string

	ChatID           int64
	Caption          string
	ReplyToMessageID int
}

// Upload sends a local file to a chat as native media. The multipart body is
// streamed through a pipe so the file is never buffered in memory.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Message, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("telegram: open upload file: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := req.FileName
	if name == "" {
		name = filepath.Base(req.Path)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(mw, req, name, f)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, req.Method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", req.Method, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	// Uploads are not retried: the body is streamed and cannot be replayed.
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", req.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", req.Method, err)
	}

	var apiResp APIResponse[Message]
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", req.Method, err)
	}
	if !apiResp.OK {
		apiErr := &APIError{
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
		if apiResp.Parameters != nil {
			apiErr.RetryAfter = apiResp.Parameters.RetryAfter
		}
		return nil, apiErr
	}

	return &apiResp.Result, nil
}

func writeUploadBody(mw *multipart.Writer, req UploadRequest, name string, f *os.File) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(req.ChatID, 10)); err != nil {
		return err
	}
	if req.Caption != "" {
		if err := mw.WriteField("caption", req.Caption); err != nil {
			return err
		}
	}
	if req.ReplyToMessageID != 0 {
		if err := mw.WriteField("reply_to_message_id", strconv.Itoa(req.ReplyToMessageID)); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile(req.Field, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
