package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/streamgate/streamgate/internal/media"
	"github.com/streamgate/streamgate/internal/store"
)

// botSource implements media.Source on top of the Bot API file endpoint.
// Metadata comes from getFile; content is fetched with a Range request so
// a partial window does not pull the whole object off Telegram.
type botSource struct {
	client *Client

	// Separate HTTP client without a timeout: a stream copied at client
	// speed can legitimately run for hours. Cancellation comes from the
	// request context instead.
	http *http.Client
}

var _ media.Source = (*botSource)(nil)

func newBotSource(client *Client) *botSource {
	return &botSource{
		client: client,
		http:   &http.Client{},
	}
}

// Stat implements media.Source.
func (s *botSource) Stat(ctx context.Context, ref store.FileRef) (media.Meta, error) {
	f, err := s.client.GetFile(ctx, ref.FileID)
	if err != nil {
		return media.Meta{}, fmt.Errorf("telegram: stat %s: %w", ref.FileUniqueID, err)
	}

	size := f.FileSize
	if size == 0 {
		if ref.FileSize > 0 {
			size = ref.FileSize
		} else {
			size = media.SizeUnknown
		}
	}

	return media.Meta{Size: size, MIMEType: ref.MIMEType}, nil
}

// Open implements media.Source. It requests the file from the given offset;
// if the upstream ignores the Range header and replies 200, the offset is
// discarded from the front of the body instead.
func (s *botSource) Open(ctx context.Context, ref store.FileRef, offset int64) (io.ReadCloser, error) {
	f, err := s.client.GetFile(ctx, ref.FileID)
	if err != nil {
		return nil, fmt.Errorf("telegram: open %s: %w", ref.FileUniqueID, err)
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram: open %s: no file path: %w", ref.FileUniqueID, media.ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.FileURL(f.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: open %s: %w", ref.FileUniqueID, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch %s: %w", ref.FileUniqueID, err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return resp.Body, nil
	case http.StatusOK:
		if offset > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("telegram: skip to offset %d: %w", offset, err)
			}
		}
		return resp.Body, nil
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("telegram: fetch %s: status %d: %w",
			ref.FileUniqueID, resp.StatusCode, media.ErrUnavailable)
	}
}
