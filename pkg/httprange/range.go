// Package httprange resolves HTTP Range request headers against a known or
// unknown total content length, producing a concrete byte window.
//
// Only single byte ranges are supported. Multipart ranges (comma-separated
// specs) are treated as unsatisfiable rather than silently serving the
// first part.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TotalUnknown marks an unknown total content length.
const TotalUnknown int64 = -1

// ErrUnsatisfiable reports a Range header that cannot be satisfied against
// the given total size. Callers should respond with 416 and a
// "Content-Range: bytes */<total>" header (see ContentRangeUnsatisfied).
var ErrUnsatisfiable = errors.New("httprange: range not satisfiable")

// Window is a resolved byte window. Start and End are inclusive offsets.
// End is openEnd when the window is open-ended (no Range end and unknown
// total). Total is TotalUnknown when the object size is unknown.
type Window struct {
	Start int64
	End   int64
	Total int64
}

const openEnd int64 = -1

// Full reports whether the window covers the entire object, i.e. no
// sub-range was requested.
func (w Window) Full() bool {
	return w.Start == 0 && (w.Total == TotalUnknown && w.End == openEnd || w.End == w.Total-1)
}

// OpenEnded reports whether the window has no fixed end offset.
func (w Window) OpenEnded() bool {
	return w.End == openEnd
}

// Length returns the number of bytes in the window, or -1 when open-ended.
func (w Window) Length() int64 {
	if w.OpenEnded() {
		return -1
	}
	return w.End - w.Start + 1
}

// ContentRange renders the "Content-Range: bytes start-end/total" header
// value for a satisfied partial response.
func (w Window) ContentRange() string {
	total := "*"
	if w.Total != TotalUnknown {
		total = strconv.FormatInt(w.Total, 10)
	}
	return fmt.Sprintf("bytes %d-%d/%s", w.Start, w.End, total)
}

// ContentRangeUnsatisfied renders the "Content-Range: bytes */total" header
// value for a 416 response.
func ContentRangeUnsatisfied(total int64) string {
	if total == TotalUnknown {
		return "bytes */*"
	}
	return fmt.Sprintf("bytes */%d", total)
}

// Resolve parses a Range header value against the total object size and
// returns the concrete byte window to serve.
//
// An empty header resolves to the full object. A malformed header, a
// multipart range, a suffix range against an unknown total, or a range
// starting at or beyond the end of the object all return ErrUnsatisfiable.
func Resolve(header string, total int64) (Window, error) {
	if header == "" {
		return fullWindow(total), nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return Window{}, fmt.Errorf("%w: unsupported unit in %q", ErrUnsatisfiable, header)
	}
	if strings.Contains(spec, ",") {
		return Window{}, fmt.Errorf("%w: multipart ranges not supported", ErrUnsatisfiable)
	}
	spec = strings.TrimSpace(spec)

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return Window{}, fmt.Errorf("%w: malformed range %q", ErrUnsatisfiable, header)
	}

	// Suffix form: bytes=-N means the final N bytes of the object.
	if startStr == "" {
		return resolveSuffix(endStr, total)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Window{}, fmt.Errorf("%w: invalid start in %q", ErrUnsatisfiable, header)
	}
	if total != TotalUnknown && start >= total {
		return Window{}, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, start, total)
	}

	// Open end: bytes=N- runs to the end of the object.
	if endStr == "" {
		end := openEnd
		if total != TotalUnknown {
			end = total - 1
		}
		return Window{Start: start, End: end, Total: total}, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return Window{}, fmt.Errorf("%w: invalid end in %q", ErrUnsatisfiable, header)
	}
	if start > end {
		return Window{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiable, start, end)
	}
	if total != TotalUnknown && end >= total {
		end = total - 1
	}
	return Window{Start: start, End: end, Total: total}, nil
}

func resolveSuffix(lengthStr string, total int64) (Window, error) {
	if total == TotalUnknown {
		return Window{}, fmt.Errorf("%w: suffix range against unknown size", ErrUnsatisfiable)
	}
	n, err := strconv.ParseInt(lengthStr, 10, 64)
	if err != nil || n <= 0 {
		return Window{}, fmt.Errorf("%w: invalid suffix length %q", ErrUnsatisfiable, lengthStr)
	}
	start := total - n
	if start < 0 {
		start = 0
	}
	return Window{Start: start, End: total - 1, Total: total}, nil
}

func fullWindow(total int64) Window {
	if total == TotalUnknown {
		return Window{Start: 0, End: openEnd, Total: TotalUnknown}
	}
	return Window{Start: 0, End: total - 1, Total: total}
}
