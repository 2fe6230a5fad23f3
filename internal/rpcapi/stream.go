package rpcapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vfscore/vfskernel/pkg/kernel"
)

// handleStream implements spec.md §6's stream-read adapter: Range (206 +
// Content-Range), ETag/Last-Modified derived from size+mtime, and 304 on
// If-None-Match. The kernel itself has no notion of HTTP; every concern
// here lives at the adapter boundary (spec §7).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/stream")
	if path == "" {
		path = "/"
	}

	stat, err := s.kernel.Stat(r.Context(), path)
	if err != nil {
		respondErr(w, "rpcapi", "stream", err)
		return
	}

	etag := fmt.Sprintf(`"%d-%d"`, stat.Size, stat.Mtime)
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", time.UnixMilli(stat.Mtime).UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := s.kernel.ReadFile(r.Context(), path, kernel.EncodingRaw)
	if err != nil {
		respondErr(w, "rpcapi", "stream", err)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
		return
	}

	start, end, ok := parseByteRange(rangeHeader, len(data))
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", len(data)))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
	w.Header().Set("Content-Length", strconv.Itoa(end-start+1))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data[start : end+1])
	}
}

// parseByteRange parses a single "bytes=start-end" range header against a
// resource of the given size (RFC 7233 single-range subset — multipart
// ranges are not needed by any SPEC_FULL operation).
func parseByteRange(header string, size int) (start, end int, ok bool) {
	if size == 0 {
		return 0, 0, false
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	if parts[0] == "" {
		// suffix range: last N bytes
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	s, err := strconv.Atoi(parts[0])
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}
	e := size - 1
	if parts[1] != "" {
		e, err = strconv.Atoi(parts[1])
		if err != nil || e < s {
			return 0, 0, false
		}
		if e >= size {
			e = size - 1
		}
	}
	return s, e, true
}
