package http

import (
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/internal/domain/layer"
	"github.com/Sentinel-Gate/httpdissect/internal/port/inbound"
	"github.com/Sentinel-Gate/httpdissect/internal/service"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ClassifyResponse is returned by POST /v1/classify.
type ClassifyResponse struct {
	Kind httpmsg.Kind `json:"kind"`
}

// CapturesResponse is returned by GET /v1/captures.
type CapturesResponse struct {
	Captures []capture.Record `json:"captures"`
	Count    int              `json:"count"`
}

// api serves the /v1 routes.
type api struct {
	svc inbound.Dissector
}

func (a *api) classify(w http.ResponseWriter, r *http.Request) {
	buf, ok := readBody(w, r)
	if !ok {
		return
	}
	defer bytebufferpool.Put(buf)

	writeJSON(w, http.StatusOK, ClassifyResponse{Kind: a.svc.Classify(r.Context(), buf.B)})
}

func (a *api) dissect(w http.ResponseWriter, r *http.Request) {
	kind, ok := httpmsg.ParseKind(r.URL.Query().Get("as"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "as must be auto, request or response")
		return
	}
	buf, ok := readBody(w, r)
	if !ok {
		return
	}
	defer bytebufferpool.Put(buf)

	rec, err := a.svc.Dissect(r.Context(), buf.B, kind)
	if err != nil {
		writeDissectError(w, r, err)
		return
	}
	if decode, _ := strconv.ParseBool(r.URL.Query().Get("decode_body")); decode {
		rec.Body = a.svc.DecodedBody(*rec)
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) serialize(w http.ResponseWriter, r *http.Request) {
	buf, ok := readBody(w, r)
	if !ok {
		return
	}
	defer bytebufferpool.Put(buf)

	var rec capture.Record
	if err := json.Unmarshal(buf.B, &rec); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid record JSON: "+err.Error())
		return
	}
	wire, err := rec.Wire()
	if err != nil {
		writeDissectError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(wire)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wire)
}

func (a *api) ingest(w http.ResponseWriter, r *http.Request) {
	src, err := parsePort(r.URL.Query().Get("src_port"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "src_port: "+err.Error())
		return
	}
	dst, err := parsePort(r.URL.Query().Get("dst_port"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "dst_port: "+err.Error())
		return
	}
	buf, ok := readBody(w, r)
	if !ok {
		return
	}
	defer bytebufferpool.Put(buf)

	rec, err := a.svc.Ingest(r.Context(), layer.Segment{SrcPort: src, DstPort: dst, Payload: buf.B})
	switch {
	case errors.Is(err, service.ErrNotGated), errors.Is(err, httpmsg.ErrNotHTTP):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		writeDissectError(w, r, err)
	default:
		writeJSON(w, http.StatusAccepted, rec)
	}
}

func (a *api) captures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, ok := httpmsg.ParseKind(q.Get("kind"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "kind must be request or response")
		return
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := a.svc.Query(r.Context(), q.Get("filter"), kind, limit)
	switch {
	case errors.Is(err, service.ErrNoStore):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, service.ErrInvalidFilter), errors.Is(err, service.ErrNoFilterCompiler):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		LoggerFromContext(r.Context()).Error("capture query failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if recs == nil {
		recs = []capture.Record{}
	}
	writeJSON(w, http.StatusOK, CapturesResponse{Captures: recs, Count: len(recs)})
}

// readBody reads the request body into a pooled buffer. The caller must
// return the buffer with bytebufferpool.Put when ok is true.
func readBody(w http.ResponseWriter, r *http.Request) (*bytebufferpool.ByteBuffer, bool) {
	buf := bytebufferpool.Get()
	if _, err := buf.ReadFrom(r.Body); err != nil {
		bytebufferpool.Put(buf)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return buf, true
}

func parsePort(s string) (uint16, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.New("must be an integer between 0 and 65535")
	}
	return uint16(n), nil
}

// writeDissectError maps core errors to 422 and anything else to 500.
func writeDissectError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpmsg.ErrMalformedStartLine),
		errors.Is(err, httpmsg.ErrEncoding),
		errors.Is(err, httpmsg.ErrNotHTTP),
		errors.Is(err, httpmsg.ErrUnknownField):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
