package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/bastiangx/frecency/pkg/frecency"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMaxItems bounds the items of a single sort request.
const DefaultMaxItems = 1000

// sort latency is tracked in microseconds up to one minute
const (
	histMin     = 1
	histMax     = int64(time.Minute / time.Microsecond)
	histSigFigs = 3
)

// Config holds the server limits.
type Config struct {
	MaxItems int
}

// Server handles the IPC for frecency ranking
type Server struct {
	frecency *frecency.Frecency
	maxItems int

	decoder *msgpack.Decoder
	encoder *msgpack.Encoder
	writer  *bufio.Writer

	requests int64
	errors   int64
	saves    int64
	sorts    int64
	sortHist *hdrhistogram.Histogram
}

// NewServer creates a server using stdin/stdout for IPC.
func NewServer(f *frecency.Frecency, cfg Config) *Server {
	return NewServerWithIO(f, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing
// responses to w.
func NewServerWithIO(f *frecency.Frecency, cfg Config, r io.Reader, w io.Writer) *Server {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)
	// Record and its nested types only carry json tags.
	enc.SetCustomStructTag("json")

	return &Server{
		frecency: f,
		maxItems: cfg.MaxItems,
		decoder:  msgpack.NewDecoder(bufio.NewReader(r)),
		encoder:  enc,
		writer:   bw,
		sortHist: hdrhistogram.New(histMin, histMax, histSigFigs),
	}
}

// Start signals readiness and serves requests until the input is closed.
func (s *Server) Start() error {
	log.Debug("Starting Server.")

	s.sendResponse(map[string]string{"status": "ready"})

	for {
		raw, err := s.decoder.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return err
		}
		s.handleRequest(raw)
	}
}

// handleRequest decodes a single msgpack message and dispatches on its op.
func (s *Server) handleRequest(raw msgpack.RawMessage) {
	s.requests++

	var req Request
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&req); err != nil {
		log.Errorf("Decoding request: %v", err)
		s.sendError("", "invalid msgpack request", 400)
		return
	}

	switch req.Op {
	case OpSave:
		s.handleSave(req)
	case OpSort:
		s.handleSort(req)
	case OpScore:
		s.handleScore(req)
	case OpDump:
		s.sendResponse(DumpResponse{ID: req.ID, Record: s.frecency.Record()})
	case OpReset:
		s.frecency.Reset()
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case OpStats:
		s.sendResponse(StatsResponse{ID: req.ID, Stats: s.Stats()})
	case OpHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	case "":
		s.sendError(req.ID, "missing 'op' parameter", 400)
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown op: %s", req.Op), 400)
	}
}

func (s *Server) handleSave(req Request) {
	if req.Selected == "" {
		s.sendError(req.ID, "missing 'sel' parameter", 400)
		return
	}
	var at time.Time
	if req.Time > 0 {
		at = time.UnixMilli(req.Time)
	}
	s.frecency.Save(queryOf(req), req.Selected, at)
	s.saves++

	status := "ok"
	if !s.frecency.Enabled() {
		status = "disabled"
	}
	s.sendResponse(StatusResponse{ID: req.ID, Status: status})
}

func (s *Server) handleSort(req Request) {
	if len(req.Items) > s.maxItems {
		s.sendError(req.ID, fmt.Sprintf("too many items: %d exceeds limit of %d", len(req.Items), s.maxItems), 400)
		return
	}

	start := time.Now()
	var items []frecency.Item
	if req.Keep {
		items = s.frecency.SortWithScores(queryOf(req), req.Items)
	} else {
		items = s.frecency.Sort(queryOf(req), req.Items)
	}
	elapsed := time.Since(start)

	s.sorts++
	if err := s.sortHist.RecordValue(max(elapsed.Microseconds(), histMin)); err != nil {
		log.Debugf("Sort latency out of range: %v", elapsed)
	}

	if items == nil {
		items = []frecency.Item{}
	}
	s.sendResponse(SortResponse{
		ID:        req.ID,
		Items:     items,
		Count:     len(items),
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleScore(req Request) {
	if req.Item == nil {
		s.sendError(req.ID, "missing 'item' parameter", 400)
		return
	}
	var now time.Time
	if req.Now > 0 {
		now = time.UnixMilli(req.Now)
	}
	score := s.frecency.ComputeScore(queryOf(req), req.Item, now)
	s.sendResponse(ScoreResponse{ID: req.ID, Score: score})
}

// Stats returns the counters and sort latency percentiles so far.
func (s *Server) Stats() Stats {
	rec := s.frecency.Record()
	st := Stats{
		Requests:    s.requests,
		Errors:      s.errors,
		Saves:       s.saves,
		Sorts:       s.sorts,
		Key:         s.frecency.StorageKey(),
		Enabled:     s.frecency.Enabled(),
		StoredIDs:   len(rec.RecentSelections),
		StoredQuery: len(rec.Queries),
	}
	if s.sortHist.TotalCount() > 0 {
		st.SortP50 = s.sortHist.ValueAtQuantile(50)
		st.SortP99 = s.sortHist.ValueAtQuantile(99)
		st.SortMax = s.sortHist.Max()
	}
	return st
}

func queryOf(req Request) frecency.Query {
	if req.Query == nil {
		return frecency.NoQuery
	}
	return frecency.ForQuery(*req.Query)
}

// sendResponse encodes the response as a single msgpack message and flushes it.
func (s *Server) sendResponse(response any) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.errors++
	s.sendResponse(ErrorResponse{
		ID:    id,
		Error: message,
		Code:  code,
	})
}
