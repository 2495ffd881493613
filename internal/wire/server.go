package wire

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/google/uuid"

	"github.com/koba789/qpkv/internal/btree"
	"github.com/koba789/qpkv/internal/executor"
	"github.com/koba789/qpkv/internal/page"
)

// maxLineSize bounds a single request line; the scanner buffer may grow
// to this, above bufio.Scanner's default 64KiB token limit.
const maxLineSize = 1 << 20

// Server accepts connections and serves the line-delimited protocol
// against a shared Executor.
type Server struct {
	addr string
	exec *executor.Executor
}

// New creates a Server bound to addr, dispatching every request to exec.
func New(addr string, exec *executor.Executor) *Server {
	return &Server{addr: addr, exec: exec}
}

// ListenAndServe binds addr and serves connections until the listener
// fails or the process exits. Each connection is handled by its own
// goroutine and, within a connection, requests are handled sequentially
// to preserve per-connection ordering.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Printf("wire: listening on %s", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	id := uuid.New()
	log.Printf("wire: connection %s accepted from %s", id, conn.RemoteAddr())
	defer func() {
		conn.Close()
		log.Printf("wire: connection %s closed", id)
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	w := bufio.NewWriter(conn)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(line)
		out, err := marshalResponse(resp)
		if err != nil {
			log.Printf("wire: connection %s: %v", id, err)
			continue
		}
		if _, err := w.Write(out); err != nil {
			log.Printf("wire: connection %s: write failed: %v", id, err)
			return
		}
		if err := w.Flush(); err != nil {
			log.Printf("wire: connection %s: flush failed: %v", id, err)
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("wire: connection %s: read failed: %v", id, err)
	}
}

// dispatch decodes and executes a single request line. It never returns
// an error itself: every failure, malformed request or not, becomes an
// error Response so the connection keeps serving.
func (s *Server) dispatch(line []byte) Response {
	req, err := unmarshalRequest(line)
	if err != nil {
		return errorResponse(err)
	}

	switch req.Type {
	case TypeCreateTable:
		return s.handleCreateTable(req)
	case TypeGetItem:
		return s.handleGetItem(req)
	case TypePutItem:
		return s.handlePutItem(req)
	case TypeScanItem:
		return s.handleScanItem(req)
	case TypeDeleteItem:
		return s.handleDeleteItem(req)
	case TypeFlush:
		return s.handleFlush(req)
	default:
		return errorResponse(fmt.Errorf("wire: unknown request type %q", req.Type))
	}
}

func (s *Server) handleCreateTable(req Request) Response {
	tableID, err := DecodeTableID(req.TableID)
	if err != nil {
		return errorResponse(err)
	}
	if err := s.exec.CreateTable(tableID); err != nil {
		return errorResponse(err)
	}
	return Response{Type: req.Type}
}

func (s *Server) handleGetItem(req Request) Response {
	tableID, err := DecodeTableID(req.TableID)
	if err != nil {
		return errorResponse(err)
	}
	key, err := DecodeKey(req.Key)
	if err != nil {
		return errorResponse(err)
	}
	value, ok, err := s.exec.GetItem(tableID, key)
	if err != nil {
		return errorResponse(err)
	}
	if !ok {
		return Response{Type: req.Type}
	}
	return Response{Type: req.Type, Item: &WireItem{Key: EncodeKey(key), Value: string(value)}}
}

func (s *Server) handlePutItem(req Request) Response {
	tableID, err := DecodeTableID(req.TableID)
	if err != nil {
		return errorResponse(err)
	}
	key, err := DecodeKey(req.Key)
	if err != nil {
		return errorResponse(err)
	}
	if err := s.exec.PutItem(tableID, key, []byte(req.Value)); err != nil {
		return errorResponse(err)
	}
	return Response{Type: req.Type}
}

func (s *Server) handleScanItem(req Request) Response {
	tableID, err := DecodeTableID(req.TableID)
	if err != nil {
		return errorResponse(err)
	}
	var start *page.Key
	if req.Start != nil {
		k, err := DecodeKey(*req.Start)
		if err != nil {
			return errorResponse(err)
		}
		start = &k
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}
	items, err := s.exec.ScanItem(tableID, start, req.Backward, limit)
	if err != nil {
		return errorResponse(err)
	}
	out := make([]WireItem, len(items))
	for i, it := range items {
		out[i] = WireItem{Key: EncodeKey(it.Key), Value: string(it.Value)}
	}
	return Response{Type: req.Type, Items: out}
}

func (s *Server) handleDeleteItem(req Request) Response {
	tableID, err := DecodeTableID(req.TableID)
	if err != nil {
		return errorResponse(err)
	}
	key, err := DecodeKey(req.Key)
	if err != nil {
		return errorResponse(err)
	}
	if err := s.exec.DeleteItem(tableID, key); err != nil {
		return errorResponse(err)
	}
	return Response{Type: req.Type}
}

func (s *Server) handleFlush(req Request) Response {
	if err := s.exec.Flush(); err != nil {
		return errorResponse(err)
	}
	return Response{Type: req.Type}
}

func errorResponse(err error) Response {
	kind := ErrOther
	if errors.Is(err, btree.ErrDeadlock) {
		kind = ErrDeadlock
	}
	return Response{Error: kind, Message: err.Error()}
}
