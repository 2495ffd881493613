// Package wire implements the line-delimited JSON-over-TCP protocol:
// one JSON object per line in, one JSON object per line out, keys
// encoded as 16 uppercase hex characters.
package wire

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koba789/qpkv/internal/page"
)

// Request is the envelope for every incoming line. Type selects which
// of the optional fields are meaningful.
type Request struct {
	Type     string      `json:"type"`
	TableID  string      `json:"table_id,omitempty"`
	Key      string      `json:"key,omitempty"`
	Value    string      `json:"value,omitempty"`
	Start    *string     `json:"start,omitempty"`
	Backward bool        `json:"backward,omitempty"`
	Limit    int         `json:"limit,omitempty"`
}

const (
	TypeCreateTable = "CreateTable"
	TypeGetItem     = "GetItem"
	TypePutItem     = "PutItem"
	TypeScanItem    = "ScanItem"
	TypeDeleteItem  = "DeleteItem"
	TypeFlush       = "Flush"
)

// Response is the envelope for every outgoing line. Type echoes the
// request's type on success. On failure Error is one of ErrDeadlock or
// ErrOther and Message carries detail; Item/Items/Type are absent.
type Response struct {
	Type    string     `json:"type,omitempty"`
	Item    *WireItem  `json:"item,omitempty"`
	Items   []WireItem `json:"items,omitempty"`
	Error   string     `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

// WireItem is a key/value pair as it appears on the wire: the key as
// 16 uppercase hex characters, the value as a UTF-8 string.
type WireItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// The two error tags a client can receive. Deadlock means the request
// can simply be retried; Other carries a human-readable Message.
const (
	ErrDeadlock = "Deadlock"
	ErrOther    = "Other"
)

// EncodeKey renders a page.Key as 16 uppercase hex characters.
func EncodeKey(k page.Key) string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// DecodeKey parses 16 hex characters (either case) into a page.Key.
func DecodeKey(s string) (page.Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return page.Key{}, fmt.Errorf("wire: invalid key %q: %w", s, err)
	}
	if len(b) != page.KeySize {
		return page.Key{}, fmt.Errorf("wire: key %q is %d bytes, want %d", s, len(b), page.KeySize)
	}
	return page.KeyFromBytes(b), nil
}

// DecodeTableID parses a table id the same way as a key: the catalog
// indexes tables by the same fixed-width Key type as record keys.
func DecodeTableID(s string) (page.Key, error) {
	return DecodeKey(s)
}

func unmarshalRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("wire: malformed request: %w", err)
	}
	return req, nil
}

func marshalResponse(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal response: %w", err)
	}
	return append(b, '\n'), nil
}
