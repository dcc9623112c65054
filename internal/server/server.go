package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
	"github.com/Beijizb/obsidian-image-beiji/internal/plugin"
)

// MaxMessageBytes bounds one newline-delimited message. Pasted images
// travel base64-encoded inside a single line.
const MaxMessageBytes = 64 << 20

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
	codeServerError    = -32000
)

// Server bridges an editor host to the plugin over stdio.
type Server struct {
	plugin  *plugin.Plugin
	in      io.Reader
	out     io.Writer
	version string
	log     *logrus.Entry

	// mu serializes writes so notifications and responses never interleave.
	mu  sync.Mutex
	enc *json.Encoder

	shutdown bool
}

// Request is an incoming JSON-RPC request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Notification is an outgoing message without an ID.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// WithVersion sets the version reported by initialize.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a stdio server for p.
func New(p *plugin.Plugin, opts ...Option) *Server {
	s := &Server{
		plugin:  p,
		in:      os.Stdin,
		out:     os.Stdout,
		version: "dev",
		log:     logging.For("stdio"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enc = json.NewEncoder(s.out)
	return s
}

// Run reads requests until the input closes, ctx is done, or the host
// sends shutdown. Cancelling ctx returns promptly even while the input is
// idle.
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan []byte)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readLines(lines, errc, done)

	for {
		var line []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			line = l
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			s.send(errorResponse(nil, codeParseError, "Parse error", err.Error()))
			continue
		}

		if resp := s.handleRequest(ctx, &req); resp != nil {
			s.send(resp)
		}
		if s.shutdown {
			return nil
		}
	}
}

// readLines feeds non-empty input lines to Run. A read already in progress
// when Run returns stays blocked until the input closes.
func (s *Server) readLines(lines chan<- []byte, errc chan<- error, done <-chan struct{}) {
	defer close(lines)

	scanner := bufio.NewScanner(s.in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxMessageBytes)

	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		// The scanner reuses its buffer on the next Scan.
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case lines <- line:
		case <-done:
			errc <- nil
			return
		}
	}
	errc <- scanner.Err()
}

// handleRequest routes requests to their handlers.
func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req)
	case "notifications/initialized":
		return nil
	case "methods/list":
		return result(req.ID, map[string]interface{}{"methods": MethodDefinitions()})
	case "paste":
		return s.handlePaste(ctx, req)
	case "settings/list":
		return s.handleSettingsList(req)
	case "settings/update":
		return s.handleSettingsUpdate(req)
	case "settings/reload":
		return s.handleSettingsReload(req)
	case "shutdown":
		return s.handleShutdown(ctx, req)
	case "ping":
		return result(req.ID, map[string]interface{}{})
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

func (s *Server) handleInitialize(ctx context.Context, req *Request) *Response {
	if err := s.plugin.OnActivate(ctx); err != nil {
		return errorResponse(req.ID, codeServerError, "Activation failed", err.Error())
	}
	return result(req.ID, map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"paste":    map[string]interface{}{},
			"settings": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "imgpaste",
			"version": s.version,
		},
	})
}

// send writes one message. Write failures are logged; the host owns the
// other end of the pipe and there is nobody else to tell.
func (s *Server) send(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode message")
	}
}

func (s *Server) notify(method string, params interface{}) {
	s.send(&Notification{JSONRPC: "2.0", Method: method, Params: params})
}

func result(id interface{}, v interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

// errorResponse creates a JSON-RPC error response. An empty data is omitted.
func errorResponse(id interface{}, code int, message, data string) *Response {
	e := &RPCError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: e}
}
