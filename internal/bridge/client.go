package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// CodeNoImagery is the worker error code for an empty image search.
const CodeNoImagery = -32010

// Request is an outgoing JSON-RPC request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is an incoming JSON-RPC response or notification. Notifications
// carry a Method and no ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error returned by the worker.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("worker error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("worker error %d: %s", e.Code, e.Message)
}

// ErrClosed is returned by calls made after the worker stream ended.
var ErrClosed = errors.New("worker connection closed")

// Client issues sequential calls over a line-delimited JSON-RPC stream.
type Client struct {
	mu      sync.Mutex
	enc     *json.Encoder
	w       io.Writer
	nextID  int64
	pending chan Response
	done    chan struct{}
	readErr error
	logger  *zap.Logger
}

// NewClient starts reading responses from r. Requests are written to w.
func NewClient(r io.Reader, w io.Writer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		enc:     json.NewEncoder(w),
		w:       w,
		pending: make(chan Response),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.done)

	scanner := bufio.NewScanner(r)
	// extraction results can be large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Warn("failed to parse worker message", zap.Error(err))
			continue
		}

		if resp.ID == nil {
			c.handleNotification(resp)
			continue
		}
		c.pending <- resp
	}

	if err := scanner.Err(); err != nil {
		c.readErr = fmt.Errorf("scanner error: %w", err)
	}
}

func (c *Client) handleNotification(n Response) {
	var params struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(n.Params, &params)
	c.logger.Debug("worker notification",
		zap.String("method", n.Method),
		zap.String("message", params.Message))
}

// Call sends one request and waits for its response. result may be nil.
// Cancelling ctx abandons the wait; the stream is then out of step and the
// client should be closed.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.enc.Encode(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			if c.readErr != nil {
				return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
			}
			return ErrClosed
		case resp := <-c.pending:
			if *resp.ID != id {
				c.logger.Warn("discarding stale worker response",
					zap.Int64("id", *resp.ID), zap.Int64("want", id))
				continue
			}
			return decodeResult(method, resp, result)
		}
	}
}

func decodeResult(method string, resp Response, result interface{}) error {
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// Close closes the request stream if it is closable and waits for the worker
// to end its response stream.
func (c *Client) Close() error {
	var err error
	if closer, ok := c.w.(io.Closer); ok {
		err = closer.Close()
	}
	// drain late responses so the reader can reach EOF
	for {
		select {
		case <-c.done:
			return err
		case <-c.pending:
		}
	}
}
