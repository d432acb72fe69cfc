package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/loopwork-ai/infinity-mcp/jsonrpc"
)

// MaxLineSize is the largest request line the transport accepts.
// Longer lines are discarded and answered with an internal error.
const MaxLineSize = 64 * 1024 * 1024

var errLineTooLong = errors.New("request line too long")

// Transport handles the communication between stdin/stdout and the MCP server.
// Requests are served one at a time: a line is read, handled and answered
// before the next line is read.
type Transport struct {
	reader      *bufio.Reader
	out         *bufio.Writer
	logger      *slog.Logger
	maxLineSize int
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Transport{
		reader:      bufio.NewReaderSize(in, 64*1024),
		out:         bufio.NewWriter(out),
		logger:      logger,
		maxLineSize: MaxLineSize,
	}
}

// Run reads requests until end of input, an empty line, or cancellation.
// End of input and empty lines end the session without error.
func (t *Transport) Run(ctx context.Context, handler jsonrpc.Handler) error {
	if terminator, ok := handler.(interface{ Terminate() }); ok {
		defer terminator.Terminate()
	}

	// The reader scans one line per signal on next: a request is never read
	// before the previous one has been answered.
	next := make(chan struct{})
	lines := make(chan scanResult, 1)
	defer close(next)
	go t.read(next, lines)

	t.logger.Info("session started, waiting for messages")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		next <- struct{}{}

		var result scanResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result = <-lines:
		}

		switch {
		case errors.Is(result.err, io.EOF):
			t.logger.Info("end of input, closing session")
			return nil
		case errors.Is(result.err, errLineTooLong):
			t.logger.Error("discarding request line", "error", result.err, "limit", t.maxLineSize)
			err := fmt.Errorf("error reading request: %w (limit %d bytes)", result.err, t.maxLineSize)
			if err := t.write(jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err))); err != nil {
				return err
			}
			continue
		case result.err != nil:
			return fmt.Errorf("error reading input: %w", result.err)
		}

		line := bytes.TrimSpace(result.line)
		if len(line) == 0 {
			t.logger.Info("empty line, closing session")
			return nil
		}

		response, ok := t.handle(ctx, handler, line)
		if !ok {
			continue
		}

		if err := t.write(response); err != nil {
			return err
		}
	}
}

type scanResult struct {
	line []byte
	err  error
}

func (t *Transport) read(next <-chan struct{}, lines chan<- scanResult) {
	for range next {
		line, err := t.readLine()
		lines <- scanResult{line: line, err: err}
		if err != nil && !errors.Is(err, errLineTooLong) {
			return
		}
	}
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as is; io.EOF is reported only once no
// bytes remain. A line over the limit is consumed up to its newline and
// reported as errLineTooLong.
func (t *Transport) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := t.reader.ReadSlice('\n')
		if len(line)+len(bytes.TrimSuffix(chunk, []byte("\n"))) > t.maxLineSize {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = t.reader.ReadSlice('\n')
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return nil, errLineTooLong
		}
		line = append(line, chunk...)

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) > 0 {
				return line, nil
			}
			return nil, io.EOF
		case err != nil:
			return nil, err
		}
		return bytes.TrimSuffix(line, []byte("\n")), nil
	}
}

func (t *Transport) handle(ctx context.Context, handler jsonrpc.Handler, line []byte) (jsonrpc.Response, bool) {
	request, err := jsonrpc.DecodeRequest(line)
	if errors.Is(err, jsonrpc.ErrNullRequest) {
		t.logger.Debug("skipping null request")
		return jsonrpc.Response{}, false
	}
	if err != nil {
		t.logger.Error("error processing request", "error", err)
		return jsonrpc.NewResponse(nil, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err)), true
	}

	return handler.Handle(ctx, request), true
}

func (t *Transport) write(response jsonrpc.Response) error {
	line, err := jsonrpc.EncodeResponse(response)
	if err != nil {
		t.logger.Error("error encoding response", "id", response.ID, "error", err)
		line, err = jsonrpc.EncodeResponse(jsonrpc.NewResponse(response.ID, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err)))
		if err != nil {
			return err
		}
	}

	if _, err := t.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	if err := t.out.Flush(); err != nil {
		return fmt.Errorf("error flushing response: %w", err)
	}
	return nil
}
