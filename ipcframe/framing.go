// Package ipcframe implements length-prefixed message framing over a
// stream, grounded on
// original_source/Libraries/LibIPC/BufferedIPCReader.{h,cpp} and
// BufferedIPCWriter.{h,cpp}.
//
// Wire format: a 4-byte big-endian length header followed by that many
// payload bytes. MinMessageSize and MaxMessageSize bound the header value
// so a corrupted or hostile peer cannot force an unbounded allocation.
package ipcframe

import (
	"encoding/binary"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelcore/resilience/errs"
	"github.com/sentinelcore/resilience/internal/clock"
	"github.com/sentinelcore/resilience/telemetry"
)

const (
	// HeaderSize is the width of the big-endian length prefix.
	HeaderSize = 4

	// MinMessageSize is the smallest payload a header may declare.
	MinMessageSize = 1

	// MaxMessageSize is the largest payload a header may declare, bounding
	// the accumulation buffer against a hostile or corrupted peer.
	MaxMessageSize = 10 * 1024 * 1024

	// chunkSize bounds each individual read, avoiding a single large
	// allocation for the whole payload up front.
	chunkSize = 4096
)

// DefaultTimeout is the read deadline applied when callers do not specify
// one, matching the original's five-second default.
const DefaultTimeout = 5 * time.Second

type readState int

const (
	readingHeader readState = iota
	readingPayload
)

// Reader accumulates partial stream reads into complete, length-prefixed
// messages. A Reader is not safe for concurrent use by multiple goroutines.
type Reader struct {
	name   string
	logger *zap.Logger
	sink   telemetry.Sink
	clock  clock.Clock

	buf            []byte
	expectedLength uint32
	state          readState
	readStart      time.Time
	readStartSet   bool
}

// ReaderSettings configures a Reader.
type ReaderSettings struct {
	Name   string
	Logger *zap.Logger
	Sink   telemetry.Sink
	clock  clock.Clock
}

// NewReader creates a Reader in its initial ReadingHeader state.
func NewReader(settings ReaderSettings) *Reader {
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := settings.Sink
	if sink == nil {
		sink = telemetry.Noop()
	}
	c := settings.clock
	if c == nil {
		c = clock.Real
	}
	return &Reader{name: settings.Name, logger: logger, sink: sink, clock: c}
}

// ReadMessage reads one complete framed message from r, blocking across
// multiple underlying Read calls as needed, and enforces timeout as an
// overall deadline measured from the start of the first ReadMessage call
// for the current message.
func (rd *Reader) ReadMessage(r io.Reader, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if !rd.readStartSet {
		rd.readStart = rd.clock.Now()
		rd.readStartSet = true
	}

	for {
		if rd.clock.Now().Sub(rd.readStart) > timeout {
			rd.Reset()
			err := errs.New(errs.ReadTimeout, "ipcframe: read timeout - incomplete message")
			rd.sink.RecordFrame(rd.name, "read", 0, err)
			return nil, err
		}

		switch rd.state {
		case readingHeader:
			if err := rd.readHeader(r); err != nil {
				rd.sink.RecordFrame(rd.name, "read", 0, err)
				return nil, err
			}
		case readingPayload:
			if err := rd.readPayload(r); err != nil {
				rd.sink.RecordFrame(rd.name, "read", 0, err)
				return nil, err
			}
			if uint32(len(rd.buf)) >= rd.expectedLength {
				message := make([]byte, rd.expectedLength)
				copy(message, rd.buf[:rd.expectedLength])
				rd.sink.RecordFrame(rd.name, "read", len(message), nil)
				rd.Reset()
				return message, nil
			}
		}
	}
}

func (rd *Reader) readHeader(r io.Reader) error {
	for len(rd.buf) < HeaderSize {
		tmp := make([]byte, HeaderSize-len(rd.buf))
		n, err := r.Read(tmp)
		if n == 0 && err != nil {
			return errs.FromNetErr(err)
		}
		if n == 0 {
			return errs.New(errs.ConnectionClosed, "ipcframe: connection closed while reading message header")
		}
		rd.buf = append(rd.buf, tmp[:n]...)
	}

	rd.expectedLength = binary.BigEndian.Uint32(rd.buf[:HeaderSize])

	if rd.expectedLength == 0 {
		rd.Reset()
		return errs.New(errs.MessageTooSmall, "ipcframe: invalid message length: zero")
	}
	if rd.expectedLength < MinMessageSize {
		rd.Reset()
		return errs.New(errs.MessageTooSmall, "ipcframe: invalid message length: too small")
	}
	if rd.expectedLength > MaxMessageSize {
		rd.Reset()
		return errs.New(errs.MessageTooLarge, "ipcframe: message too large")
	}

	rd.buf = rd.buf[:0]
	rd.state = readingPayload
	return nil
}

func (rd *Reader) readPayload(r io.Reader) error {
	remaining := int(rd.expectedLength) - len(rd.buf)
	if remaining <= 0 {
		return nil
	}

	toRead := remaining
	if toRead > chunkSize {
		toRead = chunkSize
	}

	tmp := make([]byte, toRead)
	n, err := r.Read(tmp)
	if n == 0 && err != nil {
		return errs.FromNetErr(err)
	}
	if n == 0 {
		return errs.New(errs.ConnectionClosed, "ipcframe: connection closed while reading message payload")
	}

	rd.buf = append(rd.buf, tmp[:n]...)
	return nil
}

// HasCompleteMessage reports whether the internal buffer already holds a
// full payload, without performing any I/O.
func (rd *Reader) HasCompleteMessage() bool {
	if rd.state == readingHeader {
		return false
	}
	return uint32(len(rd.buf)) >= rd.expectedLength
}

// Reset clears all accumulated state, useful after an error to discard a
// partially-read message rather than try to resynchronize with it.
func (rd *Reader) Reset() {
	rd.buf = rd.buf[:0]
	rd.expectedLength = 0
	rd.state = readingHeader
	rd.readStartSet = false
}

// Writer writes length-prefixed messages, the companion to Reader.
type Writer struct {
	name   string
	logger *zap.Logger
	sink   telemetry.Sink
}

// WriterSettings configures a Writer.
type WriterSettings struct {
	Name   string
	Logger *zap.Logger
	Sink   telemetry.Sink
}

// NewWriter creates a Writer.
func NewWriter(settings WriterSettings) *Writer {
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := settings.Sink
	if sink == nil {
		sink = telemetry.Noop()
	}
	return &Writer{name: settings.Name, logger: logger, sink: sink}
}

// WriteMessage prepends a 4-byte big-endian length header to payload and
// writes both to w, guarding against short writes the way a raw
// io.Writer.Write is permitted to perform.
func (wr *Writer) WriteMessage(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		err := errs.New(errs.MessageTooSmall, "ipcframe: cannot write empty message")
		wr.sink.RecordFrame(wr.name, "write", 0, err)
		return err
	}
	if len(payload) > MaxMessageSize {
		err := errs.New(errs.MessageTooLarge, "ipcframe: message too large")
		wr.sink.RecordFrame(wr.name, "write", 0, err)
		return err
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)

	if err := writeAll(w, frame); err != nil {
		wrapped := errs.FromNetErr(err)
		wr.sink.RecordFrame(wr.name, "write", 0, wrapped)
		return wrapped
	}

	wr.sink.RecordFrame(wr.name, "write", len(payload), nil)
	return nil
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
