package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

const (
	// LengthPrefixSize is the size of the big-endian length prefix.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize bounds a single frame payload (256 KB).
	// Directory responses of large trees are the biggest messages.
	DefaultMaxMessageSize = 256 * 1024

	// MaxLogFrameDataSize caps how much of a frame is copied into a
	// capture event.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// frameLog is the optional capture hook shared by readers and writers.
type frameLog struct {
	logger log.Logger
	connID string
	role   log.Role
}

func (fl *frameLog) log(data []byte, dir log.Direction) {
	if fl.logger == nil {
		return
	}
	ev := &log.FrameEvent{Size: LengthPrefixSize + len(data), Data: data}
	if len(data) > MaxLogFrameDataSize {
		ev.Data = data[:MaxLogFrameDataSize]
		ev.Truncated = true
	}
	fl.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fl.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		LocalRole:    fl.role,
		Frame:        ev,
	})
}

// FrameWriter writes length-prefixed frames. It is safe for concurrent use.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex
	frameLog
}

// NewFrameWriter creates a frame writer with the default size limit.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom limit.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, maxMessageSize: maxSize}
}

// SetLogger enables frame capture. Pass nil to disable.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string, role log.Role) {
	fw.frameLog = frameLog{logger: logger, connID: connID, role: role}
}

// WriteFrame writes data prefixed with its length.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}

	// Prefix and payload go out in one write so a concurrent reader never
	// sees a prefix without its payload.
	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	fw.log(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames. It is not safe for concurrent
// use; each connection has a single read loop.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte
	frameLog
}

// NewFrameReader creates a frame reader with the default size limit.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom limit.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, maxMessageSize: maxSize}
}

// SetLogger enables frame capture. Pass nil to disable.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string, role log.Role) {
	fr.frameLog = frameLog{logger: logger, connID: connID, role: role}
}

// ReadFrame reads one frame and returns its payload.
// A clean close between frames returns io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	fr.log(payload, log.DirectionIn)
	return payload, nil
}

// Framer combines a FrameReader and a FrameWriter over one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer with the given size limit
// (0 means DefaultMaxMessageSize).
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger enables frame capture in both directions.
func (f *Framer) SetLogger(logger log.Logger, connID string, role log.Role) {
	f.FrameReader.SetLogger(logger, connID, role)
	f.FrameWriter.SetLogger(logger, connID, role)
}
