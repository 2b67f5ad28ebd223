package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the frame length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (64 KB).
	DefaultMaxMessageSize = 65536

	// MaxLogFrameDataSize caps the frame bytes copied into log events
	// (4 KB); larger frames are truncated in the event.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty message.
	ErrMessageEmpty = errors.New("message is empty")
)

// Framer moves length-prefixed messages over a byte stream. The prefix
// is 4 bytes big-endian. Reads and writes are independently serialized,
// so one goroutine may read while another writes.
type Framer struct {
	rw             io.ReadWriter
	maxMessageSize uint32

	readMu  sync.Mutex
	writeMu sync.Mutex

	logger log.Logger
	connID string
}

// NewFramer creates a framer with the default maximum message size.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with a custom maximum message
// size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{rw: rw, maxMessageSize: maxSize}
}

// SetLogger configures frame logging. Pass nil to disable.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.logger = logger
	f.connID = connID
}

// SetMaxMessageSize updates the maximum accepted message size.
func (f *Framer) SetMaxMessageSize(size uint32) {
	f.maxMessageSize = size
}

// WriteFrame writes one length-prefixed frame.
func (f *Framer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > f.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), f.maxMessageSize)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := f.rw.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := f.rw.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	f.logFrame(data, log.DirectionOut)
	return nil
}

// ReadFrame reads one length-prefixed frame and returns its payload.
func (f *Framer) ReadFrame() ([]byte, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(f.rw, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("frame truncated: %w", err)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 {
		return nil, ErrMessageEmpty
	}
	if size > f.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, f.maxMessageSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(f.rw, payload); err != nil {
		return nil, fmt.Errorf("frame truncated: %w", err)
	}

	f.logFrame(payload, log.DirectionIn)
	return payload, nil
}

func (f *Framer) logFrame(data []byte, direction log.Direction) {
	if f.logger == nil {
		return
	}
	frameData := data
	truncated := false
	if len(frameData) > MaxLogFrameDataSize {
		frameData = frameData[:MaxLogFrameDataSize]
		truncated = true
	}
	f.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: f.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      LengthPrefixSize + len(data),
			Data:      frameData,
			Truncated: truncated,
		},
	})
}

// FrameSize returns the on-wire size of a frame for a payload length.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
