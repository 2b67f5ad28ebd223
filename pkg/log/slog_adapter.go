package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Broker != "" {
		attrs = append(attrs, slog.String("broker", event.Broker))
	}
	if event.NodeID != 0 {
		attrs = append(attrs, slog.Int64("node_id", int64(event.NodeID)))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("from", event.StateChange.From),
			slog.String("to", event.StateChange.To),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.ControlMsg != nil:
		attrs = append(attrs,
			slog.String("control", event.ControlMsg.Type.String()),
			slog.Uint64("seq", uint64(event.ControlMsg.Sequence)),
		)
	case event.Handshake != nil:
		attrs = append(attrs, slog.String("state", event.Handshake.State))
		if event.Handshake.ServerName != "" {
			attrs = append(attrs, slog.String("server_name", event.Handshake.ServerName))
		}
		if event.Handshake.Version != "" {
			attrs = append(attrs,
				slog.String("tls_version", event.Handshake.Version),
				slog.String("cipher_suite", event.Handshake.CipherSuite),
			)
		}
		if event.Handshake.PeerSubject != "" {
			attrs = append(attrs, slog.String("peer_subject", event.Handshake.PeerSubject))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error", event.Error.Message),
			slog.Bool("fatal", event.Error.Fatal),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
