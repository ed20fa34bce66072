package dualauth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/dualauth/internal/audit"
)

type (
	// AuditEvent is one audit record. ID is a ULID assigned at emission.
	AuditEvent = audit.Event
	// AuditSink receives events from the engine's dispatcher goroutine.
	AuditSink = audit.Sink
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink forwards events to a buffered channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes JSON lines.
	JSONWriterSink = audit.JSONWriterSink
	// SlogSink writes events as log records.
	SlogSink = audit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }
