package log

import (
	"bytes"
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 12, 10, 15, 32, 123456789, time.UTC)
	original := Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-def6-7890-abcd-ef1234567890",
		Direction:    DirectionOut,
		Layer:        LayerSecurity,
		Category:     CategorySecurity,
		RemoteAddr:   "192.168.1.100:9092",
		Broker:       "broker.internal:9092",
		NodeID:       3,
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.ConnectionID != original.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, original.ConnectionID)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.Layer != original.Layer {
		t.Errorf("Layer: got %v, want %v", decoded.Layer, original.Layer)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.RemoteAddr != original.RemoteAddr {
		t.Errorf("RemoteAddr: got %q, want %q", decoded.RemoteAddr, original.RemoteAddr)
	}
	if decoded.Broker != original.Broker {
		t.Errorf("Broker: got %q, want %q", decoded.Broker, original.Broker)
	}
	if decoded.NodeID != original.NodeID {
		t.Errorf("NodeID: got %d, want %d", decoded.NodeID, original.NodeID)
	}
}

func TestEventCBORPayloads(t *testing.T) {
	events := []Event{
		{
			Timestamp: time.Now(),
			Category:  CategoryMessage,
			Frame:     &FrameEvent{Size: 128, Data: []byte{0x01, 0x02}, Truncated: true},
		},
		{
			Timestamp:   time.Now(),
			Category:    CategoryState,
			StateChange: &StateChangeEvent{From: "HANDSHAKING", To: "FAILED", Reason: "verify failed"},
		},
		{
			Timestamp:  time.Now(),
			Category:   CategoryControl,
			ControlMsg: &ControlMsgEvent{Type: ControlMsgPing, Sequence: 42},
		},
		{
			Timestamp: time.Now(),
			Category:  CategorySecurity,
			Handshake: &HandshakeEvent{State: "ESTABLISHED", ServerName: "broker.internal", Version: "TLS 1.3"},
		},
		{
			Timestamp: time.Now(),
			Category:  CategoryError,
			Error:     &ErrorEventData{Message: "Disconnected", Fatal: true},
		},
	}

	for _, ev := range events {
		data, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%v) failed: %v", ev.Category, err)
		}
		decoded, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent(%v) failed: %v", ev.Category, err)
		}
		if decoded.Category != ev.Category {
			t.Errorf("Category: got %v, want %v", decoded.Category, ev.Category)
		}
		switch ev.Category {
		case CategoryMessage:
			if decoded.Frame == nil || decoded.Frame.Size != 128 || !decoded.Frame.Truncated {
				t.Errorf("Frame payload lost: %+v", decoded.Frame)
			}
		case CategoryState:
			if decoded.StateChange == nil || decoded.StateChange.To != "FAILED" {
				t.Errorf("StateChange payload lost: %+v", decoded.StateChange)
			}
		case CategoryControl:
			if decoded.ControlMsg == nil || decoded.ControlMsg.Sequence != 42 {
				t.Errorf("ControlMsg payload lost: %+v", decoded.ControlMsg)
			}
		case CategorySecurity:
			if decoded.Handshake == nil || decoded.Handshake.ServerName != "broker.internal" {
				t.Errorf("Handshake payload lost: %+v", decoded.Handshake)
			}
		case CategoryError:
			if decoded.Error == nil || decoded.Error.Message != "Disconnected" {
				t.Errorf("Error payload lost: %+v", decoded.Error)
			}
		}
	}
}

func TestEncoderDecoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	want := []string{"conn-1", "conn-2", "conn-3"}
	for _, id := range want {
		if err := enc.Encode(Event{Timestamp: time.Now(), ConnectionID: id}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i, id := range want {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("Decode %d failed: %v", i, err)
		}
		if ev.ConnectionID != id {
			t.Errorf("event %d: ConnectionID = %q, want %q", i, ev.ConnectionID, id)
		}
	}
}
