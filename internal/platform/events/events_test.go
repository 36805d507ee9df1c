package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	calls  int
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent(t *testing.T) Event {
	t.Helper()
	evt, err := New(TypeLabResultAbnormal, "patient-7", map[string]interface{}{"result_id": 11, "flag": "H"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return evt
}

func TestNew_Envelope(t *testing.T) {
	evt := sampleEvent(t)
	if evt.ID == "" {
		t.Error("expected event id")
	}
	if evt.Type != TypeLabResultAbnormal || evt.Source != Source {
		t.Errorf("unexpected envelope: %+v", evt)
	}
	if !strings.Contains(string(evt.Data), `"flag":"H"`) {
		t.Errorf("unexpected data: %s", evt.Data)
	}
}

func TestNew_UnmarshalableData(t *testing.T) {
	if _, err := New(TypeLabResultAbnormal, "k", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, KafkaConfig{Topic: "clinic.lab-alerts"}, zerolog.Nop())
	evt := sampleEvent(t)

	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "patient-7" {
		t.Errorf("expected key patient-7, got %s", msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != evt.ID || decoded.Type != TypeLabResultAbnormal {
		t.Errorf("unexpected decoded event: %+v", decoded)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != TypeLabResultAbnormal {
		t.Errorf("unexpected headers: %+v", msg.Headers)
	}
}

func TestKafkaPublisher_BreakerOpens(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newKafkaPublisher(w, KafkaConfig{Topic: "t", MaxFailures: 2, OpenTimeout: time.Minute}, zerolog.Nop())
	evt := sampleEvent(t)

	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), evt); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	if p.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker open, got %s", p.State())
	}
	if got := Status(p); got != "kafka:open" {
		t.Errorf("expected status kafka:open, got %s", got)
	}

	err := p.Publish(context.Background(), evt)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if w.calls != 2 {
		t.Errorf("expected writer not to be called while open, got %d calls", w.calls)
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, KafkaConfig{Topic: "t"}, zerolog.Nop())
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.closed {
		t.Error("expected writer to be closed")
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}, zerolog.Nop()); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, zerolog.Nop()); err == nil {
		t.Error("expected error without topic")
	}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	evt := sampleEvent(t)

	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, evt.ID) || !strings.Contains(out, `"event_type":"lab.result.abnormal"`) {
		t.Errorf("expected event in log output, got %s", out)
	}
	if p.Close() != nil {
		t.Error("expected nil close error")
	}
}

func TestStatus(t *testing.T) {
	if got := Status(NewLogPublisher(zerolog.Nop())); got != "log" {
		t.Errorf("expected log, got %s", got)
	}
	p := newKafkaPublisher(&fakeWriter{}, KafkaConfig{Topic: "t"}, zerolog.Nop())
	if got := Status(p); got != "kafka:closed" {
		t.Errorf("expected kafka:closed, got %s", got)
	}
	if got := Status(nil); got != "disabled" {
		t.Errorf("expected disabled, got %s", got)
	}
}
