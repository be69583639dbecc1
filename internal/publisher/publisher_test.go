package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"DanceSync/internal/config"
	"DanceSync/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type recordingWriter struct {
	batches [][]kafka.Message
	err     error
	closed  bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, msgs)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPublishEvents(t *testing.T) {
	events, rejections := &recordingWriter{}, &recordingWriter{}
	p := newWithWriters(events, rejections, quietLogger())

	var batch []*model.CanonicalEvent
	for i := 0; i < 150; i++ {
		batch = append(batch, &model.CanonicalEvent{
			Title: fmt.Sprintf("Salsa %d", i),
			Key: model.NaturalKey{
				TitleKey: fmt.Sprintf("salsa %d", i),
				VenueKey: "grand ballroom",
				EventDay: model.Date{Year: 2025, Month: 3, Day: 14},
			},
		})
	}
	if err := p.PublishEvents(context.Background(), "run-1", batch); err != nil {
		t.Fatal(err)
	}
	if len(events.batches) != 2 || len(events.batches[0]) != 100 || len(events.batches[1]) != 50 {
		t.Fatalf("batches = %d", len(events.batches))
	}
	msg := events.batches[0][0]
	if string(msg.Key) != "2025-03-14|grand ballroom|salsa 0" {
		t.Errorf("key = %s", msg.Key)
	}
	var decoded EventMessage
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunUUID != "run-1" || decoded.Event.Title != "Salsa 0" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(rejections.batches) != 0 {
		t.Error("rejections topic should be untouched")
	}
}

func TestPublishRejections(t *testing.T) {
	events, rejections := &recordingWriter{}, &recordingWriter{}
	p := newWithWriters(events, rejections, quietLogger())
	err := p.PublishRejections(context.Background(), "run-2", []*model.Rejection{
		{Stage: model.StageMapper, Reason: model.ReasonUnknownSource, SourceID: "myspace"},
	})
	if err != nil {
		t.Fatal(err)
	}
	msg := rejections.batches[0][0]
	if string(msg.Key) != "myspace" {
		t.Errorf("key = %s", msg.Key)
	}
	var decoded RejectionMessage
	if err := json.Unmarshal(msg.Value, &decoded); err != nil || decoded.Rejection.Reason != model.ReasonUnknownSource {
		t.Errorf("decoded = %+v err=%v", decoded, err)
	}

	if err := p.Close(); err != nil || !events.closed || !rejections.closed {
		t.Errorf("close err=%v", err)
	}
}

func TestPublishError(t *testing.T) {
	boom := errors.New("broker down")
	p := newWithWriters(&recordingWriter{err: boom}, &recordingWriter{}, quietLogger())
	err := p.PublishEvents(context.Background(), "run", []*model.CanonicalEvent{{Title: "x"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.KafkaConfig
		nop     bool
		wantErr bool
	}{
		{"disabled", config.KafkaConfig{}, true, false},
		{"no brokers", config.KafkaConfig{Enabled: true, EventsTopic: "e", RejectionsTopic: "r"}, false, true},
		{"no topic", config.KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}, EventsTopic: "e"}, false, true},
		{"enabled", config.KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}, EventsTopic: "e", RejectionsTopic: "r"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, quietLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil {
				return
			}
			if _, ok := p.(Nop); ok != tt.nop {
				t.Errorf("publisher = %T", p)
			}
			_ = p.Close()
		})
	}
}
