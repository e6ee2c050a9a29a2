// Package telemetry publishes transmission lifecycle events to Kafka so
// operators can follow a motion run remotely. It is optional: without a
// configured broker the sender simply runs without an event listener.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/iwtcode/canAdapter/internal/transmit"
)

// Event is the JSON document published for every lifecycle notification.
type Event struct {
	Event     string    `json:"event"` // "packet_sent" | "packet_resolved"
	Packet    int       `json:"packet"`
	Frames    int       `json:"frames,omitempty"`
	State     string    `json:"state,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Producer implements transmit.Events on top of a Kafka topic.
type Producer struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// publishTimeout bounds each publish so a slow broker cannot stall the
// packet barrier noticeably.
const publishTimeout = 2 * time.Second

// NewProducer creates a producer writing to the given broker and topic.
func NewProducer(broker, topic string, log *logrus.Logger) *Producer {
	// The writer stays synchronous so delivery failures surface on the
	// publish call and can be logged; publishTimeout keeps a dead broker
	// from stalling the send loop.
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
}

// PacketSent publishes a packet_sent event.
func (p *Producer) PacketSent(seq, frames int) {
	p.publish(Event{Event: "packet_sent", Packet: seq, Frames: frames, Timestamp: time.Now()})
}

// PacketResolved publishes the handshake outcome of a packet.
func (p *Producer) PacketResolved(seq int, res transmit.Result) {
	p.publish(Event{
		Event:     "packet_resolved",
		Packet:    seq,
		State:     res.State.String(),
		ElapsedMs: res.Elapsed.Milliseconds(),
		Timestamp: time.Now(),
	})
}

func (p *Producer) publish(ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Warn("telemetry: marshal event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: value}); err != nil {
		p.log.WithError(err).Warn("telemetry: publish event")
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

var _ transmit.Events = (*Producer)(nil)
