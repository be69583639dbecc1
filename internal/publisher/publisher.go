package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"DanceSync/internal/config"
	"DanceSync/internal/interfaces"
	"DanceSync/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const writeChunk = 100

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventMessage events topic 的消息体
type EventMessage struct {
	RunUUID string                `json:"run_uuid"`
	Event   *model.CanonicalEvent `json:"event"`
}

// RejectionMessage rejections topic 的消息体
type RejectionMessage struct {
	RunUUID   string           `json:"run_uuid"`
	Rejection *model.Rejection `json:"rejection"`
}

// KafkaPublisher 把定稿事件与拒绝明细同步写入两个 topic
type KafkaPublisher struct {
	events     messageWriter
	rejections messageWriter
	logger     *logrus.Logger
}

// New kafka.enabled 为 false 时返回空实现
func New(cfg config.KafkaConfig, logger *logrus.Logger) (interfaces.Publisher, error) {
	if !cfg.Enabled {
		logger.Info("Kafka投递未启用")
		return Nop{}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka.brokers 不能为空")
	}
	if strings.TrimSpace(cfg.EventsTopic) == "" || strings.TrimSpace(cfg.RejectionsTopic) == "" {
		return nil, errors.New("kafka.events_topic 与 kafka.rejections_topic 不能为空")
	}
	logger.WithFields(logrus.Fields{
		"brokers":          cfg.Brokers,
		"events_topic":     cfg.EventsTopic,
		"rejections_topic": cfg.RejectionsTopic,
	}).Info("Kafka投递已启用")
	return newWithWriters(newWriter(cfg.Brokers, cfg.EventsTopic), newWriter(cfg.Brokers, cfg.RejectionsTopic), logger), nil
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func newWithWriters(events, rejections messageWriter, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{events: events, rejections: rejections, logger: logger}
}

// PublishEvents 以业务键为消息 key，同一事件落在同一分区
func (p *KafkaPublisher) PublishEvents(ctx context.Context, runUUID string, events []*model.CanonicalEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(EventMessage{RunUUID: runUUID, Event: ev})
		if err != nil {
			return fmt.Errorf("序列化事件失败: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(naturalKey(ev.Key)), Value: value})
	}
	return p.write(ctx, p.events, msgs)
}

func (p *KafkaPublisher) PublishRejections(ctx context.Context, runUUID string, rejections []*model.Rejection) error {
	msgs := make([]kafka.Message, 0, len(rejections))
	for _, rej := range rejections {
		value, err := json.Marshal(RejectionMessage{RunUUID: runUUID, Rejection: rej})
		if err != nil {
			return fmt.Errorf("序列化拒绝明细失败: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(rej.SourceID), Value: value})
	}
	return p.write(ctx, p.rejections, msgs)
}

func (p *KafkaPublisher) write(ctx context.Context, w messageWriter, msgs []kafka.Message) error {
	for start := 0; start < len(msgs); start += writeChunk {
		end := min(start+writeChunk, len(msgs))
		if err := w.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("写入Kafka失败: %w", err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.events.Close(), p.rejections.Close())
}

func naturalKey(k model.NaturalKey) string {
	return k.EventDay.String() + "|" + k.VenueKey + "|" + k.TitleKey
}

// Nop 未启用 Kafka 时的空实现
type Nop struct{}

func (Nop) PublishEvents(context.Context, string, []*model.CanonicalEvent) error { return nil }
func (Nop) PublishRejections(context.Context, string, []*model.Rejection) error  { return nil }
func (Nop) Close() error                                                        { return nil }
