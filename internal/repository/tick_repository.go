package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FeatCast/internal/domain/models"
	pkgch "FeatCast/pkg/clickhouse"
	pkgkafka "FeatCast/pkg/kafka"
	applogger "FeatCast/pkg/logger"
)

const tickInsertChunk = 2000

// ClickHouseStorage persists raw ticks into rt_ticks_raw.
type ClickHouseStorage struct {
	client *pkgch.Client
	source string
	l      *applogger.Logger
}

func NewClickHouseStorage(client *pkgch.Client, source string) *ClickHouseStorage {
	return &ClickHouseStorage{client: client, source: source}
}

func (s *ClickHouseStorage) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseStorage) Store(ctx context.Context, t *models.Tick) error {
	return s.StoreBatch(ctx, []*models.Tick{t})
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()
	for off := 0; off < len(ticks); off += tickInsertChunk {
		end := off + tickInsertChunk
		if end > len(ticks) {
			end = len(ticks)
		}
		if err := s.insertChunk(ctx, ticks[off:end]); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse tick insert error",
					applogger.Int("offset", off),
					applogger.Int("rows", end-off),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("insert ticks [%d:%d]: %w", off, end, err)
		}
	}
	if s.l != nil {
		s.l.Debug("clickhouse ticks stored",
			applogger.Int("rows", len(ticks)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return nil
}

func (s *ClickHouseStorage) insertChunk(ctx context.Context, ticks []*models.Tick) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO rt_ticks_raw (ts, symbol, price, volume, source, event_id, seq) VALUES ")
	args := make([]interface{}, 0, len(ticks)*7)
	for i, t := range ticks {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?)")
		args = append(args,
			t.TS,
			t.Symbol,
			t.Price,
			t.Volume,
			s.source,
			fmt.Sprintf("%s-%d", t.Symbol, t.TS.UnixNano()),
			t.TS.UnixNano(),
		)
	}
	_, err := s.client.DB().ExecContext(ctx, sb.String(), args...)
	return err
}

func (s *ClickHouseStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	const q = `
        SELECT ts, symbol, price, volume
        FROM rt_ticks_raw
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
        LIMIT ?
    `
	rows, err := s.client.DB().QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []*models.Tick
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.TS, &t.Symbol, &t.Price, &t.Volume); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return out, nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return s.client.Close()
}

// KafkaPublisher fans ticks out to the raw tick topic, keyed by symbol so
// per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type tickPayload struct {
	Symbol string  `json:"symbol"`
	T      int64   `json:"t"`
	P      float64 `json:"p"`
	V      float64 `json:"v"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, t *models.Tick) error {
	payload := tickPayload{Symbol: t.Symbol, T: t.TS.UnixMilli(), P: t.Price, V: t.Volume}
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), payload)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(ticks))
	for _, t := range ticks {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(t.Symbol),
			Value: tickPayload{Symbol: t.Symbol, T: t.TS.UnixMilli(), P: t.Price, V: t.Volume},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
