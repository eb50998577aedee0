package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"longrun/internal/logging"
	"longrun/sink"
)

type Config struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	Acks    int16    `koanf:"required_acks"` // 0,1,-1
	Version string   `koanf:"version"`

	// Producer overrides the producer built from Brokers, mainly for tests.
	Producer sarama.AsyncProducer `koanf:"-"`
}

type driver struct {
	cfg Config
	p   sarama.AsyncProducer
	ack sink.EmitFn

	once sync.Once
	wg   sync.WaitGroup
	errs []error // delivery failures, read after wg.Wait
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: topic is required")
	}
	d.cfg = cfg

	if cfg.Producer != nil {
		d.p = cfg.Producer
	} else {
		sc := sarama.NewConfig()
		if cfg.Version != "" {
			ver, err := sarama.ParseKafkaVersion(cfg.Version)
			if err != nil {
				return err
			}
			sc.Version = ver
		}
		sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
		sc.Producer.Return.Successes = true
		sc.Producer.Return.Errors = true
		var err error
		if d.p, err = sarama.NewAsyncProducer(cfg.Brokers, sc); err != nil {
			return err
		}
	}

	d.wg.Add(2)
	go d.drainSuccesses()
	go d.drainErrors()
	return nil
}

func (d *driver) Push(r *sink.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("kafka-sink: encode %s: %w", r.Operation, err)
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic:    d.cfg.Topic,
		Key:      sarama.StringEncoder(r.Operation),
		Value:    sarama.ByteEncoder(b),
		Metadata: r,
	}
	return nil
}

// Close flushes in-flight records and waits until every success has been
// acked and every failure collected.
func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	d.once.Do(func() {
		d.p.AsyncClose()
		d.wg.Wait()
	})
	return errors.Join(d.errs...)
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func (d *driver) drainSuccesses() {
	defer d.wg.Done()
	for msg := range d.p.Successes() {
		r, _ := msg.Metadata.(*sink.Record)
		if r != nil && d.ack != nil {
			d.ack(r)
		}
	}
}

func (d *driver) drainErrors() {
	defer d.wg.Done()
	for perr := range d.p.Errors() {
		op := ""
		if r, ok := perr.Msg.Metadata.(*sink.Record); ok {
			op = r.Operation
		}
		logging.For("kafka-sink").Warn("delivery failed", "topic", d.cfg.Topic, "operation", op, "err", perr.Err)
		d.errs = append(d.errs, fmt.Errorf("kafka-sink: deliver %s: %w", op, perr.Err))
	}
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
