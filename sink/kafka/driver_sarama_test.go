package kafka

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"longrun/sink"
)

func newMockDriver(t *testing.T) (*driver, *mocks.AsyncProducer) {
	t.Helper()
	sc := mocks.NewTestConfig()
	sc.Producer.Return.Successes = true
	mp := mocks.NewAsyncProducer(t, sc)

	d := &driver{}
	if err := d.Configure(Config{Topic: "lro-outcomes", Producer: mp}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return d, mp
}

func TestDriver_PushPublishesKeyedRecordAndAcks(t *testing.T) {
	d, mp := newMockDriver(t)

	var (
		mu    sync.Mutex
		acked []string
		done  = make(chan struct{})
	)
	d.BindAck(func(r *sink.Record) {
		mu.Lock()
		acked = append(acked, r.Operation)
		mu.Unlock()
		close(done)
	})

	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "lro-outcomes" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "operations/9" {
			return errors.New("wrong key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var r sink.Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if r.Code != "Canceled" {
			return errors.New("wrong code " + r.Code)
		}
		return nil
	})

	if err := d.Push(&sink.Record{Operation: "operations/9", Done: true, Code: "Canceled"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	<-done
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(acked) != 1 || acked[0] != "operations/9" {
		t.Fatalf("want ack for operations/9, got %v", acked)
	}
}

func TestDriver_FailedDeliveryIsNotAcked(t *testing.T) {
	d, mp := newMockDriver(t)
	acks := 0
	d.BindAck(func(*sink.Record) { acks++ })

	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)
	if err := d.Push(&sink.Record{Operation: "operations/x"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Close(); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Close should report the delivery failure, got %v", err)
	}
	if acks != 0 {
		t.Fatalf("failed delivery must not be acked, got %d", acks)
	}
}

func TestDriver_ConfigureValidates(t *testing.T) {
	if err := (&driver{}).Configure(Config{}); err == nil {
		t.Fatal("expected error for missing topic")
	}
	if err := (&driver{}).Configure("x"); err == nil {
		t.Fatal("expected error for non-Config value")
	}
}

func TestDriver_CloseAcksEveryFlushedRecord(t *testing.T) {
	const topic = "lro-outcomes"
	broker := sarama.NewMockBroker(t, 1)
	defer broker.Close()
	broker.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetBroker(broker.Addr(), broker.BrokerID()).
			SetLeader(topic, 0, broker.BrokerID()),
		"ProduceRequest": sarama.NewMockProduceResponse(t).
			SetError(topic, 0, sarama.ErrNoError),
	})

	sc := sarama.NewConfig()
	sc.Version = sarama.MinVersion
	sc.Producer.Retry.Backoff = 0
	sc.Producer.Flush.Messages = 10
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	p, err := sarama.NewAsyncProducer([]string{broker.Addr()}, sc)
	if err != nil {
		t.Fatalf("NewAsyncProducer: %v", err)
	}

	d := &driver{}
	var acked atomic.Int64
	d.BindAck(func(*sink.Record) { acked.Add(1) })
	if err := d.Configure(Config{Topic: topic, Producer: p}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		if err := d.Push(&sink.Record{Operation: "operations/batch", Done: true, Code: "OK"}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := acked.Load(); got != n {
		t.Fatalf("pushed %d, acked %d", n, got)
	}
}

func TestDriver_CloseUnconfigured(t *testing.T) {
	d := &driver{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close on unconfigured driver: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
