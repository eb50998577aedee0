// longrun/sink/stdout/driver.go
package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"longrun/sink"
)

/* ────────── public config ────────── */
type Config struct {
	PrintCounter bool `koanf:"print_counter"` // prepend seq#
	Pretty       bool `koanf:"pretty"`        // indent JSON

	Out io.Writer `koanf:"-"` // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	ack sink.EmitFn

	mu  sync.Mutex // serialises writes
	seq uint64
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(r *sink.Record) error {
	var (
		b   []byte
		err error
	)
	if d.cfg.Pretty {
		b, err = json.MarshalIndent(r, "", "  ")
	} else {
		b, err = json.Marshal(r)
	}
	if err != nil {
		return fmt.Errorf("stdout-sink: encode %s: %w", r.Operation, err)
	}

	d.mu.Lock()
	d.seq++
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.cfg.Out, "[sink %06d] %s\n", d.seq, b)
	} else {
		_, err = fmt.Fprintf(d.cfg.Out, "%s\n", b)
	}
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("stdout-sink: write: %w", err)
	}

	if d.ack != nil {
		d.ack(r)
	}
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── sink.AckAware ────────── */
func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
