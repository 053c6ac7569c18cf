package copier

import "errors"

// Sink receives progress reports: a byte count, or an error. It is shared
// between concurrent copies and must be safe for concurrent use.
type Sink interface {
	Report(n int64, err error) error
}

// BatchUpdater accumulates byte counts from one copy and forwards them to
// a Sink once at least batchSize bytes are pending. A nil *BatchUpdater
// discards everything.
type BatchUpdater struct {
	sink      Sink
	batchSize int64
	pending   int64
	total     int64
}

// NewBatchUpdater returns an updater forwarding to sink. A batchSize of
// zero or less forwards every update.
func NewBatchUpdater(sink Sink, batchSize int64) *BatchUpdater {
	return &BatchUpdater{sink: sink, batchSize: batchSize}
}

// Update records n more bytes transferred.
func (b *BatchUpdater) Update(n int64) error {
	if b == nil {
		return nil
	}
	b.pending += n
	b.total += n
	if b.pending >= b.batchSize {
		return b.Flush()
	}
	return nil
}

// Fail forwards err to the sink immediately, flushing pending bytes first.
func (b *BatchUpdater) Fail(err error) error {
	if b == nil || b.sink == nil {
		return nil
	}
	return errors.Join(b.Flush(), b.sink.Report(0, err))
}

// Flush forwards any pending bytes.
func (b *BatchUpdater) Flush() error {
	if b == nil || b.pending == 0 {
		return nil
	}
	n := b.pending
	b.pending = 0
	if b.sink == nil {
		return nil
	}
	return b.sink.Report(n, nil)
}

// Total returns every byte passed to Update, flushed or not.
func (b *BatchUpdater) Total() int64 {
	if b == nil {
		return 0
	}
	return b.total
}

// MultiSink fans each report out to every sink, in order.
type MultiSink []Sink

// Report implements Sink.
func (m MultiSink) Report(n int64, err error) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if rerr := s.Report(n, err); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}
