package copier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchUpdaterBatches(t *testing.T) {
	sink := &recordingSink{}
	u := NewBatchUpdater(sink, 100)

	require.NoError(t, u.Update(40))
	require.NoError(t, u.Update(40))
	assert.Empty(t, sink.reports)

	require.NoError(t, u.Update(40))
	assert.Equal(t, []int64{120}, sink.reports)

	require.NoError(t, u.Update(5))
	require.NoError(t, u.Flush())
	assert.Equal(t, []int64{120, 5}, sink.reports)
	assert.Equal(t, int64(125), u.Total())

	// Nothing pending: no empty report.
	require.NoError(t, u.Flush())
	assert.Len(t, sink.reports, 2)
}

func TestBatchUpdaterUnbatched(t *testing.T) {
	sink := &recordingSink{}
	u := NewBatchUpdater(sink, 0)
	require.NoError(t, u.Update(1))
	require.NoError(t, u.Update(2))
	assert.Equal(t, []int64{1, 2}, sink.reports)
}

func TestBatchUpdaterFail(t *testing.T) {
	sink := &recordingSink{}
	u := NewBatchUpdater(sink, 100)
	require.NoError(t, u.Update(10))

	boom := errors.New("boom")
	require.NoError(t, u.Fail(boom))
	assert.Equal(t, []int64{10}, sink.reports)
	assert.Equal(t, []error{boom}, sink.errs)
}

func TestBatchUpdaterNil(t *testing.T) {
	var u *BatchUpdater
	assert.NoError(t, u.Update(10))
	assert.NoError(t, u.Flush())
	assert.NoError(t, u.Fail(errors.New("x")))
	assert.Zero(t, u.Total())
}

type failingSink struct{ err error }

func (f failingSink) Report(int64, error) error { return f.err }

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := MultiSink{a, nil, b}
	require.NoError(t, m.Report(7, nil))
	assert.Equal(t, []int64{7}, a.reports)
	assert.Equal(t, []int64{7}, b.reports)

	bad := errors.New("sink closed")
	err := MultiSink{a, failingSink{bad}}.Report(1, nil)
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, []int64{7, 1}, a.reports)
}
