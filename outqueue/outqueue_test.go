package outqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	writes [][]byte
	fail   error
	short  int // if >0, only accept this many bytes on the next write
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	if f.short > 0 {
		n := f.short
		f.short = 0
		f.writes = append(f.writes, p[:n])
		return n, nil
	}
	f.writes = append(f.writes, p)
	return len(p), nil
}

func TestDrainOrderHighBeforeNormalBeforeLow(t *testing.T) {
	tr := &fakeTransport{}
	q := New(Config{}, tr, nil)

	q.Enqueue(PriorityLow, []byte("low"), nil, false, nil)
	q.Enqueue(PriorityNormal, []byte("normal"), nil, false, nil)
	q.Enqueue(PriorityHigh, []byte("high"), nil, false, nil)

	now := time.Now()
	q.tick(now)
	q.tick(now)
	q.tick(now)

	require.Len(t, tr.writes, 3)
	want := []string{"high", "normal", "low"}
	for i, w := range want {
		assert.Equal(t, w, string(tr.writes[i]), "write[%d]", i)
	}
}

func TestAntiFloodGatesHighPriority(t *testing.T) {
	tr := &fakeTransport{}
	q := New(Config{AntiFloodPrioHigh: time.Second}, tr, nil)
	q.Enqueue(PriorityHigh, []byte("one"), nil, false, nil)
	q.Enqueue(PriorityHigh, []byte("two"), nil, false, nil)

	t0 := time.Now()
	q.tick(t0)
	q.tick(t0.Add(10 * time.Millisecond)) // well under 1s bucket interval

	require.Len(t, tr.writes, 1, "expected only 1 write before bucket interval elapses")

	q.tick(t0.Add(1100 * time.Millisecond))
	assert.Len(t, tr.writes, 2, "expected 2nd write once interval elapsed")
}

func TestModifiedLineSendsAfter(t *testing.T) {
	tr := &fakeTransport{}
	q := New(Config{}, tr, nil)
	q.Enqueue(PriorityHigh, []byte("before"), []byte("after"), true, nil)
	q.tick(time.Now())
	require.Len(t, tr.writes, 1)
	assert.Equal(t, "after", string(tr.writes[0]))
}

func TestShortWriteRetriesRemainder(t *testing.T) {
	tr := &fakeTransport{short: 2}
	q := New(Config{}, tr, nil)
	q.Enqueue(PriorityHigh, []byte("hello"), nil, false, nil)

	now := time.Now()
	q.tick(now) // writes "he", 3 bytes pending
	q.tick(now) // should retry and write "llo"

	require.Len(t, tr.writes, 2, "expected 2 writes (partial + retry): %v", tr.writes)
	assert.Equal(t, "llo", string(tr.writes[1]))
}

func TestHardErrorInvokesDisconnect(t *testing.T) {
	tr := &fakeTransport{fail: errors.New("boom")}
	var gotErr error
	q := New(Config{}, tr, func(err error) { gotErr = err })
	q.Enqueue(PriorityHigh, []byte("x"), nil, false, nil)
	q.tick(time.Now())

	assert.Error(t, gotErr, "expected onDisconnect to be invoked")
}
