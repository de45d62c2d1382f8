package emailjob

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	mu    sync.Mutex
	fail  int // fail the first n calls
	calls int
	sent  []Message
}

func (s *stubSender) SendVerificationEmail(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.fail {
		return assert.AnError
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

func testJob(recipient string) Job {
	return NewVerificationJob(recipient, "tok-"+recipient, time.Now().Add(time.Hour), "user-"+recipient)
}

// Requirement: a non-blocking queue accepts jobs up to its buffer size and
// rejects the next one with ErrQueueFull until the buffer drains.
func TestQueue_NonBlocking_Full(t *testing.T) {
	queue, worker := New(&stubSender{}, Config{
		BufferSize:  2,
		NonBlocking: true,
	}, nil)

	ctx := context.Background()
	require.NoError(t, queue.Enqueue(ctx, testJob("a@example.com")))
	require.NoError(t, queue.Enqueue(ctx, testJob("b@example.com")))
	require.ErrorIs(t, queue.Enqueue(ctx, testJob("c@example.com")), ErrQueueFull)
	assert.Equal(t, 2, queue.Len())

	// Once the worker drains the buffer the queue accepts jobs again.
	handle := worker.Start(ctx)
	assert.Eventually(t, func() bool { return queue.Len() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, queue.Enqueue(ctx, testJob("c@example.com")))

	require.NoError(t, handle.Shutdown(ctx))
}

// Requirement: a blocking enqueue on a full buffer waits and honors context
// cancellation.
func TestQueue_Blocking_ContextCancelled(t *testing.T) {
	queue, _ := New(&stubSender{}, Config{BufferSize: 1}, nil)

	ctx := context.Background()
	require.NoError(t, queue.Enqueue(ctx, testJob("a@example.com")))

	// No worker is running, so this enqueue can only end via the deadline.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := queue.Enqueue(short, testJob("b@example.com"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// Requirement: a closed queue rejects new jobs with ErrWorkerStopped; Close
// is safe to call repeatedly.
func TestQueue_Close(t *testing.T) {
	queue, _ := New(&stubSender{}, DefaultConfig(), nil)

	queue.Close()
	queue.Close()
	assert.True(t, queue.Closed())
	require.ErrorIs(t, queue.Enqueue(context.Background(), testJob("a@example.com")), ErrWorkerStopped)
}

// Requirement: once the worker exits, producers get ErrWorkerStopped instead
// of blocking forever.
func TestQueue_EnqueueAfterWorkerExit(t *testing.T) {
	queue, worker := New(&stubSender{}, Config{BufferSize: 1}, nil)

	handle := worker.Start(context.Background())
	handle.Abort()
	assert.Eventually(t, func() bool { return !handle.Running() }, time.Second, time.Millisecond)

	require.ErrorIs(t, queue.Enqueue(context.Background(), testJob("a@example.com")), ErrWorkerStopped)
}
