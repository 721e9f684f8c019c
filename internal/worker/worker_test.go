package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/pkg/queue"
)

type fakeQueue struct {
	jobs    []*queue.Job
	cancel  context.CancelFunc
	retried atomic.Int32
}

func (f *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	if len(f.jobs) == 0 {
		f.cancel()
		return nil, context.Canceled
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeQueue) Retry(ctx context.Context, job *queue.Job) error {
	f.retried.Add(1)
	return nil
}

type fakeSender struct {
	sent []queue.EmailPayload
	err  error
}

func (f *fakeSender) SendAttendanceToken(ctx context.Context, payload queue.EmailPayload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Payload: raw, CreatedAt: time.Now()}
}

func TestEmailProcessor_Run_SendsJob(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := queue.EmailPayload{
		Recipient:     "dina@example.com",
		ParticipantID: "participant-1",
		EventTitle:    "GopherConf",
		Token:         "0123456789",
	}
	q := &fakeQueue{jobs: []*queue.Job{emailJob(t, payload)}, cancel: cancel}
	sender := &fakeSender{}
	proc := NewEmailProcessor(q, sender, slog.New(slog.NewTextHandler(testWriter{t}, nil)))

	err := proc.Run(ctx)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dina@example.com", sender.sent[0].Recipient)
	assert.Equal(t, "0123456789", sender.sent[0].Token)
	assert.Equal(t, int32(0), q.retried.Load())
}

func TestEmailProcessor_Process_SendFailure(t *testing.T) {
	payload := queue.EmailPayload{Recipient: "dina@example.com", Token: "0123456789"}
	sender := &fakeSender{err: errors.New("ses is down")}
	proc := NewEmailProcessor(nil, sender, slog.New(slog.NewTextHandler(testWriter{t}, nil)))

	err := proc.process(context.Background(), emailJob(t, payload))
	require.Error(t, err)
}

func TestEmailProcessor_Process_MalformedPayloadDropped(t *testing.T) {
	sender := &fakeSender{}
	proc := NewEmailProcessor(nil, sender, slog.New(slog.NewTextHandler(testWriter{t}, nil)))

	job := &queue.Job{ID: "job-bad", Payload: json.RawMessage(`{not json`)}
	err := proc.process(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
