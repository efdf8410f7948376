package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedsync/syncd/domain/webhook"
)

func delivery() webhook.Delivery {
	return webhook.Delivery{
		Payload:   []map[string]any{{"id": "rec-1", "file_url": "http://x/f.pdf"}},
		EventType: "ats.attachment.pulled",
		ProjectID: "proj-1",
		EventID:   "evt-1",
	}
}

func TestHTTPDispatcher(t *testing.T) {
	var got Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ats.attachment.pulled", r.Header.Get("X-Syncd-Event"))
		assert.NotEmpty(t, r.Header.Get("X-Syncd-Delivery"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, time.Second)
	require.NoError(t, d.Dispatch(context.Background(), delivery()))

	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Equal(t, "evt-1", got.EventID)
	assert.NotEmpty(t, got.ID)
	data, ok := got.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestHTTPDispatcher_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPDispatcher(srv.URL, time.Second).Dispatch(context.Background(), delivery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRedisDispatcher(t *testing.T) {
	fake := &fakeStream{}
	d := newRedisDispatcher(fake, "syncd:webhooks", 1000)
	require.NoError(t, d.Dispatch(context.Background(), delivery()))

	require.Len(t, fake.args, 1)
	args := fake.args[0]
	assert.Equal(t, "syncd:webhooks", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ats.attachment.pulled", values["event_type"])
	assert.Equal(t, "proj-1", values["project_id"])
	assert.JSONEq(t, `[{"id":"rec-1","file_url":"http://x/f.pdf"}]`, values["data"].(string))
	assert.NoError(t, d.Close())
}

func TestRedisDispatcher_Error(t *testing.T) {
	d := newRedisDispatcher(&fakeStream{err: errors.New("READONLY")}, "s", 0)
	err := d.Dispatch(context.Background(), delivery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

type failing struct{ err error }

func (f failing) Dispatch(context.Context, webhook.Delivery) error { return f.err }

func TestFanout(t *testing.T) {
	e1 := errors.New("http down")
	fake := &fakeStream{}
	f := Fanout{failing{e1}, newRedisDispatcher(fake, "s", 0), Noop{}}

	err := f.Dispatch(context.Background(), delivery())
	assert.ErrorIs(t, err, e1)
	assert.Len(t, fake.args, 1, "later dispatchers still run")

	assert.NoError(t, Fanout{Noop{}}.Dispatch(context.Background(), delivery()))
}
