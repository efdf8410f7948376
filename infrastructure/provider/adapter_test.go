package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/entity"
	domain "github.com/unifiedsync/syncd/domain/provider"
)

type callLog struct {
	calls []int
}

func (c *callLog) AdapterCall(_, _ string, status int, _ time.Duration) {
	c.calls = append(c.calls, status)
}

func hubspotConfig(baseURL string) Config {
	return Config{
		Name:          "hubspot",
		BaseURL:       baseURL,
		Auth:          AuthConfig{Header: "Authorization", Prefix: "Bearer ", Token: "secret"},
		AccountHeader: "X-Account",
		Entities: map[string]EndpointConfig{
			"crm.note": {
				Path:        "/accounts/{linked_account_id}/notes",
				Envelope:    "results",
				Next:        "paging.next",
				CursorParam: "after",
				CreatePath:  "/accounts/{linked_account_id}/notes",
			},
			"crm.stage": {
				Path: "/deals/{scope_remote_id}/stages",
			},
		},
	}
}

func TestAdapter_FetchFollowsPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/la-1/notes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "la-1", r.Header.Get("X-Account"))
		assert.Equal(t, "custom_tag,priority", r.URL.Query().Get("remote_properties"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("after") {
		case "":
			_, _ = w.Write([]byte(`{"results":[{"id":1},{"id":2}],"paging":{"next":"p2"}}`))
		case "p2":
			_, _ = w.Write([]byte(`{"results":[{"id":12345678901234567}]}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	obs := &callLog{}
	a := New(hubspotConfig(srv.URL), WithObserver(obs))
	require.True(t, a.Supports(entity.CRMNote))
	assert.False(t, a.Supports(entity.CRMDeal))

	resp, err := a.Fetch(context.Background(), domain.FetchRequest{
		EntityType:       entity.CRMNote,
		LinkedAccountID:  "la-1",
		RemoteProperties: []string{"custom_tag", "priority"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, json.Number("12345678901234567"), resp.Data[2]["id"], "large ids keep their precision")
	assert.Equal(t, []int{200, 200}, obs.calls)
}

func TestAdapter_FetchScoped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deals/deal%2F9/stages", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[{"id":"s1","label":"Won"}]`))
	}))
	defer srv.Close()

	resp, err := New(hubspotConfig(srv.URL)).Fetch(context.Background(), domain.FetchRequest{
		EntityType: entity.CRMStage, ScopeRemoteID: "deal/9",
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Won", resp.Data[0]["label"])
}

func TestAdapter_RetriesServerErrors(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	a := New(hubspotConfig(srv.URL), WithBackoff(time.Millisecond, 1))
	resp, err := a.Fetch(context.Background(), domain.FetchRequest{EntityType: entity.CRMNote, LinkedAccountID: "la-1"})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, int32(3), n.Load())
}

func TestAdapter_ClientErrorIsNotRetried(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad token"}`))
	}))
	defer srv.Close()

	a := New(hubspotConfig(srv.URL), WithBackoff(time.Millisecond, 1))
	resp, err := a.Fetch(context.Background(), domain.FetchRequest{EntityType: entity.CRMNote, LinkedAccountID: "la-1"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Body, "bad token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), n.Load())
}

func TestAdapter_HonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(hubspotConfig(srv.URL)).Fetch(ctx, domain.FetchRequest{EntityType: entity.CRMNote})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdapter_UnsupportedEntity(t *testing.T) {
	a := New(hubspotConfig("http://unused"))
	_, err := a.Fetch(context.Background(), domain.FetchRequest{EntityType: entity.CRMUser})
	assert.ErrorIs(t, err, domain.ErrMissingCapability)

	_, err = a.Push(context.Background(), domain.PushRequest{EntityType: entity.CRMStage})
	assert.ErrorIs(t, err, domain.ErrMissingCapability, "no create_path")
}

func TestAdapter_Push(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"properties": map[string]any{"hs_note_body": "hi"}}, body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"n-9","properties":{"hs_note_body":"hi"}}`))
	}))
	defer srv.Close()

	resp, err := New(hubspotConfig(srv.URL)).Push(context.Background(), domain.PushRequest{
		EntityType:      entity.CRMNote,
		LinkedAccountID: "la-1",
		Payload:         entity.Raw{"properties": map[string]any{"hs_note_body": "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "n-9", resp.Data["id"])
}

func TestParse(t *testing.T) {
	t.Setenv("PIPEDRIVE_TOKEN", "tok")
	cfgs, err := Parse([]byte(`
providers:
  - name: pipedrive
    base_url: https://api.pipedrive.com/v1
    auth: {header: x-api-token, token_env: PIPEDRIVE_TOKEN}
    entities:
      crm.deal: {path: /deals, envelope: data}
`))
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "tok", cfgs[0].Auth.Value())
	assert.Equal(t, "data", cfgs[0].Entities["crm.deal"].Envelope)

	adapters := NewAll(cfgs)
	require.Len(t, adapters, 1)
	assert.True(t, adapters[0].Supports(entity.CRMDeal))
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"yaml":      "providers: [",
		"name":      "providers:\n  - base_url: https://x\n",
		"base url":  "providers:\n  - name: a\n    base_url: ftp://x\n",
		"entity":    "providers:\n  - name: a\n    base_url: https://x\n    entities:\n      bogus: {path: /x}\n",
		"path":      "providers:\n  - name: a\n    base_url: https://x\n    entities:\n      crm.deal: {}\n",
		"duplicate": "providers:\n  - {name: a, base_url: 'https://x'}\n  - {name: a, base_url: 'https://y'}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}
