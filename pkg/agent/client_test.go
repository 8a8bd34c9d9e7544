package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInteraction(t *testing.T) {
	var gotReq CreateInteractionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/interactions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Interaction{ID: "int-1", Status: StatusQueued}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	interaction, err := c.CreateInteraction(context.Background(), CreateInteractionRequest{
		Input:      "find leads",
		Background: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "int-1", interaction.ID)
	assert.Equal(t, StatusQueued, interaction.Status)
	assert.Equal(t, "deep-research", gotReq.Agent, "default agent is filled in")
	assert.True(t, gotReq.Background)
}

func TestGetInteraction_RetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Interaction{ID: "int-1", Status: StatusRunning}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	interaction, err := c.GetInteraction(context.Background(), "int-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, interaction.Status)
	assert.Equal(t, 2, calls)
}

func TestGetInteraction_NoRetryOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.GetInteraction(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, calls)
}

func TestInteraction_Text(t *testing.T) {
	i := Interaction{Outputs: []Output{
		{Type: "reasoning", Text: "thinking about it"},
		{Type: "text", Text: `{"leads": []}`},
		{Type: "text", Text: ""},
	}}
	assert.Equal(t, `{"leads": []}`, i.Text())

	empty := Interaction{}
	assert.Empty(t, empty.Text())
}

func TestInteraction_Terminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusQueued:    false,
		StatusRunning:   false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	} {
		i := Interaction{Status: status}
		assert.Equal(t, want, i.Terminal(), "status %s", status)
	}
}
