package email

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidpulse/internal/core"
)

func TestBrevoClientSend(t *testing.T) {
	var (
		gotKey  string
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@smtp>"}`))
	}))
	defer srv.Close()

	client := NewBrevoClient("secret", srv.URL+"/", time.Second)
	id, err := client.Send(context.Background(), core.EmailMessage{
		To:          core.Contact{Email: "ann@example.com", Name: "Ann"},
		Sender:      core.Contact{Email: "reports@example.com", Name: "Vidpulse"},
		Subject:     "Your Marketing Strategy Report",
		HTMLContent: "<p>hi</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "<abc@smtp>", id)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "/smtp/email", gotPath)
	assert.Equal(t, "Your Marketing Strategy Report", gotBody["subject"])
	assert.Equal(t, "<p>hi</p>", gotBody["htmlContent"])
	assert.Equal(t, map[string]any{"email": "reports@example.com", "name": "Vidpulse"}, gotBody["sender"])

	to, ok := gotBody["to"].([]any)
	require.True(t, ok, "to must be a list of recipients")
	require.Len(t, to, 1)
	assert.Equal(t, map[string]any{"email": "ann@example.com", "name": "Ann"}, to[0])
}

func TestBrevoClientSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	client := NewBrevoClient("secret", srv.URL, time.Second)
	_, err := client.Send(context.Background(), core.EmailMessage{To: core.Contact{Email: "a@b.c"}})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid_parameter")
}

func TestBrevoClientSendValidation(t *testing.T) {
	_, err := NewBrevoClient("", "", 0).Send(context.Background(), core.EmailMessage{To: core.Contact{Email: "a@b.c"}})
	assert.Error(t, err)

	_, err = NewBrevoClient("key", "", 0).Send(context.Background(), core.EmailMessage{})
	assert.Error(t, err)
}

func TestBrevoClientSendAcceptedWithUnreadableReceipt(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"undecodable body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`<html>ok</html>`))
		}},
		{"truncated body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"messageId":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			id, err := NewBrevoClient("secret", srv.URL, time.Second).
				Send(context.Background(), core.EmailMessage{To: core.Contact{Email: "a@b.c"}})
			require.NoError(t, err)
			assert.Empty(t, id)
		})
	}
}
