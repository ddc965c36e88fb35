package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/scanchat/internal/logging"
)

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "sample.apk", header.Filename)
		assert.Equal(t, "PK-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(` {"sessionId":"s1","analysisResult":{}} `))
	}))
	defer server.Close()

	c := NewWithClient(server.URL+"/", "tok", server.Client())
	raw, err := c.Upload(context.Background(), "sample.apk", strings.NewReader("PK-bytes"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"s1","analysisResult":{}}`, string(raw))
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc", req["sessionId"])
		assert.Equal(t, "is it safe?", req["message"])

		w.Write([]byte(`{"answer":"yes"}`))
	}))
	defer server.Close()

	c := NewWithClient(server.URL, "", server.Client())
	raw, err := c.Chat(context.Background(), "abc", "is it safe?")

	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"yes"}`, string(raw))
}

func TestRequestIDFromContext(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx := logging.WithRequestID(context.Background(), "req-123")
	_, err := NewWithClient(server.URL, "", server.Client()).Chat(ctx, "a", "b")

	require.NoError(t, err)
	assert.Equal(t, "req-123", got)
}

func TestNon2xxIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	_, err := NewWithClient(server.URL, "", server.Client()).Chat(context.Background(), "a", "b")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, "maintenance", te.Body)
	assert.Contains(t, UserMessage(err), "503")
}

func TestNetworkErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url, "", time.Second).Upload(context.Background(), "a.apk", strings.NewReader("x"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.Contains(t, UserMessage(err), "서버에 연결할 수 없습니다")
}

func TestInvalidJSONIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := NewWithClient(server.URL, "", server.Client()).Upload(context.Background(), "a.apk", strings.NewReader("x"))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "<html>oops</html>", string(de.Body))

	var te *TransportError
	assert.False(t, errors.As(err, &te))
	assert.Equal(t, "서버 응답을 해석할 수 없습니다", UserMessage(err))
}

func TestListSessions(t *testing.T) {
	bodies := map[string]string{
		"array": `[
			{"chatId":"a","title":"A","messageCount":2,"lastUpdated":"2024-06-15T09:00:00Z","createdAt":"2024-06-15T08:00:00Z"},
			{"sessionId":"b","updatedAt":"2024-06-14T09:00:00Z"},
			{"title":"no id"}
		]`,
		"wrapped": `{"sessions":[
			{"_id":"a","title":"A","messageCount":2,"lastUpdated":"2024-06-15T09:00:00Z","createdAt":"2024-06-15T08:00:00Z"},
			{"chatId":"b","updatedAt":"2024-06-14T09:00:00Z"}
		]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/sessions", r.URL.Path)
				w.Write([]byte(body))
			}))
			defer server.Close()

			sessions, err := NewWithClient(server.URL, "tok", server.Client()).ListSessions(context.Background())
			require.NoError(t, err)
			require.Len(t, sessions, 2)

			assert.Equal(t, "a", sessions[0].ChatID)
			assert.Equal(t, "A", sessions[0].Title)
			assert.Equal(t, 2, sessions[0].MessageCount)
			assert.Equal(t, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC), sessions[0].LastUpdated)

			assert.Equal(t, "b", sessions[1].ChatID)
			assert.Equal(t, time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC), sessions[1].LastUpdated)
		})
	}
}

func TestListSessionsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"nope"`))
	}))
	defer server.Close()

	_, err := NewWithClient(server.URL, "", server.Client()).ListSessions(context.Background())

	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDeleteSession(t *testing.T) {
	var path, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.EscapedPath(), r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWithClient(server.URL, "tok", server.Client()).DeleteSession(context.Background(), "a/b")

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/sessions/a%2Fb", path)
}

func TestPing(t *testing.T) {
	status := http.StatusNotFound
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()
	c := NewWithClient(server.URL, "", server.Client())

	assert.NoError(t, c.Ping(context.Background()))

	status = http.StatusBadGateway
	assert.Error(t, c.Ping(context.Background()))
}
