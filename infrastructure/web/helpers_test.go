package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"pairchat/auth"
	"pairchat/observability"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	fws "github.com/fasthttp/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-of-enough-length"

func testOptions() Options {
	return Options{
		Address:              "127.0.0.1:0",
		ConnectionBufferSize: 32,
		WriteTimeout:         2 * time.Second,
		CorsAllowedOrigins:   "*",
	}
}

func newTestServer(t *testing.T, options Options) *Server {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	users := repositories.NewUserRepository(db, log)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	messages := repositories.NewSearchableMessageRepository(repositories.NewMessageRepository(db, log), writer, log)
	tokens := auth.NewTokenIssuer(testSecret, time.Hour)
	monitor := observability.NewMonitor(log)

	engine := runtime.NewEngine(log, users, messages, auth.NewCredentialVerifier(tokens), monitor, runtime.DefaultOptions())
	return NewServer(log, engine,
		services.NewAuthService(users, tokens, log),
		services.NewChatService(engine, users, messages),
		tokens, monitor, options)
}

// serve listens on a random local port and returns the ws:// URL.
func serve(t *testing.T, s *Server) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() {
		s.stopAccept()
		_ = s.app.ShutdownWithTimeout(time.Second)
	})
	return "ws://" + ln.Addr().String() + "/ws"
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers ...string) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	request, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(request, -1)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func signup(t *testing.T, s *Server, username, password string) string {
	resp, body := doJSON(t, s, http.MethodPost, "/signup", CredentialsRequest{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var token TokenResponse
	require.NoError(t, json.Unmarshal(body, &token))
	return token.Token
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, url string) *fws.Conn {
	conn, _, err := fws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *fws.Conn, typ string, payload any) {
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(frame{Type: typ, Payload: raw}))
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, conn *fws.Conn, typ string) frame {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == typ {
			return f
		}
	}
}

func decode[T any](t *testing.T, f frame) T {
	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}
