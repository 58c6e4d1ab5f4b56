package web

import (
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebSocket_Chat_Between_Two_Users(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, testOptions())
	signup(t, s, "alice", "secret1")
	bobToken := signup(t, s, "bob", "secret2")
	url := serve(t, s)

	alice := dial(t, url)
	sendFrame(t, alice, "login", loginPayload{Name: "alice", Credential: "secret1"})
	req.JSONEq(`[]`, string(readUntil(t, alice, "history").Payload))
	roster := decode[[]RosterEntryResponse](t, readUntil(t, alice, "onlineRoster"))
	req.Equal([]RosterEntryResponse{{Name: "alice", Online: true}}, roster)

	// a token works as well as the password
	bob := dial(t, url)
	sendFrame(t, bob, "login", loginPayload{Name: "bob", Credential: bobToken})
	readUntil(t, bob, "history")
	roster = decode[[]RosterEntryResponse](t, readUntil(t, alice, "onlineRoster"))
	req.Equal([]RosterEntryResponse{{Name: "alice", Online: true}, {Name: "bob", Online: true}}, roster)

	sendFrame(t, alice, "send", sendPayload{RecipientName: "bob", Content: "  hello bob  "})
	received := decode[MessageResponse](t, readUntil(t, bob, "message"))
	req.Equal("alice", received.Sender)
	req.Equal("bob", received.Recipient)
	req.Equal("hello bob", received.Content)
	echo := decode[MessageResponse](t, readUntil(t, alice, "message"))
	req.Equal(received.ID, echo.ID)

	sendFrame(t, bob, "getConversation", conversationPayload{WithUser: "alice"})
	conversation := decode[ConversationResponse](t, readUntil(t, bob, "conversation"))
	req.Equal("alice", conversation.WithUser)
	req.Len(conversation.Messages, 1)
	req.Equal(received.ID, conversation.Messages[0].ID)

	isTyping := true
	sendFrame(t, bob, "typing", typingPayload{IsTyping: &isTyping})
	typing := decode[TypingResponse](t, readUntil(t, alice, "typingUpdate"))
	req.Equal("bob", typing.Name)
	req.True(typing.IsTyping)

	req.NoError(bob.Close())
	roster = decode[[]RosterEntryResponse](t, readUntil(t, alice, "onlineRoster"))
	req.Equal([]RosterEntryResponse{{Name: "alice", Online: true}, {Name: "bob", Online: false}}, roster)
}

func TestWebSocket_Reports_Failures_To_The_Sender(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, testOptions())
	signup(t, s, "alice", "secret1")
	url := serve(t, s)

	conn := dial(t, url)
	sendFrame(t, conn, "send", sendPayload{RecipientName: "bob", Content: "hi"})
	readUntil(t, conn, "protocolFailure")

	req.NoError(conn.WriteMessage(fws.TextMessage, []byte("not json")))
	readUntil(t, conn, "protocolFailure")

	sendFrame(t, conn, "login", loginPayload{Name: "alice", Credential: "wrong-one"})
	failure := decode[FailureResponse](t, readUntil(t, conn, "authFailure"))
	req.Equal("Invalid username or password", failure.Reason)

	// the connection is still usable after a failed login
	sendFrame(t, conn, "login", loginPayload{Name: "alice", Credential: "secret1"})
	readUntil(t, conn, "history")

	sendFrame(t, conn, "send", sendPayload{RecipientName: "bob", Content: "   "})
	readUntil(t, conn, "sendFailure")
}

func TestWebSocket_Second_Login_Replaces_The_First(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, testOptions())
	signup(t, s, "alice", "secret1")
	url := serve(t, s)

	first := dial(t, url)
	sendFrame(t, first, "login", loginPayload{Name: "alice", Credential: "secret1"})
	readUntil(t, first, "history")

	second := dial(t, url)
	sendFrame(t, second, "login", loginPayload{Name: "alice", Credential: "secret1"})
	readUntil(t, second, "history")

	readUntil(t, first, "sessionReplaced")
	_, _, err := first.ReadMessage()
	req.True(fws.IsCloseError(err, fws.ClosePolicyViolation), "got %v", err)

	handle, online := s.engine.Presence().Lookup("alice")
	req.True(online)
	req.NotEmpty(handle)
}

func TestWebSocket_Login_Timeout_Closes_Idle_Connections(t *testing.T) {
	options := testOptions()
	options.LoginTimeout = 100 * time.Millisecond
	s := newTestServer(t, options)
	url := serve(t, s)

	conn := dial(t, url)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestSearch_Finds_Own_Messages_Only(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, testOptions())
	aliceToken := signup(t, s, "alice", "secret1")
	clara := signup(t, s, "clara", "secret3")
	url := serve(t, s)

	alice := dial(t, url)
	sendFrame(t, alice, "login", loginPayload{Name: "alice", Credential: aliceToken})
	readUntil(t, alice, "history")
	sendFrame(t, alice, "send", sendPayload{RecipientName: "bob", Content: "the deploy failed"})
	readUntil(t, alice, "message")

	resp, body := doJSON(t, s, "GET", "/messages/search?q=deploy", nil, "Authorization", "Bearer "+aliceToken)
	req.Equal(200, resp.StatusCode, string(body))
	found := decode[[]MessageResponse](t, frame{Payload: body})
	req.Len(found, 1)
	req.Equal("the deploy failed", found[0].Content)

	resp, body = doJSON(t, s, "GET", "/messages/search?q=deploy", nil, "Authorization", "Bearer "+clara)
	req.Equal(200, resp.StatusCode)
	req.JSONEq(`[]`, string(body))

	resp, _ = doJSON(t, s, "GET", "/messages/search?q=", nil, "Authorization", "Bearer "+aliceToken)
	req.Equal(400, resp.StatusCode)

	resp, _ = doJSON(t, s, "GET", "/messages/search?q=deploy", nil)
	req.Equal(401, resp.StatusCode)
}
