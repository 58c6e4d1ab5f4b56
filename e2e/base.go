package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// BaseSuite talks to a running server over HTTP, WebSocket and gRPC.
type BaseSuite struct {
	suite.Suite
	Config Config
	http   *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.http = &http.Client{Timeout: 10 * time.Second}
}

func (s *BaseSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PostJSON sends body to path and decodes the answer into out when the
// status matches want.
func (s *BaseSuite) PostJSON(path string, body any, want int, out any) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	start := time.Now()
	resp, err := s.http.Post("http://"+s.Config.ServerAddr+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.T().Logf("POST %s [%d] in %v", path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("REQUEST: %s\nRESPONSE: %s", raw, payload)
	}
	s.Require().Equal(want, resp.StatusCode, string(payload))
	if out != nil {
		s.Require().NoError(json.Unmarshal(payload, out))
	}
}

// Client is one WebSocket connection of the scenario.
type Client struct {
	s    *BaseSuite
	name string
	conn *fws.Conn
}

type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *BaseSuite) Connect(name string) *Client {
	s.step("Connecting " + name)
	conn, _, err := fws.DefaultDialer.Dial("ws://"+s.Config.ServerAddr+"/ws", nil)
	s.Require().NoError(err, "Failed to open WebSocket")
	return &Client{s: s, name: name, conn: conn}
}

func (c *Client) Send(typ string, payload any) {
	raw, err := json.Marshal(payload)
	c.s.Require().NoError(err)
	if c.s.Config.DebugJSON {
		c.s.T().Logf("%s >> %s %s", c.name, typ, raw)
	}
	c.s.Require().NoError(c.conn.WriteJSON(Frame{Type: typ, Payload: raw}))
}

// Await skips frames until one of type typ arrives and decodes its payload.
func (c *Client) Await(typ string, out any) {
	c.s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var f Frame
		c.s.Require().NoError(c.conn.ReadJSON(&f), "%s waiting for %s", c.name, typ)
		if c.s.Config.DebugJSON {
			c.s.T().Logf("%s << %s %s", c.name, f.Type, f.Payload)
		}
		if f.Type != typ {
			continue
		}
		if out != nil {
			c.s.Require().NoError(json.Unmarshal(f.Payload, out))
		}
		return
	}
}

func (c *Client) Close() {
	_ = c.conn.WriteMessage(fws.CloseMessage, fws.FormatCloseMessage(fws.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// WithHealth provides a health client within a contextual test step
func (s *BaseSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	s.step(name)
	marshaler := protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true}

	conn, err := grpc.NewClient(s.Config.HealthAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON && err == nil {
				fmt.Fprintf(&logBuilder, "\nRESPONSE: %s", marshaler.Format(reply.(proto.Message)))
			}
			s.T().Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
