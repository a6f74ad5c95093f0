package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
	"github.com/rpggio/council/internal/event"
	"github.com/rpggio/council/internal/mcp"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/rpggio/council/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer is a fully wired council instance over an in-memory database
// with a manual clock.
type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Clock     *clock.Manual
	Registry  *prometheus.Registry
	Bus       *event.EventBus
	APIKeys   *sqlite.APIKeyRepository
	Services  mcp.Services
	Authority common.Address
}

func New(t *testing.T, authority common.Address, start time.Time) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clk := clock.NewManual(start)
	reg := prometheus.NewRegistry()
	bus := event.NewEventBus(reg, nil)

	memberRepo := sqlite.NewMemberRepository(db)
	topicRepo := sqlite.NewTopicRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	guard := access.NewGuard(authority, memberRepo)

	activitySvc := activity.NewService(activityRepo, guard, clk, nil)
	activity.NewRecorder(activitySvc, nil).Attach(bus)

	svcs := mcp.Services{
		Members: member.NewService(member.Config{
			Members: memberRepo, Tx: db, Guard: guard, Clock: clk, Events: bus,
		}),
		Topics: topic.NewService(topic.Config{
			Topics: topicRepo, Tx: db, Guard: guard, Clock: clk, Events: bus,
		}),
		Voting: voting.NewService(voting.Config{
			Topics:       topicRepo,
			Sessions:     sqlite.NewSessionRepository(db),
			Tx:           db,
			Guard:        guard,
			Clock:        clk,
			Events:       bus,
			PromRegistry: reg,
		}),
		Activity: activitySvc,
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)
	server := mcp.NewServer(mcp.Config{
		Services:      svcs,
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
		Clock:         clk,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, nil)
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	httpServer := httptest.NewServer(transport.NewServer(mcpHandler, metrics, transport.AuthMiddleware(apiKeys)))

	ts := &TestServer{
		Server:    httpServer,
		DB:        db,
		Clock:     clk,
		Registry:  reg,
		Bus:       bus,
		APIKeys:   apiKeys,
		Services:  svcs,
		Authority: authority,
	}

	t.Cleanup(func() {
		httpServer.Close()
		bus.Stop()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token string, identity common.Address) error {
	return ts.APIKeys.Add(context.Background(), token, identity, "test")
}

// Connect opens an in-memory MCP session acting as caller.
func (ts *TestServer) Connect(t *testing.T, caller common.Address) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(mcp.Config{
		Services:      ts.Services,
		TransportMode: "stdio",
		FixedIdentity: caller,
		Clock:         ts.Clock,
	})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "council-test", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = clientSession.Close()
		_ = serverSession.Wait()
	})
	return clientSession
}

// ConnectHTTP opens a streamable HTTP MCP session with a bearer token.
func (ts *TestServer) ConnectHTTP(t *testing.T, token string) (*sdkmcp.ClientSession, error) {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "council-test", Version: "v0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token}},
	}, nil)
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { _ = session.Close() })
	return session, nil
}

type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(req)
}
