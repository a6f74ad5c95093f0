package mcp

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/council/internal/clock"
	"github.com/rpggio/council/internal/domain/access"
	"github.com/rpggio/council/internal/domain/activity"
	"github.com/rpggio/council/internal/domain/member"
	"github.com/rpggio/council/internal/domain/topic"
	"github.com/rpggio/council/internal/domain/voting"
)

// MemberService defines member registry operations needed by MCP.
type MemberService interface {
	Authority() common.Address
	Role(ctx context.Context, caller common.Address) (access.Role, error)
	Register(ctx context.Context, caller, addr common.Address) error
	Deregister(ctx context.Context, caller, addr common.Address) error
	IsMember(ctx context.Context, addr common.Address) (bool, error)
	List(ctx context.Context, caller common.Address) ([]member.Member, error)
}

// TopicService defines topic ledger operations needed by MCP.
type TopicService interface {
	Create(ctx context.Context, caller common.Address, req topic.CreateRequest) (*topic.Topic, error)
	Deny(ctx context.Context, caller common.Address, id uint64, remark string) (*topic.Topic, error)
	Get(ctx context.Context, id uint64) (*topic.Topic, error)
	List(ctx context.Context, opts topic.ListOptions) ([]topic.Topic, error)
}

// VotingService defines voting session operations needed by MCP.
type VotingService interface {
	CreateSession(ctx context.Context, caller common.Address, req voting.CreateSessionRequest) (*voting.Session, error)
	CastVote(ctx context.Context, caller common.Address, req voting.CastVoteRequest) (*voting.Vote, error)
	VoteCount(ctx context.Context, caller common.Address, votingID uint64) (int, error)
	GetVote(ctx context.Context, caller common.Address, votingID uint64, index int) (*voting.Vote, error)
	CloseSession(ctx context.Context, caller common.Address, votingID uint64) (*voting.Session, error)
	GetSession(ctx context.Context, caller common.Address, votingID uint64) (*voting.Session, error)
	ListSessions(ctx context.Context, caller common.Address, opts voting.ListSessionsOptions) ([]voting.Session, error)
	CurrentVotingID(ctx context.Context) (uint64, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, caller common.Address, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Members  MemberService
	Topics   TopicService
	Voting   VotingService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services    Services
	Resolver    IdentityResolver
	AuthEnabled bool
	// TransportMode is "stdio" or "http".
	TransportMode string
	// FixedIdentity acts as the caller when bearer auth is off.
	FixedIdentity common.Address
	Clock         clock.Clock
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "council",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Middleware runs last-added first, so identity is resolved before
	// traffic is logged.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(fixedIdentityMiddleware(cfg.FixedIdentity))
	}
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services, cfg.Clock), logger)

	return server
}
