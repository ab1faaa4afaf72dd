package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/mcpchat/notion-chat/pkg/logging"
	"github.com/mcpchat/notion-chat/pkg/version"
)

// Status is the connection state of the pool.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

const defaultTimeout = 10 * time.Second

// DialFunc opens a started, uninitialized client for one server.
type DialFunc func(ctx context.Context, name string, server ServerConfig) (*client.Client, error)

type route struct {
	server string
	tool   string
}

// Pool owns one long-lived MCP session per configured server. It is created
// once at startup, shared by all requests and closed at shutdown.
type Pool struct {
	config  *Config
	timeout time.Duration
	dial    DialFunc
	logger  logging.Logger

	mu       sync.RWMutex
	status   Status
	sessions map[string]*client.Client
	tools    []mcp.Tool
	routes   map[string]route
}

// Option configures a Pool.
type Option func(*Pool)

// WithTimeout bounds the initialize and tool listing calls of Connect.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDialer replaces how server sessions are opened.
func WithDialer(dial DialFunc) Option {
	return func(p *Pool) { p.dial = dial }
}

// WithLogger sets the pool logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// NewPool creates a disconnected pool for the given configuration.
func NewPool(config *Config, opts ...Option) *Pool {
	p := &Pool{
		config:  config,
		timeout: defaultTimeout,
		dial:    dialServer,
		logger:  logging.NewComponentLogger("mcp"),
		status:  StatusDisconnected,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type session struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// Connect opens a session to every enabled server concurrently. If any server
// fails, the sessions already opened are closed and the pool reports
// StatusError. With no servers configured the pool stays disconnected.
func (p *Pool) Connect(ctx context.Context) error {
	names := p.config.Servers()
	if len(names) == 0 {
		p.logger.Warn("no MCP servers configured")
		p.setStatus(StatusDisconnected)
		return nil
	}

	p.logger.Info("connecting MCP servers", "servers", names)

	var mu sync.Mutex
	opened := make([]session, 0, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		server := p.config.MCPServers[name]
		g.Go(func() error {
			s, err := p.open(ctx, gctx, name, server)
			if s.client != nil {
				mu.Lock()
				opened = append(opened, s)
				mu.Unlock()
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		for _, s := range opened {
			if cerr := s.client.Close(); cerr != nil {
				p.logger.Debug("failed to close MCP session", "server", s.name, "error", cerr)
			}
		}
		p.setStatus(StatusError)
		p.logger.Error("failed to connect MCP servers", "error", err)
		return fmt.Errorf("mcp connect: %w", err)
	}

	sessions := make(map[string]*client.Client, len(opened))
	routes := make(map[string]route)
	var tools []mcp.Tool
	for _, name := range names {
		for _, s := range opened {
			if s.name != name {
				continue
			}
			sessions[name] = s.client
			for _, tool := range s.tools {
				full := name + "_" + tool.Name
				routes[full] = route{server: name, tool: tool.Name}
				tool.Name = full
				tools = append(tools, tool)
			}
		}
	}

	p.mu.Lock()
	p.sessions = sessions
	p.routes = routes
	p.tools = tools
	p.status = StatusConnected
	p.mu.Unlock()

	p.logger.Info("MCP servers connected", "servers", len(sessions), "tools", len(tools))
	return nil
}

// open starts the session with the long-lived ctx and bounds the handshake
// with the group context plus the pool timeout.
func (p *Pool) open(ctx, gctx context.Context, name string, server ServerConfig) (session, error) {
	s := session{name: name}

	cli, err := p.dial(ctx, name, server)
	if err != nil {
		return s, fmt.Errorf("could not setup %s: %w", name, err)
	}
	s.client = cli

	hctx, cancel := context.WithTimeout(gctx, p.timeout)
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "notion-chat", Version: version.Version}
	if _, err := cli.Initialize(hctx, req); err != nil {
		return s, fmt.Errorf("could not initialize %s: %w", name, timeoutHint(name, err))
	}

	result, err := cli.ListTools(hctx, mcp.ListToolsRequest{})
	if err != nil {
		return s, fmt.Errorf("could not list tools for %s: %w", name, timeoutHint(name, err))
	}
	s.tools = result.Tools

	p.logger.Debug("MCP server ready", "server", name, "tools", len(s.tools))
	return s, nil
}

func timeoutHint(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout while talking to %q, make sure the configuration is correct: %w", name, err)
	}
	return err
}

// Status reports the current connection state.
func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Connected reports whether every configured session is open.
func (p *Pool) Connected() bool {
	return p.Status() == StatusConnected
}

// Tools returns all tools, named <server>_<tool>.
func (p *Pool) Tools() []mcp.Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]mcp.Tool(nil), p.tools...)
}

// CallTool runs a namespaced tool and returns its text content. A result
// flagged as an error is returned as an error carrying that text.
func (p *Pool) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	p.mu.RLock()
	r, ok := p.routes[name]
	cli := p.sessions[r.server]
	p.mu.RUnlock()

	if !ok || cli == nil {
		return "", fmt.Errorf("mcp: unknown tool %q", name)
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = r.tool
	request.Params.Arguments = args

	result, err := cli.CallTool(ctx, request)
	if err != nil {
		return "", fmt.Errorf("mcp: %s: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		switch content := content.(type) {
		case mcp.TextContent:
			sb.WriteString(content.Text)
		default:
			sb.WriteString("[Non-text content]")
		}
	}

	if result.IsError {
		return "", errors.New(sb.String())
	}
	return sb.String(), nil
}

// Close closes every session. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions = nil
	p.routes = nil
	p.tools = nil
	if p.status == StatusConnected {
		p.status = StatusDisconnected
	}
	p.mu.Unlock()

	var errs []error
	for name, cli := range sessions {
		if err := cli.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if len(sessions) > 0 {
		p.logger.Info("MCP sessions closed", "servers", len(sessions))
	}
	return errors.Join(errs...)
}

func (p *Pool) setStatus(status Status) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

// dialServer creates and starts a client for the configured transport.
func dialServer(ctx context.Context, name string, server ServerConfig) (*client.Client, error) {
	var (
		cli *client.Client
		err error
	)

	switch server.Transport() {
	case TransportStdio:
		env := append(os.Environ(), server.Environ()...)
		cli, err = client.NewStdioMCPClient(server.Command, env, server.Args...)
	case TransportSSE:
		cli, err = client.NewSSEMCPClient(server.URL, transport.WithHeaders(server.Headers))
	case TransportHTTP:
		cli, err = client.NewStreamableHttpClient(server.URL, transport.WithHTTPHeaders(server.Headers))
	default:
		return nil, fmt.Errorf("unsupported transport %q for %s", server.Type, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := cli.Start(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}
	return cli, nil
}
