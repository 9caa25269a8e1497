// Package builder provides an MCP server that turns themes and recorded
// model transcripts into Discord server templates.
package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/generator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/lint"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Tool names.
const (
	ToolDecode   = "decode_template"
	ToolGenerate = "generate_template"
	ToolLint     = "lint_template"
)

// TemplateResult is the JSON body returned by the decode and generate tools.
type TemplateResult struct {
	Outcome  string                `json:"outcome"`
	Units    int                   `json:"units"`
	Skipped  int                   `json:"skipped"`
	Template *types.ServerTemplate `json:"template"`
}

type options struct {
	gen *generator.Generator
	bus *event.Bus
}

// Option configures the server.
type Option func(*options)

// WithGenerator enables generate_template.
func WithGenerator(g *generator.Generator) Option {
	return func(o *options) {
		o.gen = g
	}
}

// WithBus publishes decode sessions to bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// NewServer creates an MCP server with the template tools. generate_template
// is only registered when a generator is given.
func NewServer(opts ...Option) *server.MCPServer {
	o := &options{bus: event.Default()}
	for _, opt := range opts {
		opt(o)
	}
	h := &handlers{opts: o}

	s := server.NewMCPServer(
		"serverbuilder",
		Version,
		server.WithToolCapabilities(true),
	)

	decodeTool := mcp.NewTool(ToolDecode,
		mcp.WithDescription("Decodes a model transcript written in the server template tag format into a Discord server template"),
		mcp.WithString("transcript",
			mcp.Required(),
			mcp.Description("Raw model output containing <SERVER_NAME>, <ROLE>, <CATEGORY>, <CHANNEL>, <SETTINGS> and <DONE /> tags"),
		),
		mcp.WithString("matcher",
			mcp.Description("Unit matching strategy"),
			mcp.Enum("scan", "regex"),
		),
	)
	s.AddTool(decodeTool, h.decode)

	lintTool := mcp.NewTool(ToolLint,
		mcp.WithDescription("Checks a server template for malformed colours, channel names, permissions and missing parts"),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Server template JSON"),
		),
	)
	s.AddTool(lintTool, h.lint)

	if o.gen != nil {
		generateTool := mcp.NewTool(ToolGenerate,
			mcp.WithDescription("Generates a Discord server template for a theme using the configured model"),
			mcp.WithString("prompt",
				mcp.Required(),
				mcp.Description("Theme of the server, e.g. \"cozy coffee shop community\""),
			),
		)
		s.AddTool(generateTool, h.generate)
	}

	return s
}

type handlers struct {
	opts *options
}

func (h *handlers) decode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	transcript, ok := stringArg(args, "transcript")
	if !ok {
		return mcp.NewToolResultError("transcript argument is required"), nil
	}

	var matcher tagproto.Matcher = tagproto.ScanMatcher{}
	m, _ := stringArg(args, "matcher")
	switch m {
	case "", "scan":
	case "regex":
		matcher = tagproto.NewRegexMatcher()
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown matcher %q", m)), nil
	}

	s := session.New(session.WithMatcher(matcher), session.WithBus(h.opts.bus))
	res, err := s.Run(ctx, session.FromStrings(transcript), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decode failed: %v", err)), nil
	}
	return templateResult(res)
}

func (h *handlers) generate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, ok := stringArg(request.GetArguments(), "prompt")
	if !ok {
		return mcp.NewToolResultError("prompt argument is required"), nil
	}

	res, err := h.opts.gen.Generate(ctx, prompt, nil)
	switch {
	case errors.Is(err, generator.ErrInvalidPrompt):
		return mcp.NewToolResultError(err.Error()), nil
	case res == nil:
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	case res.Outcome == session.OutcomeFailed || res.Outcome == session.OutcomeCancelled:
		return mcp.NewToolResultError(fmt.Sprintf("generation %s after %d units: %v", res.Outcome, res.Units, err)), nil
	}
	return templateResult(res)
}

func (h *handlers) lint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := stringArg(request.GetArguments(), "template")
	if !ok {
		return mcp.NewToolResultError("template argument is required"), nil
	}

	t := types.NewServerTemplate()
	if err := json.Unmarshal([]byte(raw), t); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid template: %v", err)), nil
	}

	findings := lint.Check(t)
	if len(findings) == 0 {
		return mcp.NewToolResultText("no problems found"), nil
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// stringArg extracts a string argument.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func templateResult(res *session.Result) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(TemplateResult{
		Outcome:  res.Outcome.String(),
		Units:    res.Units,
		Skipped:  res.Skipped,
		Template: res.Template,
	})
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
