package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/lint"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Format selects how a template is printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "text", "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
}

// Config configures a Renderer.
type Config struct {
	Format  Format
	NoColor bool
	// Quiet suppresses the progressive text output.
	Quiet bool
	Out   io.Writer
	Err   io.Writer
}

// Renderer prints templates as they stream in and once they are final.
type Renderer struct {
	opts Config

	title  *color.Color
	dim    *color.Color
	warn   *color.Color
	failed *color.Color

	// progress of the last printed snapshot
	shown shown
}

type shown struct {
	name, vanity, icon, settings bool
	roles                        int
	channels                     []int
	lastCategory                 int
}

// New returns a renderer. A nil Out or Err defaults to stdout and stderr.
func New(cfg Config) *Renderer {
	color.NoColor = cfg.NoColor
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Err == nil {
		cfg.Err = os.Stderr
	}
	return &Renderer{
		opts:   cfg,
		title:  color.New(color.FgCyan, color.Bold),
		dim:    color.New(color.FgHiBlack),
		warn:   color.New(color.FgYellow),
		failed: color.New(color.FgRed),
		shown:  shown{lastCategory: -1},
	}
}

// Snapshot prints whatever the template gained since the previous call.
// It only prints in text format; structured formats wait for Template.
func (r *Renderer) Snapshot(t *types.ServerTemplate) {
	if r.opts.Format != FormatText || r.opts.Quiet || t == nil {
		return
	}
	w := r.opts.Out
	s := &r.shown

	if !s.name && t.Name != "" && t.Name != types.PlaceholderName {
		fmt.Fprintln(w, r.title.Sprint("Server › ")+t.Name)
		s.name = true
	}
	if !s.vanity && t.VanityURL != "" {
		fmt.Fprintln(w, r.dim.Sprintf("  discord.gg/%s", t.VanityURL))
		s.vanity = true
	}
	if !s.icon && t.IconPrompt != "" {
		fmt.Fprintln(w, r.dim.Sprintf("  icon: %s", t.IconPrompt))
		s.icon = true
	}
	for ; s.roles < len(t.Roles); s.roles++ {
		if s.roles == 0 {
			fmt.Fprintln(w, r.title.Sprint("Roles"))
		}
		fmt.Fprintln(w, "  "+r.role(t.Roles[s.roles]))
	}
	for i, cat := range t.Categories {
		if i >= len(s.channels) {
			s.channels = append(s.channels, 0)
			r.category(cat.Name, i)
		}
		for ; s.channels[i] < len(cat.Channels); s.channels[i]++ {
			if s.lastCategory != i {
				r.category(cat.Name, i)
			}
			fmt.Fprintln(w, "    "+channel(cat.Channels[s.channels[i]]))
		}
	}
	if !s.settings && t.Settings != (types.Settings{}) {
		fmt.Fprintln(w, r.title.Sprint("Settings"))
		r.settings(t.Settings)
		s.settings = true
	}
}

func (r *Renderer) category(name string, i int) {
	fmt.Fprintln(r.opts.Out, r.title.Sprint("▸ ")+strings.ToUpper(name))
	r.shown.lastCategory = i
}

func (r *Renderer) role(role types.Role) string {
	c := roleColor(role.Color)
	line := c.Sprint("● ") + role.Name
	if role.Hoist {
		line += r.dim.Sprint(" (hoisted)")
	}
	if len(role.Permissions) > 0 {
		line += r.dim.Sprintf(" [%s]", strings.Join(role.Permissions, ", "))
	}
	return line
}

func channel(ch types.Channel) string {
	prefix := "#"
	if ch.Kind == types.ChannelVoice {
		prefix = "🔊"
	}
	line := prefix + " " + ch.Name
	if ch.Topic != "" {
		line += " - " + ch.Topic
	}
	return line
}

func (r *Renderer) settings(s types.Settings) {
	for _, kv := range [][2]string{
		{"verification", s.VerificationLevel},
		{"content filter", s.ExplicitContentFilter},
		{"notifications", s.DefaultNotifications},
	} {
		if kv[1] != "" {
			fmt.Fprintf(r.opts.Out, "  %s %s\n", r.dim.Sprintf("%-15s", kv[0]), kv[1])
		}
	}
}

// roleColor approximates a #RRGGBB role color with the nearest basic
// terminal color.
func roleColor(hex string) *color.Color {
	var red, green, blue int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &red, &green, &blue); err != nil {
		return color.New(color.FgWhite)
	}
	offset := 0
	if red > 0x80 {
		offset |= 1
	}
	if green > 0x80 {
		offset |= 2
	}
	if blue > 0x80 {
		offset |= 4
	}
	if offset == 0 {
		return color.New(color.FgHiBlack)
	}
	attr := color.FgBlack + color.Attribute(offset)
	return color.New(attr)
}

// Template prints the final template in the configured format. Text output
// completes the progressive rendering; the structured formats print the
// whole document.
func (r *Renderer) Template(t *types.ServerTemplate) error {
	switch r.opts.Format {
	case FormatJSON:
		return WriteJSON(r.opts.Out, t)
	case FormatYAML:
		return WriteYAML(r.opts.Out, t)
	default:
		quiet := r.opts.Quiet
		r.opts.Quiet = false
		r.Snapshot(t)
		r.opts.Quiet = quiet
		return nil
	}
}

// Result prints the outcome line to the error stream.
func (r *Renderer) Result(res *session.Result) {
	if res == nil {
		return
	}
	c := r.dim
	switch res.Outcome {
	case session.OutcomeTruncated, session.OutcomeCancelled:
		c = r.warn
	case session.OutcomeFailed:
		c = r.failed
	}
	line := fmt.Sprintf("%s: %d units", res.Outcome, res.Units)
	if res.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	fmt.Fprintln(r.opts.Err, c.Sprint(line))
}

// Findings prints lint findings, one per line, to the error stream.
func (r *Renderer) Findings(findings []lint.Finding) {
	for _, f := range findings {
		c := r.dim
		switch f.Severity {
		case lint.SeverityWarning:
			c = r.warn
		case lint.SeverityError:
			c = r.failed
		}
		fmt.Fprintf(r.opts.Err, "%s %s %s\n", c.Sprintf("%-7s", f.Severity), f.Path, f.Message)
	}
}

// Reset forgets what has been printed, for rendering another template.
func (r *Renderer) Reset() {
	r.shown = shown{lastCategory: -1}
}

// WriteJSON writes t as indented JSON.
func WriteJSON(w io.Writer, t *types.ServerTemplate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(t)
}

// WriteYAML writes t as YAML.
func WriteYAML(w io.Writer, t *types.ServerTemplate) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}
