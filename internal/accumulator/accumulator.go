// Package accumulator folds decoded tag units into a server template.
package accumulator

import (
	"fmt"
	"strings"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Subfield counts of the pipe-delimited unit values.
const (
	roleFields     = 4
	channelFields  = 3
	settingsFields = 3
)

// MalformedUnitError is returned when a unit value has the wrong shape.
// The template is left unchanged.
type MalformedUnitError struct {
	Kind  tagproto.Kind
	Want  int
	Got   int
	Value string
}

func (e *MalformedUnitError) Error() string {
	return fmt.Sprintf("malformed %s unit: want %d fields, got %d", e.Kind, e.Want, e.Got)
}

// Accumulator owns one template and applies units to it in order.
// It is not safe for concurrent use.
type Accumulator struct {
	tmpl *types.ServerTemplate
	// current is the index of the category channels go to, -1 before any.
	current int
}

// New creates an accumulator holding an empty template.
func New() *Accumulator {
	return &Accumulator{
		tmpl:    types.NewServerTemplate(),
		current: -1,
	}
}

// Apply folds one unit into the template. Every field is parsed before
// anything is written, so an error leaves the template as it was.
func (a *Accumulator) Apply(u tagproto.Unit) error {
	switch u.Kind {
	case tagproto.KindServerName:
		a.tmpl.Name = u.Value
	case tagproto.KindVanityURL:
		a.tmpl.VanityURL = u.Value
	case tagproto.KindIconPrompt:
		a.tmpl.IconPrompt = u.Value
	case tagproto.KindRole:
		role, err := ParseRole(u.Value)
		if err != nil {
			return err
		}
		a.tmpl.Roles = append(a.tmpl.Roles, role)
	case tagproto.KindCategory:
		a.tmpl.Categories = append(a.tmpl.Categories, types.Category{Name: u.Value, Channels: []types.Channel{}})
		a.current = len(a.tmpl.Categories) - 1
	case tagproto.KindChannel:
		ch, err := ParseChannel(u.Value)
		if err != nil {
			return err
		}
		if a.current < 0 {
			// Channels before any category have nowhere to go.
			logging.Debug().Str("channel", ch.Name).Msg("dropping channel without category")
			return nil
		}
		cat := &a.tmpl.Categories[a.current]
		cat.Channels = append(cat.Channels, ch)
	case tagproto.KindSettings:
		s, err := ParseSettings(u.Value)
		if err != nil {
			return err
		}
		a.tmpl.Settings = s
	case tagproto.KindDone:
		a.tmpl.Complete = true
	default:
		return fmt.Errorf("unknown unit kind %s", u.Kind)
	}
	return nil
}

// HasCategory reports whether a channel unit would currently be kept.
func (a *Accumulator) HasCategory() bool {
	return a.current >= 0
}

// Template returns the live template. Callers outside the owning session
// should use Snapshot.
func (a *Accumulator) Template() *types.ServerTemplate {
	return a.tmpl
}

// Snapshot returns a deep copy of the template.
func (a *Accumulator) Snapshot() *types.ServerTemplate {
	return a.tmpl.Clone()
}

// Reset discards the template and starts over.
func (a *Accumulator) Reset() {
	a.tmpl = types.NewServerTemplate()
	a.current = -1
}

// ParseRole decodes name|#color|hoist|perm1,perm2.
func ParseRole(value string) (types.Role, error) {
	f, err := split(tagproto.KindRole, value, roleFields)
	if err != nil {
		return types.Role{}, err
	}
	return types.Role{
		Name:        StripPictographs(f[0]),
		Color:       strings.TrimSpace(f[1]),
		Hoist:       f[2] == "true",
		Permissions: splitPermissions(f[3]),
	}, nil
}

// ParseChannel decodes kind|name|topic. The kind is carried verbatim.
func ParseChannel(value string) (types.Channel, error) {
	f, err := split(tagproto.KindChannel, value, channelFields)
	if err != nil {
		return types.Channel{}, err
	}
	return types.Channel{
		Kind:  types.ChannelKind(strings.TrimSpace(f[0])),
		Name:  strings.TrimSpace(f[1]),
		Topic: strings.TrimSpace(f[2]),
	}, nil
}

// ParseSettings decodes verification|filter|notifications verbatim.
func ParseSettings(value string) (types.Settings, error) {
	f, err := split(tagproto.KindSettings, value, settingsFields)
	if err != nil {
		return types.Settings{}, err
	}
	return types.Settings{
		VerificationLevel:     f[0],
		ExplicitContentFilter: f[1],
		DefaultNotifications:  f[2],
	}, nil
}

func split(kind tagproto.Kind, value string, want int) ([]string, error) {
	f := strings.Split(value, "|")
	if len(f) != want {
		return nil, &MalformedUnitError{Kind: kind, Want: want, Got: len(f), Value: value}
	}
	return f, nil
}

func splitPermissions(s string) []string {
	perms := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}
