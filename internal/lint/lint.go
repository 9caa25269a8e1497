package lint

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Severity ranks a finding.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Finding is one problem found in a template.
type Finding struct {
	Severity Severity `json:"severity"`
	// Path locates the offending value, e.g. "roles[1].color".
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Path, f.Message)
}

// channelPrefix is the separator between a channel's emoji and its name.
const channelPrefix = "・"

var (
	hexColor  = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	kebabCase = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	vanityURL = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)
)

var settingValues = map[string][]string{
	"verificationLevel":     {"NONE", "LOW", "MEDIUM", "HIGH", "VERY_HIGH"},
	"explicitContentFilter": {"DISABLED", "MEMBERS_WITHOUT_ROLES", "ALL_MEMBERS"},
	"defaultNotifications":  {"ALL_MESSAGES", "ONLY_MENTIONS"},
}

// Check reports problems in t, ordered by the template's layout.
func Check(t *types.ServerTemplate) []Finding {
	var c checker
	c.server(t)
	for i, r := range t.Roles {
		c.role(i, r)
	}
	for i, cat := range t.Categories {
		c.category(i, cat)
	}
	c.settings(t.Settings)
	return c.findings
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

type checker struct {
	findings []Finding
}

func (c *checker) add(sev Severity, path, format string, args ...any) {
	c.findings = append(c.findings, Finding{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) server(t *types.ServerTemplate) {
	if name := strings.TrimSpace(t.Name); name == "" || name == types.PlaceholderName {
		c.add(SeverityError, "serverName", "server name is missing")
	}
	if !t.Complete {
		c.add(SeverityWarning, "isComplete", "template is incomplete")
	}
	if t.VanityURL != "" && !vanityURL.MatchString(t.VanityURL) {
		c.add(SeverityWarning, "vanityUrlSuggestion", "vanity URL %q should be 2-32 lower-case letters, digits or hyphens", t.VanityURL)
	}
	if len(t.Roles) == 0 {
		c.add(SeverityWarning, "roles", "template has no roles")
	}
	if len(t.Categories) == 0 {
		c.add(SeverityWarning, "categories", "template has no categories")
	}
}

func (c *checker) role(i int, r types.Role) {
	path := fmt.Sprintf("roles[%d]", i)
	if strings.TrimSpace(r.Name) == "" {
		c.add(SeverityError, path+".name", "role name is empty")
	}
	if !hexColor.MatchString(r.Color) {
		c.add(SeverityError, path+".color", "color %q is not #RRGGBB", r.Color)
	}
	for j, p := range r.Permissions {
		ppath := fmt.Sprintf("%s.permissions[%d]", path, j)
		canonical, ok := ResolvePermission(p)
		switch {
		case ok && canonical != p:
			c.add(SeverityInfo, ppath, "%q is the flag %s", p, canonical)
		case !ok:
			if s := SuggestPermission(p); s != "" {
				c.add(SeverityWarning, ppath, "unknown permission %q, did you mean %s?", p, s)
			} else {
				c.add(SeverityWarning, ppath, "unknown permission %q", p)
			}
		}
	}
}

func (c *checker) category(i int, cat types.Category) {
	path := fmt.Sprintf("categories[%d]", i)
	if strings.TrimSpace(cat.Name) == "" {
		c.add(SeverityError, path+".name", "category name is empty")
	}
	if len(cat.Channels) == 0 {
		c.add(SeverityWarning, path+".channels", "category has no channels")
	}
	for j, ch := range cat.Channels {
		c.channel(fmt.Sprintf("%s.channels[%d]", path, j), ch)
	}
}

func (c *checker) channel(path string, ch types.Channel) {
	if !ch.Kind.Valid() {
		c.add(SeverityError, path+".type", "channel type %q is not text or voice", ch.Kind)
	}
	if strings.TrimSpace(ch.Name) == "" {
		c.add(SeverityError, path+".name", "channel name is empty")
		return
	}
	if ch.Kind != types.ChannelText {
		return
	}

	name := ch.Name
	if _, after, found := strings.Cut(name, channelPrefix); found {
		name = after
	} else {
		c.add(SeverityInfo, path+".name", "channel %q has no emoji prefix", ch.Name)
	}
	if !kebabCase.MatchString(name) {
		c.add(SeverityWarning, path+".name", "channel name %q is not kebab-case", name)
	}
}

func (c *checker) settings(s types.Settings) {
	values := map[string]string{
		"verificationLevel":     s.VerificationLevel,
		"explicitContentFilter": s.ExplicitContentFilter,
		"defaultNotifications":  s.DefaultNotifications,
	}
	for _, key := range []string{"verificationLevel", "explicitContentFilter", "defaultNotifications"} {
		v := values[key]
		if v == "" {
			continue
		}
		if !slices.Contains(settingValues[key], NormalizePermission(v)) {
			c.add(SeverityWarning, "serverSettings."+key, "unrecognized value %q", v)
		}
	}
}
