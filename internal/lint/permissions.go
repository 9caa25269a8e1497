package lint

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Permissions are the canonical Discord permission flag names.
var Permissions = []string{
	"CREATE_INSTANT_INVITE",
	"KICK_MEMBERS",
	"BAN_MEMBERS",
	"ADMINISTRATOR",
	"MANAGE_CHANNELS",
	"MANAGE_GUILD",
	"ADD_REACTIONS",
	"VIEW_AUDIT_LOG",
	"PRIORITY_SPEAKER",
	"STREAM",
	"VIEW_CHANNEL",
	"SEND_MESSAGES",
	"SEND_TTS_MESSAGES",
	"MANAGE_MESSAGES",
	"EMBED_LINKS",
	"ATTACH_FILES",
	"READ_MESSAGE_HISTORY",
	"MENTION_EVERYONE",
	"USE_EXTERNAL_EMOJIS",
	"VIEW_GUILD_INSIGHTS",
	"CONNECT",
	"SPEAK",
	"MUTE_MEMBERS",
	"DEAFEN_MEMBERS",
	"MOVE_MEMBERS",
	"USE_VAD",
	"CHANGE_NICKNAME",
	"MANAGE_NICKNAMES",
	"MANAGE_ROLES",
	"MANAGE_WEBHOOKS",
	"MANAGE_GUILD_EXPRESSIONS",
	"USE_APPLICATION_COMMANDS",
	"REQUEST_TO_SPEAK",
	"MANAGE_EVENTS",
	"MANAGE_THREADS",
	"CREATE_PUBLIC_THREADS",
	"CREATE_PRIVATE_THREADS",
	"USE_EXTERNAL_STICKERS",
	"SEND_MESSAGES_IN_THREADS",
	"USE_EMBEDDED_ACTIVITIES",
	"MODERATE_MEMBERS",
	"VIEW_CREATOR_MONETIZATION_ANALYTICS",
	"USE_SOUNDBOARD",
	"CREATE_GUILD_EXPRESSIONS",
	"CREATE_EVENTS",
	"USE_EXTERNAL_SOUNDS",
	"SEND_VOICE_MESSAGES",
	"SEND_POLLS",
	"USE_EXTERNAL_APPS",
}

// aliases maps names from the Discord client UI to their flag names.
var aliases = map[string]string{
	"MANAGE_SERVER":              "MANAGE_GUILD",
	"READ_MESSAGES":              "VIEW_CHANNEL",
	"VIEW_CHANNELS":              "VIEW_CHANNEL",
	"TIMEOUT_MEMBERS":            "MODERATE_MEMBERS",
	"MANAGE_EMOJIS":              "MANAGE_GUILD_EXPRESSIONS",
	"MANAGE_EMOJIS_AND_STICKERS": "MANAGE_GUILD_EXPRESSIONS",
	"MANAGE_EXPRESSIONS":         "MANAGE_GUILD_EXPRESSIONS",
	"USE_VOICE_ACTIVITY":         "USE_VAD",
	"USE_SLASH_COMMANDS":         "USE_APPLICATION_COMMANDS",
	"VIDEO":                      "STREAM",
	"USE_ACTIVITIES":             "USE_EMBEDDED_ACTIVITIES",
	"SEND_MESSAGES_IN_POSTS":     "SEND_MESSAGES_IN_THREADS",
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(Permissions))
	for _, p := range Permissions {
		m[p] = true
	}
	return m
}()

// NormalizePermission upper-cases a permission name and joins its words
// with underscores: "Manage Messages" becomes "MANAGE_MESSAGES".
func NormalizePermission(name string) string {
	fields := strings.FieldsFunc(strings.ToUpper(name), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	return strings.Join(fields, "_")
}

// ResolvePermission returns the canonical flag name for name. ok is false
// when name is neither a flag nor a known alias.
func ResolvePermission(name string) (canonical string, ok bool) {
	n := NormalizePermission(name)
	if known[n] {
		return n, true
	}
	if a, found := aliases[n]; found {
		return a, true
	}
	return n, false
}

// SuggestPermission returns the flag closest to name, or "" when nothing is
// close enough to be a plausible typo.
func SuggestPermission(name string) string {
	n := NormalizePermission(name)
	best, bestDist := "", -1
	for _, p := range Permissions {
		d := levenshtein.ComputeDistance(n, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	limit := len(n) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
