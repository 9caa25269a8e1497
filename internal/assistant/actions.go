package assistant

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Action IDs the assistant may suggest.
const (
	ActionNavToolkit       = "NAV_TOOLKIT"
	ActionNavServerBuilder = "NAV_SERVERBUILDER"
	ActionNavGallery       = "NAV_GALLERY"
	ActionScrollExamples   = "SCROLL_EXAMPLES"
	ActionScrollFeatures   = "SCROLL_FEATURES"
	ActionScrollHowItWorks = "SCROLL_HOWITWORKS"
	ActionResultsChannels  = "NAV_RESULTS_CHANNELS"
	ActionResultsRoles     = "NAV_RESULTS_ROLES"
	ActionResultsUtilities = "NAV_RESULTS_UTILITIES"
	ActionResultsBots      = "NAV_RESULTS_BOTS"
	ActionResultsTutorial  = "NAV_RESULTS_TUTORIAL"
)

var actionBlock = regexp.MustCompile(`(?s)\[ACTIONS\](\[.*\])`)

// ParseActions splits a reply into its visible text and the actions listed
// in a trailing [ACTIONS][...] block. A block whose JSON cannot be read is
// still removed from the text.
func ParseActions(reply string) (string, []types.ChatAction) {
	m := actionBlock.FindStringSubmatchIndex(reply)
	if m == nil {
		return reply, nil
	}
	text := strings.TrimSpace(reply[:m[0]] + reply[m[1]:])
	raw := reply[m[2]:m[3]]

	if !gjson.Valid(raw) {
		return text, nil
	}
	var actions []types.ChatAction
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		a := types.ChatAction{
			Label:    v.Get("label").String(),
			ActionID: v.Get("actionId").String(),
		}
		if a.ActionID != "" {
			actions = append(actions, a)
		}
		return true
	})
	return text, actions
}

const actionMarker = "[ACTIONS]"

// DeltaFilter passes streamed reply text through up to the action block,
// holding back anything that may be the start of its marker.
type DeltaFilter struct {
	buf     strings.Builder
	printed int
	hidden  bool
}

// Push adds a fragment and returns the newly visible text.
func (f *DeltaFilter) Push(delta string) string {
	if f.hidden {
		return ""
	}
	f.buf.WriteString(delta)
	s := f.buf.String()

	end := len(s)
	if i := strings.Index(s, actionMarker); i >= 0 {
		end = i
		f.hidden = true
	} else {
		for k := len(actionMarker) - 1; k > 0; k-- {
			if strings.HasSuffix(s, actionMarker[:k]) {
				end = len(s) - k
				break
			}
		}
	}
	if end <= f.printed {
		return ""
	}
	out := s[f.printed:end]
	f.printed = end
	return out
}

// Flush returns held-back text once the stream ended without an action
// block.
func (f *DeltaFilter) Flush() string {
	if f.hidden {
		return ""
	}
	s := f.buf.String()
	out := s[f.printed:]
	f.printed = len(s)
	return out
}
