package toolkit

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ExtractJSON finds the JSON object in a model reply. Models often wrap
// JSON in markdown fences or add a sentence around it, so everything outside
// the outermost braces is ignored.
func ExtractJSON(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = rest
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return gjson.Result{}, false
	}
	text = text[start : end+1]
	if !gjson.Valid(text) {
		return gjson.Result{}, false
	}
	return gjson.Parse(text), true
}

func parseSteps(doc gjson.Result) []types.TutorialStep {
	var steps []types.TutorialStep
	doc.Get("steps").ForEach(func(_, v gjson.Result) bool {
		step := types.TutorialStep{
			Title:       v.Get("title").String(),
			Description: v.Get("description").String(),
		}
		if step.Title != "" || step.Description != "" {
			steps = append(steps, step)
		}
		return true
	})
	return steps
}

func parseBots(doc gjson.Result) []types.BotRecommendation {
	bots := []types.BotRecommendation{}
	doc.Get("bots").ForEach(func(_, v gjson.Result) bool {
		bot := types.BotRecommendation{
			Name:        v.Get("name").String(),
			Purpose:     v.Get("purpose").String(),
			Description: v.Get("description").String(),
			KeyFeatures: []string{},
			InviteLink:  v.Get("inviteLink").String(),
		}
		v.Get("keyFeatures").ForEach(func(_, f gjson.Result) bool {
			bot.KeyFeatures = append(bot.KeyFeatures, f.String())
			return true
		})
		if bot.Name != "" {
			bots = append(bots, bot)
		}
		return true
	})
	return bots
}

func parseEmbed(doc gjson.Result) types.Embed {
	embed := types.Embed{
		Title:       doc.Get("title").String(),
		Description: doc.Get("description").String(),
		Color:       int(doc.Get("color").Int()),
		Fields:      []types.EmbedField{},
	}
	doc.Get("fields").ForEach(func(_, v gjson.Result) bool {
		embed.Fields = append(embed.Fields, types.EmbedField{
			Name:   v.Get("name").String(),
			Value:  v.Get("value").String(),
			Inline: v.Get("inline").Bool(),
		})
		return true
	})
	if url := doc.Get("thumbnail.url").String(); url != "" {
		embed.Thumbnail = &types.EmbedImage{URL: url}
	}
	if url := doc.Get("image.url").String(); url != "" {
		embed.Image = &types.EmbedImage{URL: url}
	}
	return embed
}
