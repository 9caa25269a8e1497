package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/assistant"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
)

var (
	chatModel    string
	chatView     string
	chatTemplate string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the Server Builder assistant",
	Long: `Start an interactive conversation with the assistant. Type /reset to
start over and /exit (or Ctrl-D) to leave.

Examples:
  serverbuilder chat
  serverbuilder chat --view results --template guild.json`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model to use (provider/model format)")
	chatCmd.Flags().StringVar(&chatView, "view", "home", "Where you are in the app (home|results|toolkit|gallery|history)")
	chatCmd.Flags().StringVarP(&chatTemplate, "template", "t", "", "Template to talk about")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, reg, err := loadProviders(ctx)
	if err != nil {
		return err
	}
	p, model, err := resolveSmall(appConfig, reg, chatModel)
	if err != nil {
		return err
	}

	chatCtx := assistant.Context{View: chatView}
	if chatTemplate != "" {
		t, err := readTemplate(chatTemplate, cmd.InOrStdin())
		if err != nil {
			return err
		}
		chatCtx.ServerName = t.Name
	}

	color.NoColor = color.NoColor || noColor
	bot := color.New(color.FgCyan)
	dim := color.New(color.FgHiBlack)

	topics := toolkit.New(p, toolkit.WithModel(model.ID))
	conv := assistant.New(p, chatCtx, assistant.WithModel(model.ID), assistant.WithTopics(topics))
	out := cmd.OutOrStdout()

	greet := func() {
		history := conv.History()
		fmt.Fprintln(out, bot.Sprint(history[len(history)-1].Text))
	}
	greet()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			conv.Reset()
			greet()
			continue
		}

		var filter assistant.DeltaFilter
		msg, err := conv.Send(ctx, line, func(delta string) {
			fmt.Fprint(out, bot.Sprint(filter.Push(delta)))
		})
		if ctx.Err() != nil {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			fmt.Fprint(out, bot.Sprint(msg.Text))
		} else {
			fmt.Fprint(out, bot.Sprint(filter.Flush()))
		}
		fmt.Fprintln(out)

		for _, a := range msg.Actions {
			fmt.Fprintln(out, dim.Sprintf("  → %s (%s)", a.Label, a.ActionID))
		}
		if topic := conv.Topic(); topic != assistant.NewChatTopic {
			fmt.Fprintln(out, dim.Sprintf("[%s]", topic))
		}
	}
}
