package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/config"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/storage"
)

var historyOutput outputFlags

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved templates",
	Long: `List the templates kept from earlier generations, newest first. Only the
most recent 50 are kept.

Examples:
  serverbuilder history
  serverbuilder history show 01JA3
  serverbuilder history show --format yaml --out guild.yaml 01JA3
  serverbuilder history rm 01JA3`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved template",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a saved template",
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryRm,
}

func init() {
	historyOutput.register(historyShowCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRmCmd)
}

func historyStore() *storage.Store {
	return storage.New(config.GetPaths().HistoryDir(), storage.DefaultLimit)
}

// saveCreation keeps res in the history unless the run failed or produced
// nothing. Save errors are reported but never fail the command.
func saveCreation(cmd *cobra.Command, prompt, model string, res *session.Result) {
	if res == nil || res.Outcome == session.OutcomeFailed || res.Units == 0 {
		return
	}
	c := &storage.Creation{
		Prompt:   prompt,
		Model:    model,
		Outcome:  res.Outcome.String(),
		Template: res.Template,
	}
	if err := historyStore().Save(cmd.Context(), c); err != nil {
		logging.Warn().Err(err).Msg("failed to save creation")
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: not saved to history: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved: %s\n", c.ID)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	list, err := historyStore().List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "no saved templates yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSERVER\tOUTCOME\tPROMPT")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.CreatedAt.Local().Format("2006-01-02 15:04"),
			c.Template.Name,
			c.Outcome,
			truncate(c.Prompt, 48),
		)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	c, err := historyStore().Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	r, err := historyOutput.renderer(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n", c.Prompt, c.CreatedAt.Local().Format("2006-01-02 15:04"))
	return historyOutput.emit(r, c.Template)
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	store := historyStore()
	c, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := store.Delete(cmd.Context(), c.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", c.ID, c.Template.Name)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
