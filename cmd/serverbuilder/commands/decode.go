package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/tagproto"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

var (
	decodeChunk   int
	decodeMatcher string
	decodeSave    bool
	decodeOutput  outputFlags
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Replay a recorded model transcript",
	Long: `Decode a recorded model transcript into a template without calling a
model. The transcript is read from a file, or from stdin when the argument
is "-" or missing.

Examples:
  serverbuilder decode ~/.local/state/serverbuilder/transcripts/01J....txt
  cat out.txt | serverbuilder decode --chunk 8 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().IntVar(&decodeChunk, "chunk", 0, "Feed the transcript in chunks of this many bytes")
	decodeCmd.Flags().StringVar(&decodeMatcher, "matcher", "scan", "Unit matcher (scan|regex)")
	decodeCmd.Flags().BoolVar(&decodeSave, "save", false, "Add the decoded template to the history")
	decodeOutput.register(decodeCmd)
}

func parseMatcher(name string) (tagproto.Matcher, error) {
	switch name {
	case "", "scan":
		return tagproto.ScanMatcher{}, nil
	case "regex":
		return tagproto.NewRegexMatcher(), nil
	}
	return nil, fmt.Errorf("unknown matcher %q (want scan or regex)", name)
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeChunk < 0 {
		return fmt.Errorf("--chunk must not be negative")
	}
	matcher, err := parseMatcher(decodeMatcher)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	source := "decoded from stdin"
	if len(args) == 1 && args[0] != "-" {
		source = "decoded from " + filepath.Base(args[0])
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer f.Close()
		in = f
	}

	r, err := decodeOutput.renderer(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(session.WithMatcher(matcher))
	res, err := s.Run(ctx, session.FromReader(in, decodeChunk), func(t *types.ServerTemplate) session.Action {
		r.Snapshot(t)
		return session.Continue
	})
	if decodeSave {
		saveCreation(cmd, source, "", res)
	}
	return decodeOutput.finish(r, res, err)
}
