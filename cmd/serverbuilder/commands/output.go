package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/lint"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/render"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/session"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// errLintFailed is returned when --lint finds errors.
var errLintFailed = errors.New("template has lint errors")

// outputFlags are shared by the commands that produce a template.
type outputFlags struct {
	format string
	out    string
	lint   bool
	quiet  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "text", "Output format (text|json|yaml)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write the final template to a file (.json, .yaml)")
	cmd.Flags().BoolVar(&o.lint, "lint", false, "Lint the final template")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Do not print the template while it streams")
}

func (o *outputFlags) renderer(cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return render.New(render.Config{
		Format:  format,
		NoColor: noColor,
		Quiet:   o.quiet,
		Out:     cmd.OutOrStdout(),
		Err:     cmd.ErrOrStderr(),
	}), nil
}

// finish prints the result of a run. A truncated or cancelled run still
// prints what it has; only source failures and lint errors fail the command.
func (o *outputFlags) finish(r *render.Renderer, res *session.Result, runErr error) error {
	if res == nil {
		return runErr
	}
	r.Result(res)
	if err := o.emit(r, res.Template); err != nil {
		return err
	}
	if res.Outcome == session.OutcomeFailed {
		return runErr
	}
	return nil
}

// emit writes t to --out or the renderer, then lints it when asked.
func (o *outputFlags) emit(r *render.Renderer, t *types.ServerTemplate) error {
	if o.out != "" {
		if err := writeTemplateFile(o.out, t); err != nil {
			return err
		}
	} else if err := r.Template(t); err != nil {
		return err
	}

	if o.lint {
		findings := lint.Check(t)
		r.Findings(findings)
		if lint.HasErrors(findings) {
			return errLintFailed
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// writeTemplateFile writes t as YAML or JSON depending on the extension.
func writeTemplateFile(path string, t *types.ServerTemplate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if isYAML(path) {
		err = render.WriteYAML(f, t)
	} else {
		err = render.WriteJSON(f, t)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// readTemplate loads a template from a JSON or YAML file, or from r when
// path is "-".
func readTemplate(path string, r io.Reader) (*types.ServerTemplate, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	t := types.NewServerTemplate()
	if isYAML(path) {
		err = yaml.Unmarshal(data, t)
	} else if err = json.Unmarshal(data, t); err != nil && path == "-" {
		err = yaml.Unmarshal(data, t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return t, nil
}
