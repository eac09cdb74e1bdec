package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/loader"
	"github.com/goliatone/go-formflow/pkg/multistep"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/prompt"
)

type app struct {
	stdout   io.Writer
	stderr   io.Writer
	logLevel string
	logger   *slog.Logger
	driver   prompt.Driver
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: slog.Default()}
	return a.command()
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "formflow",
		Usage:   "Inspect, run and import schema-driven forms",
		Version: version,
		Writer:  a.stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "warn",
				Sources:     cli.EnvVars("FORMFLOW_LOG_LEVEL"),
				Destination: &a.logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := parseLevel(a.logLevel)
			if err != nil {
				return ctx, err
			}
			a.logger = slog.New(clog.New(
				clog.WithWriter(a.stderr),
				clog.WithLevel(level),
				clog.WithColor(false),
			))
			return ctx, nil
		},
		Commands: []*cli.Command{
			a.cmdInspect(),
			a.cmdRun(),
			a.cmdImport(),
		},
	}
}

func (a *app) cmdInspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the derived form data of a document as JSON",
		ArgsUsage: "<document>",
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := a.document(c)
			if err != nil {
				return err
			}
			reg := loader.NewRegistry()
			if doc.IsMultiStep() {
				m, err := doc.NewMachine(ctx, reg, multistep.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer m.Close()
				return a.writeJSON(map[string]any{
					"title":    doc.Title,
					"current":  m.CurrentIndex(),
					"total":    m.TotalSteps(),
					"progress": m.ProgressPercentage(),
					"data":     m.MultiStepFormData(),
				})
			}
			f, err := doc.NewForm(ctx, reg, form.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return a.writeJSON(map[string]any{
				"title":        doc.Title,
				"formData":     f.FormData(),
				"computedData": f.ComputedData(),
				"visible":      f.VisibleFields(),
			})
		},
	}
}

func (a *app) cmdRun() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Fill a document interactively and print the result as JSON",
		ArgsUsage: "<document>",
		Action: func(ctx context.Context, c *cli.Command) error {
			doc, err := a.document(c)
			if err != nil {
				return err
			}
			reg := loader.NewRegistry()
			driver := a.driver
			if driver == nil {
				driver = prompt.NewSurveyDriver(a.stdout)
			}
			runner := prompt.NewRunner(driver, prompt.WithLogger(a.logger))

			if doc.IsMultiStep() {
				m, err := doc.NewMachine(ctx, reg, multistep.WithLogger(a.logger))
				if err != nil {
					return err
				}
				defer m.Close()
				out, err := runner.RunMachine(ctx, m)
				if err != nil {
					return err
				}
				return a.writeJSON(out)
			}
			f, err := doc.NewForm(ctx, reg, form.WithLogger(a.logger))
			if err != nil {
				return err
			}
			out, err := runner.RunForm(ctx, f)
			if err != nil {
				return err
			}
			return a.writeJSON(map[string]any{
				"formData":     out,
				"computedData": f.ComputedData(),
			})
		},
	}
}

func (a *app) cmdImport() *cli.Command {
	var component string
	var external bool
	return &cli.Command{
		Name:      "import",
		Usage:     "Convert an OpenAPI component schema into a YAML form document",
		ArgsUsage: "<openapi file or url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "component",
				Usage:       "component schema name under components.schemas",
				Required:    true,
				Destination: &component,
			},
			&cli.BoolFlag{
				Name:        "external-refs",
				Usage:       "resolve external $ref entries",
				Destination: &external,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			location := strings.TrimSpace(c.Args().First())
			if location == "" {
				return goerr.New("missing OpenAPI document argument")
			}
			src, err := openapi.SourceFor(location)
			if err != nil {
				return err
			}
			data, err := openapi.Read(ctx, src, nil)
			if err != nil {
				return err
			}
			var opts []openapi.Option
			if external {
				opts = append(opts, openapi.WithExternalRefs())
			}
			doc, err := openapi.DocumentFromComponent(ctx, data, component, opts...)
			if err != nil {
				return err
			}
			a.logger.Debug("imported component", "component", component, "fields", len(doc.Fields))
			out, err := loader.EncodeYAML(doc)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
}

func (a *app) document(c *cli.Command) (loader.Document, error) {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return loader.Document{}, goerr.New("missing document argument")
	}
	return loader.LoadFile(path)
}

func (a *app) writeJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	out = append(out, '\n')
	_, err = a.stdout.Write(out)
	return err
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return level, goerr.Wrap(err, "invalid log level", goerr.V("level", raw))
	}
	return level, nil
}
