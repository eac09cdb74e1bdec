package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/prompt"
)

const contactDoc = `
title: Contact
fields:
  - id: name
    type: TextInput
    value: "  Ada "
    onChange: trim
    computed: upper
  - id: topic
    type: SelectInput
    value: sales
    options:
      - {label: Sales, value: sales}
      - {label: Support, value: support}
  - id: ticket
    type: TextInput
    condition: "topic == 'support'"
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestInspectForm(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := writeFixture(t, "contact.yaml", contactDoc)
	if err := newApp(&stdout, &stderr).Run(context.Background(), []string{"formflow", "inspect", path}); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var got struct {
		Title        string         `json:"title"`
		FormData     map[string]any `json:"formData"`
		ComputedData map[string]any `json:"computedData"`
		Visible      []string       `json:"visible"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if got.Title != "Contact" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if diff := cmp.Diff(map[string]any{"name": "Ada", "topic": "sales"}, got.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"name": "ADA"}, got.ComputedData); diff != "" {
		t.Fatalf("computed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "topic"}, got.Visible); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectRequiresDocument(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := newApp(&stdout, &stderr).Run(context.Background(), []string{"formflow", "inspect"}); err == nil {
		t.Fatalf("expected missing argument error")
	}
	err := newApp(&stdout, &stderr).Run(context.Background(), []string{"formflow", "--log-level", "loud", "inspect", "x.yaml"})
	if err == nil {
		t.Fatalf("expected invalid log level error")
	}
}

type answerDriver struct {
	inputs []string
}

func (d *answerDriver) Input(context.Context, prompt.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", prompt.ErrAborted
	}
	val := d.inputs[0]
	d.inputs = d.inputs[1:]
	return val, nil
}

func (d *answerDriver) Password(ctx context.Context, cfg prompt.InputConfig) (string, error) {
	return d.Input(ctx, cfg)
}

func (d *answerDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	return false, nil
}

func (d *answerDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	return 1, nil
}

func (d *answerDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return nil, nil
}

func (d *answerDriver) TextArea(ctx context.Context, cfg prompt.TextAreaConfig) (string, error) {
	return d.Input(ctx, prompt.InputConfig{Message: cfg.Message})
}

func (d *answerDriver) Info(context.Context, string) error {
	return nil
}

func TestRunForm(t *testing.T) {
	var stdout, stderr bytes.Buffer
	a := &app{
		stdout: &stdout,
		stderr: &stderr,
		logger: slog.Default(),
		driver: &answerDriver{inputs: []string{" grace ", "T-42"}},
	}
	path := writeFixture(t, "contact.yaml", contactDoc)
	if err := a.command().Run(context.Background(), []string{"formflow", "run", path}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var got struct {
		FormData map[string]any `json:"formData"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	want := map[string]any{"name": "grace", "topic": "support", "ticket": "T-42"}
	if diff := cmp.Diff(want, got.FormData); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
}

func TestImportComponent(t *testing.T) {
	const api = `
openapi: 3.0.3
info: {title: Contact API, version: "1"}
paths: {}
components:
  schemas:
    Contact:
      type: object
      required: [email]
      properties:
        email: {type: string, format: email}
        topic: {type: string, enum: [sales, support]}
`
	var stdout, stderr bytes.Buffer
	path := writeFixture(t, "openapi.yaml", api)
	args := []string{"formflow", "import", "--component", "Contact", path}
	if err := newApp(&stdout, &stderr).Run(context.Background(), args); err != nil {
		t.Fatalf("import: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"title: Contact", "id: email", "type: EmailInput", "required: true", "type: SelectInput"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
