package openapi

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/loader"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/options"
)

const signupAPI = `
openapi: 3.0.3
info:
  title: Signup API
  version: "1.0"
paths: {}
components:
  schemas:
    Signup:
      type: object
      title: Sign up
      required: [email]
      properties:
        email:
          type: string
          format: email
        age:
          type: integer
        newsletter:
          type: boolean
          default: true
        plan:
          type: string
          enum: [basic, pro_plus]
        address:
          type: object
          properties:
            city:
              type: string
              x-formflow-condition: "plan == 'pro_plus'"
        contacts:
          type: array
          items:
            type: object
            properties:
              fullName:
                type: string
        tags:
          type: array
          items:
            type: string
            enum: [a, b]
        district:
          type: string
          x-formflow-depends-on: [plan]
          x-formflow-endpoint:
            url: https://example.com/districts
            resultsPath: data
        bio:
          type: string
          maxLength: 200
          x-formflow-widget: TextAreaInput
        token:
          type: string
          readOnly: true
          format: password
`

func TestDocumentFromComponent(t *testing.T) {
	doc, err := DocumentFromComponent(context.Background(), []byte(signupAPI), "Signup")
	if err != nil {
		t.Fatalf("DocumentFromComponent: %v", err)
	}
	if doc.Title != "Sign up" {
		t.Fatalf("expected schema title, got %q", doc.Title)
	}

	want := []loader.FieldSpec{
		{ID: "address", Type: "section", Label: "Address"},
		{ID: "address_city", Type: "TextInput", Label: "City", Condition: "plan == 'pro_plus'"},
		{ID: "age", Type: "NumberInput", Label: "Age"},
		{ID: "bio", Type: "TextAreaInput", Label: "Bio", MaxLength: 200},
		{ID: "contacts", Type: "RepeatInput", Label: "Contacts", Children: []loader.FieldSpec{
			{ID: "fullName", Type: "TextInput", Label: "Full Name"},
		}},
		{ID: "district", Type: "TextInput", Label: "District", DependsOn: []string{"plan"}, Endpoint: &options.Endpoint{
			URL:         "https://example.com/districts",
			ResultsPath: "data",
		}},
		{ID: "email", Type: "EmailInput", Label: "Email", Required: true},
		{ID: "newsletter", Type: "CheckboxInput", Label: "Newsletter", Value: true},
		{ID: "plan", Type: "SelectInput", Label: "Plan", Options: []model.Option{
			{Label: "Basic", Value: "basic"},
			{Label: "Pro plus", Value: "pro_plus"},
		}},
		{ID: "tags", Type: "SelectInput", Label: "Tags", Multiple: true, Options: []model.Option{
			{Label: "A", Value: "a"},
			{Label: "B", Value: "b"},
		}},
		{ID: "token", Type: "PasswordInput", Label: "Token", Disabled: true},
	}
	if diff := cmp.Diff(want, doc.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentFromComponentErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := DocumentFromComponent(ctx, nil, "Signup"); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := DocumentFromComponent(ctx, []byte("openapi: [broken"), "Signup"); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := DocumentFromComponent(ctx, []byte(signupAPI), "Missing"); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := DocumentFromComponent(cancelled, []byte(signupAPI), "Signup"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSchemaFromComponent(t *testing.T) {
	schema, err := SchemaFromComponent(context.Background(), []byte(signupAPI), "Signup")
	if err != nil {
		t.Fatalf("SchemaFromComponent: %v", err)
	}
	email, ok := schema.Field("email")
	if !ok || email.Type != model.KindEmail || !email.Required {
		t.Fatalf("unexpected email field %+v", email)
	}
	district, _ := schema.Field("district")
	if district.OptionsLoader == nil {
		t.Fatalf("expected endpoint loader bound")
	}
	city, _ := schema.Field("address_city")
	if city.Visible(model.FormData{"plan": "basic"}, nil) {
		t.Fatalf("expected city hidden on the basic plan")
	}
}

func TestLoaderExtensionUsesRegistry(t *testing.T) {
	const api = `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Pick:
      type: object
      properties:
        color:
          type: string
          x-formflow-widget: SelectInput
          x-formflow-loader: colors
`
	ctx := context.Background()
	if _, err := SchemaFromComponent(ctx, []byte(api), "Pick"); !errors.Is(err, loader.ErrUnknownCallback) {
		t.Fatalf("expected ErrUnknownCallback without a registry, got %v", err)
	}

	reg := loader.NewRegistry()
	_ = reg.RegisterLoader("colors", func(context.Context, string, map[string]any) ([]model.Option, error) {
		return []model.Option{{Label: "Red", Value: "red"}}, nil
	})
	schema, err := SchemaFromComponent(ctx, []byte(api), "Pick", WithRegistry(reg))
	if err != nil {
		t.Fatalf("SchemaFromComponent: %v", err)
	}
	color, _ := schema.Field("color")
	if color.Type != model.KindSelect || color.OptionsLoader == nil {
		t.Fatalf("expected select bound to the colors loader, got %+v", color)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"first_name": "First name",
		"fullName":   "Full Name",
		"zip-code":   "Zip code",
		"id":         "Id",
		"":           "",
	}
	for input, want := range tests {
		if got := humanize(input); got != want {
			t.Fatalf("humanize(%q) = %q, want %q", input, got, want)
		}
	}
}
