package resolwe

import (
	"context"
	"fmt"

	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
	"resolwe-go/sdk/pkg/schema"
)

// ProcessResources overrides the compute resources requested for one run.
// Zero values leave the process defaults in place.
type ProcessResources struct {
	Cores   int `json:"cores,omitempty"`
	Memory  int `json:"memory,omitempty"`
	Storage int `json:"storage,omitempty"`
}

// InvokeOptions is the optional metadata attached to a new data object.
type InvokeOptions struct {
	Name string
	// Descriptor and DescriptorSchema must be given together.
	Descriptor       map[string]any
	DescriptorSchema string
	Collection       int
	Tags             []string
	Resources        *ProcessResources
}

type slugRef struct {
	Slug string `json:"slug"`
}

type idRef struct {
	ID int `json:"id"`
}

type createDataRequest struct {
	Process          slugRef           `json:"process"`
	Input            map[string]any    `json:"input"`
	Name             string            `json:"name,omitempty"`
	Descriptor       map[string]any    `json:"descriptor,omitempty"`
	DescriptorSchema *slugRef          `json:"descriptor_schema,omitempty"`
	Collection       *idRef            `json:"collection,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Resources        *ProcessResources `json:"process_resources,omitempty"`
}

type getOrCreateRequest struct {
	Process string         `json:"process"`
	Input   map[string]any `json:"input"`
}

const actionGetOrCreate = "get_or_create"

// Invoker submits process runs.
type Invoker struct {
	client *Client
}

// NewInvoker returns an Invoker that talks through c.
func NewInvoker(c *Client) *Invoker {
	return &Invoker{client: c}
}

// Process resolves slug to the latest version of its process definition.
func (i *Invoker) Process(ctx context.Context, slug string) (*models.Process, error) {
	if slug == "" {
		return nil, &errdefs.ValidationError{Path: "process", Reason: "process slug is empty"}
	}
	return i.client.Processes.Get(ctx, Filter{
		"slug":     slug,
		"ordering": "-version",
		"limit":    "1",
	})
}

// Invoke resolves slug, validates input against the process input schema
// and creates one data object. Metadata and schema failures are returned as
// *errdefs.ValidationError before anything is sent. The creation request is
// never retried: each successful call creates a new data object.
func (i *Invoker) Invoke(ctx context.Context, slug string, input map[string]any, opts InvokeOptions) (*Handle, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	process, err := i.Process(ctx, slug)
	if err != nil {
		return nil, err
	}

	normalized, err := schema.Validate(process.InputSchema, input)
	if err != nil {
		return nil, err
	}

	req := createDataRequest{
		Process:    slugRef{Slug: process.Slug},
		Input:      normalized,
		Name:       opts.Name,
		Descriptor: opts.Descriptor,
		Tags:       opts.Tags,
		Resources:  opts.Resources,
	}
	if opts.DescriptorSchema != "" {
		req.DescriptorSchema = &slugRef{Slug: opts.DescriptorSchema}
	}
	if opts.Collection > 0 {
		req.Collection = &idRef{ID: opts.Collection}
	}

	created, err := i.client.Data.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if created.ID <= 0 {
		return nil, fmt.Errorf("failed to create data: server returned no identifier")
	}

	i.client.logger.Info("data object created", "id", created.ID, "process", process.Slug, "status", created.Status)
	return NewHandle(created), nil
}

// GetOrRun is Invoke with server-side deduplication: when a data object of
// the same process with identical normalized input already exists, the
// server returns it instead of creating a new one. Input is validated the
// same way and nothing is sent on failure.
func (i *Invoker) GetOrRun(ctx context.Context, slug string, input map[string]any) (*Handle, error) {
	process, err := i.Process(ctx, slug)
	if err != nil {
		return nil, err
	}

	normalized, err := schema.Validate(process.InputSchema, input)
	if err != nil {
		return nil, err
	}

	data, err := i.client.Data.post(ctx, endpointData+"/"+actionGetOrCreate, getOrCreateRequest{
		Process: process.Slug,
		Input:   normalized,
	})
	if err != nil {
		return nil, err
	}
	if data.ID <= 0 {
		return nil, fmt.Errorf("failed to get or create data: server returned no identifier")
	}

	i.client.logger.Info("data object resolved", "id", data.ID, "process", process.Slug, "status", data.Status)
	return NewHandle(data), nil
}

func (o InvokeOptions) validate() error {
	if (o.Descriptor != nil) != (o.DescriptorSchema != "") {
		return &errdefs.ValidationError{Path: "descriptor", Reason: "descriptor and descriptor schema must be given together"}
	}
	if o.Collection < 0 {
		return &errdefs.ValidationError{Path: "collection", Reason: "collection id must be positive"}
	}
	if r := o.Resources; r != nil {
		switch {
		case r.Cores < 0:
			return &errdefs.ValidationError{Path: "process_resources.cores", Reason: "must not be negative"}
		case r.Memory < 0:
			return &errdefs.ValidationError{Path: "process_resources.memory", Reason: "must not be negative"}
		case r.Storage < 0:
			return &errdefs.ValidationError{Path: "process_resources.storage", Reason: "must not be negative"}
		}
	}
	return nil
}
