package taski

import (
	"context"
	"strings"
	"testing"
)

type prodImplClass struct{}

func (prodImplClass) Name() string { return "ProdImpl" }
func (prodImplClass) New() Task    { return &prodImpl{} }

type prodImpl struct {
	Endpoint string
}

func (p *prodImpl) Run(rc *RunContext) error {
	p.Endpoint = "prod.example.com"
	return nil
}

type deploySection struct {
	Section
	Endpoint string
}

func (d *deploySection) Select(rc *RunContext) (Class, Args, error) {
	return prodImplClass{}, nil, nil
}

func (d *deploySection) Run(rc *RunContext) error {
	return d.Section.Run(d, rc)
}

type deploySectionClass struct{}

func (deploySectionClass) Name() string { return "DeploySection" }
func (deploySectionClass) New() Task    { return &deploySection{} }

type noImplSection struct {
	Section
}

func (d *noImplSection) Select(rc *RunContext) (Class, Args, error) {
	return nil, nil, nil
}

func (d *noImplSection) Run(rc *RunContext) error {
	return d.Section.Run(d, rc)
}

type noImplSectionClass struct{}

func (noImplSectionClass) Name() string { return "NoImplSection" }
func (noImplSectionClass) New() Task    { return &noImplSection{} }

func TestSectionFailsWhenSelectReturnsNoImplementation(t *testing.T) {
	eng := NewEngine(2)
	eng.SetProgressDisplay("none")
	_, err := eng.Run(context.Background(), noImplSectionClass{}, nil)
	if err == nil {
		t.Fatalf("expected Run() to fail when Select returns no implementation")
	}
	if !strings.Contains(err.Error(), "does not have an implementation") {
		t.Fatalf("error = %q, want it to contain %q", err.Error(), "does not have an implementation")
	}
}

type unimplementedSelectorSection struct {
	Section
}

func (d *unimplementedSelectorSection) Run(rc *RunContext) error {
	return d.Section.Run(d, rc)
}

type unimplementedSelectorClass struct{}

func (unimplementedSelectorClass) Name() string { return "UnimplementedSelector" }
func (unimplementedSelectorClass) New() Task    { return &unimplementedSelectorSection{} }

func TestSectionDefaultSelectRequiresOverride(t *testing.T) {
	eng := NewEngine(2)
	eng.SetProgressDisplay("none")
	_, err := eng.Run(context.Background(), unimplementedSelectorClass{}, nil)
	if err == nil {
		t.Fatalf("expected Run() to fail for an embedder that never overrides Select")
	}
	if !strings.Contains(err.Error(), "Subclasses must implement the impl method") {
		t.Fatalf("error = %q, want it to contain %q", err.Error(), "Subclasses must implement the impl method")
	}
}

func TestSectionForwardsSelectedImplementationExports(t *testing.T) {
	eng := NewEngine(2)
	eng.SetProgressDisplay("none")
	result, err := eng.Run(context.Background(), deploySectionClass{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	section := result.(*deploySection)
	if section.Endpoint != "prod.example.com" {
		t.Fatalf("Endpoint = %q, want forwarded from selected impl", section.Endpoint)
	}
}
