package core

import (
	"context"
	"testing"
)

type fakeSource struct {
	name   string
	closed bool
	config *fakeConfig
}

type fakeConfig struct {
	Owner string `toml:"owner"`
}

func (c *fakeConfig) Validate() error { return nil }

func (f *fakeSource) Type() string    { return "fake" }
func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) OwnerID() string { return f.config.Owner }
func (f *fakeSource) FetchFigures(ctx context.Context, ch chan<- Figure) error {
	return nil
}
func (f *fakeSource) ConfigType() interface{} { return &fakeConfig{} }
func (f *fakeSource) SetConfig(config interface{}) error {
	f.config = config.(*fakeConfig)
	return nil
}
func (f *fakeSource) GetConfig() interface{} { return f.config }
func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}
func (f *fakeSource) Factory(instanceName string, config interface{}) (Source, error) {
	cfg, _ := config.(*fakeConfig)
	if cfg == nil {
		cfg = &fakeConfig{}
	}
	return &fakeSource{name: instanceName, config: cfg}, nil
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterPrototype("fake", &fakeSource{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}

	if err := r.CreateSource("my_fake", "fake", &fakeConfig{Owner: "u1"}); err != nil {
		t.Fatalf("creating source: %v", err)
	}

	src, err := r.GetSource("my_fake")
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	if src.Name() != "my_fake" {
		t.Errorf("expected instance name my_fake, got %s", src.Name())
	}
	if src.OwnerID() != "u1" {
		t.Errorf("expected owner u1, got %s", src.OwnerID())
	}
}

func TestRegistryUnknownPrototype(t *testing.T) {
	r := NewRegistry()
	if err := r.CreateSource("x", "nope", nil); err == nil {
		t.Fatal("expected error for unknown prototype")
	}
}

func TestRegistryReplaceClosesOld(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterPrototype("fake", &fakeSource{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}
	if err := r.CreateSource("inst", "fake", nil); err != nil {
		t.Fatalf("creating source: %v", err)
	}
	first, _ := r.GetSource("inst")
	if err := r.CreateSource("inst", "fake", nil); err != nil {
		t.Fatalf("replacing source: %v", err)
	}
	if !first.(*fakeSource).closed {
		t.Error("expected replaced source to be closed")
	}
}

func TestFigureValidate(t *testing.T) {
	tests := []struct {
		name    string
		figure  Figure
		wantErr error
	}{
		{
			name:   "valid",
			figure: Figure{OwnerID: "u1", Manufacturer: "Good Smile Company", Name: "Hatsune Miku"},
		},
		{
			name:    "missing manufacturer",
			figure:  Figure{OwnerID: "u1", Name: "Hatsune Miku"},
			wantErr: ErrMissingManufacturer,
		},
		{
			name:    "whitespace name",
			figure:  Figure{OwnerID: "u1", Manufacturer: "GSC", Name: "   "},
			wantErr: ErrMissingName,
		},
		{
			name:    "missing owner",
			figure:  Figure{Manufacturer: "GSC", Name: "Megumin"},
			wantErr: ErrMissingOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.figure.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
