package provider

import (
	"context"
	"testing"

	"access-service/internal/auth"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://example.com/auth?state=" + state
}

func (f *fakeProvider) ExchangeCode(context.Context, string, string) (*auth.Identity, error) {
	return &auth.Identity{Provider: f.name}, nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(&fakeProvider{name: "google"})

	p, err := r.Get("google")
	if err != nil {
		t.Fatalf("Get(google) error = %v", err)
	}
	if p.Name() != "google" {
		t.Errorf("Name() = %q, want google", p.Name())
	}

	if _, err := r.Get("linkedin"); err == nil {
		t.Error("Get(linkedin) error = nil, want error")
	}
}
