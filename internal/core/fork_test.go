package core

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeGH records gh invocations and answers from a table keyed by subcommand.
type fakeGH struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeGH) run(_ context.Context, _ time.Duration, name string, args ...string) (string, error) {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	key := strings.Join(args[:2], " ")
	return f.outputs[key], f.errs[key]
}

func newFakeGHForker(gh *fakeGH) *GHForker {
	return &GHForker{timeout: time.Second, run: gh.run}
}

func TestGHForker_FindFork(t *testing.T) {
	gh := &fakeGH{outputs: map[string]string{"repo view": "https://github.com/me/tool\n"}}

	url, err := newFakeGHForker(gh).FindFork(context.Background(), "me", "tool")
	if err != nil {
		t.Fatalf("FindFork: %v", err)
	}
	if url != "https://github.com/me/tool" {
		t.Errorf("url = %q", url)
	}
	if gh.calls[0] != "gh repo view me/tool --json url -q .url" {
		t.Errorf("call = %q", gh.calls[0])
	}
}

func TestGHForker_FindFork_NotFound(t *testing.T) {
	gh := &fakeGH{
		outputs: map[string]string{"repo view": "GraphQL: Could not resolve to a Repository"},
		errs:    map[string]error{"repo view": errors.New("exit status 1")},
	}

	_, err := newFakeGHForker(gh).FindFork(context.Background(), "me", "tool")
	if !errors.Is(err, ErrForkNotFound) {
		t.Errorf("err = %v, want ErrForkNotFound", err)
	}
}

func TestGHForker_FindFork_MissingCLI(t *testing.T) {
	gh := &fakeGH{errs: map[string]error{"repo view": &exec.Error{Name: "gh", Err: exec.ErrNotFound}}}

	_, err := newFakeGHForker(gh).FindFork(context.Background(), "me", "tool")
	var forkErr *ForkError
	if !errors.As(err, &forkErr) {
		t.Fatalf("err = %v, want ForkError", err)
	}
	if forkErr.Kind != ForkErrCLIMissing {
		t.Errorf("Kind = %v, want ForkErrCLIMissing", forkErr.Kind)
	}
	if errors.Is(err, ErrForkNotFound) {
		t.Error("a missing CLI is not a missing fork")
	}
}

func TestGHForker_CreateFork(t *testing.T) {
	gh := &fakeGH{}

	url, err := newFakeGHForker(gh).CreateFork(context.Background(), RepositoryRef{Owner: "them", Repo: "tool"}, "me")
	if err != nil {
		t.Fatalf("CreateFork: %v", err)
	}
	if url != "https://github.com/me/tool.git" {
		t.Errorf("url = %q", url)
	}
	if gh.calls[0] != "gh repo fork them/tool --clone=false" {
		t.Errorf("call = %q", gh.calls[0])
	}
}

func TestGHForker_CreateFork_Error(t *testing.T) {
	gh := &fakeGH{
		outputs: map[string]string{"repo fork": "\nHTTP 403: forbidden\n"},
		errs:    map[string]error{"repo fork": errors.New("exit status 1")},
	}

	_, err := newFakeGHForker(gh).CreateFork(context.Background(), RepositoryRef{Owner: "them", Repo: "tool"}, "me")
	if err == nil || !strings.Contains(err.Error(), "HTTP 403: forbidden") {
		t.Errorf("err = %v", err)
	}
	var forkErr *ForkError
	if !errors.As(err, &forkErr) || forkErr.Kind != ForkErrAuth {
		t.Errorf("err = %#v, want ForkErrAuth", err)
	}
}

// stubForker is a Forker with canned answers.
type stubForker struct {
	findURL   string
	findErr   error
	createURL string
	createErr error

	findCalls   int
	createCalls int
}

func (s *stubForker) FindFork(context.Context, string, string) (string, error) {
	s.findCalls++
	return s.findURL, s.findErr
}

func (s *stubForker) CreateFork(context.Context, RepositoryRef, string) (string, error) {
	s.createCalls++
	return s.createURL, s.createErr
}

func TestResolveOrigin(t *testing.T) {
	ref := RepositoryRef{Owner: "them", Repo: "tool"}
	upstream := "https://github.com/them/tool.git"

	tests := []struct {
		name         string
		ref          RepositoryRef
		identity     string
		forker       *stubForker
		wantOrigin   string
		wantUpstream string
		wantErr      bool
		wantCreate   int
	}{
		{
			name:       "owned repository",
			ref:        RepositoryRef{Owner: "Me", Repo: "tool"},
			identity:   "me",
			forker:     &stubForker{},
			wantOrigin: "https://github.com/Me/tool.git",
		},
		{
			name:    "no identity",
			ref:     ref,
			forker:  &stubForker{},
			wantErr: true,
		},
		{
			name:         "existing fork",
			ref:          ref,
			identity:     "me",
			forker:       &stubForker{findURL: "https://github.com/me/tool"},
			wantOrigin:   "https://github.com/me/tool",
			wantUpstream: upstream,
		},
		{
			name:         "fork created",
			ref:          ref,
			identity:     "me",
			forker:       &stubForker{findErr: ErrForkNotFound, createURL: "https://github.com/me/tool.git"},
			wantOrigin:   "https://github.com/me/tool.git",
			wantUpstream: upstream,
			wantCreate:   1,
		},
		{
			name:       "fork creation fails",
			ref:        ref,
			identity:   "me",
			forker:     &stubForker{findErr: ErrForkNotFound, createErr: errors.New("forbidden")},
			wantErr:    true,
			wantCreate: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, up, err := resolveOrigin(context.Background(), tt.forker, tt.ref, tt.identity)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if origin != tt.wantOrigin {
				t.Errorf("origin = %q, want %q", origin, tt.wantOrigin)
			}
			if up != tt.wantUpstream {
				t.Errorf("upstream = %q, want %q", up, tt.wantUpstream)
			}
			if tt.forker.createCalls != tt.wantCreate {
				t.Errorf("CreateFork calls = %d, want %d", tt.forker.createCalls, tt.wantCreate)
			}
		})
	}
}

func TestResolveOrigin_NoIdentitySkipsForker(t *testing.T) {
	forker := &stubForker{findURL: "https://github.com/me/tool"}
	_, _, err := resolveOrigin(context.Background(), forker, RepositoryRef{Owner: "them", Repo: "tool"}, "")
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("err = %v, want ErrNoIdentity", err)
	}
	if forker.findCalls != 0 || forker.createCalls != 0 {
		t.Errorf("forker called: find=%d create=%d", forker.findCalls, forker.createCalls)
	}
}

func TestResolveOrigin_NilForker(t *testing.T) {
	_, _, err := resolveOrigin(context.Background(), nil, RepositoryRef{Owner: "them", Repo: "tool"}, "me")
	if err == nil {
		t.Fatal("expected error without a fork provider")
	}
}
