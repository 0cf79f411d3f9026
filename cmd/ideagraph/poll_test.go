package main

import (
	"context"
	"testing"

	"ideagraph/internal/poller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoller struct{ name string }

func (f *fakePoller) Name() string                   { return f.name }
func (f *fakePoller) PollOnce(context.Context) error { return nil }

func TestSelectPollers_AllEnabled(t *testing.T) {
	a := &app{pollers: map[string]poller.Poller{
		"mail":   &fakePoller{name: "mail"},
		"github": &fakePoller{name: "github"},
	}}

	got, err := selectPollers(a, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSelectPollers_BySource(t *testing.T) {
	a := &app{pollers: map[string]poller.Poller{
		"mail":  &fakePoller{name: "mail"},
		"teams": &fakePoller{name: "teams:general"},
	}}

	got, err := selectPollers(a, "teams")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "teams:general", got[0].Name(), "lookup is by logical source kind, not Poller.Name()")
}

func TestSelectPollers_UnknownSourceIsConfigError(t *testing.T) {
	a := &app{pollers: map[string]poller.Poller{"mail": &fakePoller{name: "mail"}}}

	_, err := selectPollers(a, "teams")
	assert.Error(t, err)
}

func TestSelectPollers_NoneEnabled(t *testing.T) {
	a := &app{pollers: map[string]poller.Poller{}}

	_, err := selectPollers(a, "")
	assert.Error(t, err)
}
