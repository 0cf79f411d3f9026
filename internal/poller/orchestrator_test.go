package poller_test

import (
	"context"
	"errors"
	"testing"

	"ideagraph/internal/poller"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakePoller struct {
	name  string
	calls int
	err   error
}

func (f *fakePoller) Name() string { return f.name }
func (f *fakePoller) PollOnce(context.Context) error {
	f.calls++
	return f.err
}

func TestPollAllOnceRunsEveryPollerEvenIfOneFails(t *testing.T) {
	ok := &fakePoller{name: "mail"}
	failing := &fakePoller{name: "teams", err: errors.New("boom")}

	o := poller.NewOrchestrator(0, zap.NewNop(), ok, failing)
	o.PollAllOnce(context.Background())

	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)
}
