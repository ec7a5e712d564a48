package locator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/platform"
	"github.com/mediar-ai/terminator/internal/selector"
)

// fakeEngine simulates an element that "appears" after a fixed number of
// transient-not-found attempts, exercising the Locator's retry loop without
// a real Platform Adapter.
type fakeEngine struct {
	attempts      int32
	succeedAfter  int32
	result        []*platform.Element
	alwaysErr     error
}

func (f *fakeEngine) FindElements(ctx context.Context, sel selector.Selector, root *platform.Element, timeout, depth int) ([]*platform.Element, error) {
	n := atomic.AddInt32(&f.attempts, 1)
	if f.alwaysErr != nil {
		return nil, f.alwaysErr
	}
	if n < f.succeedAfter {
		return nil, coreerrors.ElementNotFound("not yet", nil)
	}
	return f.result, nil
}

func TestFirstRetriesUntilElementAppears(t *testing.T) {
	engine := &fakeEngine{succeedAfter: 3, result: []*platform.Element{{}}}
	l := New(engine, selector.Role("Button", "OK"), nil)

	el, err := l.First(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, el)
	assert.GreaterOrEqual(t, engine.attempts, int32(3))
}

func TestFirstTimesOutToElementNotFound(t *testing.T) {
	engine := &fakeEngine{succeedAfter: 1000}
	l := New(engine, selector.Role("Button", "Never"), nil)

	_, err := l.First(context.Background(), 150*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindElementNotFound, coreerrors.KindOf(err))
}

func TestFirstDoesNotRetryPermanentErrors(t *testing.T) {
	engine := &fakeEngine{alwaysErr: coreerrors.InvalidSelector("bad selector", nil)}
	l := New(engine, selector.Role("Button", "OK"), nil)

	_, err := l.First(context.Background(), 1*time.Second)
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidSelector, coreerrors.KindOf(err))
	assert.Equal(t, int32(1), engine.attempts)
}

func TestAllReturnsEmptyWithoutErrorOnTimeout(t *testing.T) {
	engine := &fakeEngine{succeedAfter: 1000}
	l := New(engine, selector.Role("Button", "Never"), nil)

	matches, err := l.All(context.Background(), 120*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWithinScopesToGivenRoot(t *testing.T) {
	engine := &fakeEngine{succeedAfter: 1, result: []*platform.Element{{}}}
	l := New(engine, selector.Role("Button", "OK"), nil)
	root := &platform.Element{}
	scoped := l.Within(root)
	assert.NotSame(t, l, scoped)

	_, err := scoped.First(context.Background(), time.Second)
	require.NoError(t, err)
}

func TestFirstRespectsContextCancellation(t *testing.T) {
	engine := &fakeEngine{succeedAfter: 1000}
	l := New(engine, selector.Role("Button", "Never"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := l.First(ctx, 5*time.Second)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCancelled(err))
}
