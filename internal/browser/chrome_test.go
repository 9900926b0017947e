package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDisabled(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Enabled: false}, zap.NewNop())
	require.ErrorIs(t, err, ErrBrowserDisabled)
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultNavigationTimeout, c.cfg.NavigationTimeout)
	assert.Nil(t, c.sem, "no session cap by default")
}

func TestNewSessionCap(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Enabled: true, MaxSessions: 2}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c.sem)
	assert.Equal(t, 2, cap(c.sem))
}

func TestAcquireSlotHonorsContext(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Enabled: true, MaxSessions: 1}, zap.NewNop())
	require.NoError(t, err)

	release, err := c.acquireSlot(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.acquireSlot(ctx)
	require.Error(t, err, "second slot must block until released")

	release()
	release() // idempotent

	release2, err := c.acquireSlot(context.Background())
	require.NoError(t, err)
	release2()
}

func TestWaitDomainBudget(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Enabled: true, DomainQPS: 0}, zap.NewNop())
	require.NoError(t, err)
	// Zero QPS disables the limiter entirely.
	require.NoError(t, c.waitDomainBudget(context.Background(), "https://example.com"))

	c2, err := New(Config{Enabled: true, DomainQPS: 1000}, zap.NewNop())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, c2.waitDomainBudget(context.Background(), "https://example.com/page"))
	}
	_, ok := c2.domainLimiters.Load("example.com")
	assert.True(t, ok, "limiter memoized per host")
}

func TestCloseWithoutLaunch(t *testing.T) {
	t.Parallel()

	c, err := New(Config{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Close(context.Background()))

	// Close does not consult the caller's context.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Close(canceled))
}

func TestIsPNG(t *testing.T) {
	t.Parallel()

	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, 0x00)
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	assert.True(t, isPNG(png))
	assert.False(t, isPNG(jpeg), "jpeg output means a capture path dropped the png encoder")
	assert.False(t, isPNG(nil))
	assert.False(t, isPNG(png[:4]), "truncated signature")
}

func TestJSString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"meta[name=\"description\"]"`, jsString(`meta[name="description"]`))
	assert.Equal(t, `"title"`, jsString("title"))
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	canceled := make(chan struct{})
	stop := forwardCancel(parent, func() { close(canceled) })
	defer stop()

	cancelParent()
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("cancellation was not forwarded")
	}
}

func TestNoopBrowser(t *testing.T) {
	t.Parallel()

	n := NewNoop()
	_, err := n.NewSession(context.Background())
	require.Error(t, err)
	require.NoError(t, n.Close(context.Background()))
}
