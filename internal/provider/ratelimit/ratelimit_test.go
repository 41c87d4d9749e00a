package ratelimit

import (
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "stockdata/internal/provider"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newLimiter() (*SlidingWindow, *fakeClock) {
    clk := &fakeClock{t: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
    l := NewSlidingWindow(0, 0)
    l.Now = clk.Now
    return l, clk
}

func TestSlidingWindow_Defaults(t *testing.T) {
    l := NewSlidingWindow(0, -1)
    require.Equal(t, 5, l.MaxRequests)
    require.Equal(t, time.Minute, l.Window)
}

func TestSlidingWindow_SixthCallFailsSeventhSucceedsAfterRollover(t *testing.T) {
    l, clk := newLimiter()

    for i := 0; i < 5; i++ {
        require.NoErrorf(t, l.CheckLimit(), "call %d", i+1)
        clk.Advance(time.Second)
    }

    err := l.CheckLimit()
    require.Error(t, err)
    require.True(t, provider.IsRateLimited(err))
    var rl *provider.RateLimitError
    require.True(t, errors.As(err, &rl))
    require.False(t, rl.Upstream)
    // first call at t0, now t0+5s -> 55s left
    require.Equal(t, 55*time.Second, rl.Wait)
    require.Equal(t, 55, rl.WaitSeconds())
    require.Equal(t, 5, l.InFlight(), "rejected call is not recorded")

    clk.Advance(rl.Wait)
    require.NoError(t, l.CheckLimit(), "capacity restored once the first call ages out")
}

func TestSlidingWindow_WaitRoundsUp(t *testing.T) {
    l, clk := newLimiter()
    for i := 0; i < 5; i++ {
        require.NoError(t, l.CheckLimit())
    }
    clk.Advance(500 * time.Millisecond)
    var rl *provider.RateLimitError
    require.ErrorAs(t, l.CheckLimit(), &rl)
    require.Equal(t, 60, rl.WaitSeconds())
    require.Contains(t, rl.Error(), "Please wait 60 seconds")
}

func TestSlidingWindow_Reset(t *testing.T) {
    l, _ := newLimiter()
    for i := 0; i < 5; i++ {
        require.NoError(t, l.CheckLimit())
    }
    require.Error(t, l.CheckLimit())
    l.Reset()
    require.Equal(t, 0, l.InFlight())
    require.NoError(t, l.CheckLimit())
}

func TestSlidingWindow_NeverExceedsMax(t *testing.T) {
    l, clk := newLimiter()
    l.MaxRequests = 3
    l.Window = 10 * time.Second
    admitted := 0
    for i := 0; i < 100; i++ {
        if l.CheckLimit() == nil {
            admitted++
        }
        require.LessOrEqual(t, l.InFlight(), 3)
        clk.Advance(time.Second)
    }
    // 3 per 10s over 100s
    require.Equal(t, 30, admitted)
}
