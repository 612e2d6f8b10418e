package ioevents

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Swind/corert/core"
	"github.com/Swind/corert/domain"
)

func testConfig(domains int) *core.Config {
	cfg := &core.Config{Domains: domains, Seed: 1, EventsHook: NewHookFactory()}
	cfg.ApplyDefaults()
	return cfg
}

// TestSleep_ResolvesWithWakeTime drives the real Hook through a
// scheduler run, not a stand-in: Sleep must suspend the calling task
// rather than block the domain, and resolve with the time it woke.
func TestSleep_ResolvesWithWakeTime(t *testing.T) {
	pool := domain.NewPool(testConfig(1))
	before := time.Now()
	result, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*domain.Context)
		return Sleep(ctx, 30*time.Millisecond)
	})
	require.NoError(t, err)
	woke, ok := result.(time.Time)
	require.True(t, ok, "expected a time.Time result, got %T", result)
	require.True(t, woke.After(before), "wake time should be after the call started")
}

// TestConcurrentSleepsOverlap is §8.1 (concurrent sleepers) exercised
// against the real reactor: two call_cc tasks sleeping 200ms on the
// same domain must overlap, finishing well under 400ms.
func TestConcurrentSleepsOverlap(t *testing.T) {
	pool := domain.NewPool(testConfig(2))
	start := time.Now()
	_, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*domain.Context)
		a := ctx.CallCC(func(inner any) (any, error) {
			return Sleep(inner.(*domain.Context), 200*time.Millisecond)
		})
		b := ctx.CallCC(func(inner any) (any, error) {
			return Sleep(inner.(*domain.Context), 200*time.Millisecond)
		})
		return ctx.AwaitAll([]*core.Promise{a, b})
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Less(t, elapsed, 350*time.Millisecond, "two 200ms sleeps should overlap")
}

// TestSleep_CancelledMidSleepReturnsErrCancelled is §8.3 (cancellation
// interrupts pending I/O), exercised against the real Hook and a real
// time.Sleep on a throwaway goroutine, not a fake.
func TestSleep_CancelledMidSleepReturnsErrCancelled(t *testing.T) {
	pool := domain.NewPool(testConfig(1))
	var sleepErr error
	_, err := pool.RunWithActivePool(func(env any) (any, error) {
		ctx := env.(*domain.Context)
		hook := ctx.Hook().(*Hook)

		p := ctx.Make(func() (any, error) {
			time.Sleep(time.Second)
			return time.Now(), nil
		})
		hook.RegisterAsync(p)

		go func() {
			time.Sleep(20 * time.Millisecond)
			domain.Cancel(p)
		}()

		_, sleepErr = ctx.Suspend(p)
		return nil, nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, sleepErr, core.ErrCancelled)
}

// TestDialAcceptReadWrite is §8.6 (echo server handshake) exercised
// against the real Hook and real TCP sockets: a call_cc server task
// accepts one connection and echoes back whatever it reads, a call
// client task dials in, writes, and reads the echo back.
func TestDialAcceptReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	addr := ln.Addr().String()

	pool := domain.NewPool(testConfig(2))
	result, err := pool.Run(func(env any) (any, error) {
		ctx := env.(*domain.Context)

		server := ctx.CallCC(func(inner any) (any, error) {
			innerCtx := inner.(*domain.Context)
			conn, err := Accept(innerCtx, ln)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			buf := make([]byte, 5)
			n, err := Read(innerCtx, conn, buf)
			if err != nil {
				return nil, err
			}
			if _, err := Write(innerCtx, conn, buf[:n]); err != nil {
				return nil, err
			}
			return nil, nil
		})

		client, err := ctx.Call(func(inner any) (any, error) {
			innerCtx := inner.(*domain.Context)
			conn, err := Dial(innerCtx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			if _, err := Write(innerCtx, conn, []byte("hello")); err != nil {
				return nil, err
			}
			buf := make([]byte, 5)
			n, err := Read(innerCtx, conn, buf)
			if err != nil {
				return nil, err
			}
			return string(buf[:n]), nil
		})
		if err != nil {
			return nil, err
		}

		return ctx.AwaitAll([]*core.Promise{server, client})
	})
	require.NoError(t, err)
	values := result.([]any)
	require.Equal(t, "hello", values[1])
}
