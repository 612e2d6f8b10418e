package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/Swind/corert"
	"github.com/Swind/corert/ioevents"
)

func newRunCmd() *cobra.Command {
	var domains int
	var seed uint64

	cmd := &cobra.Command{
		Use:       "run [sleepers|parallelmap|echoserver]",
		Short:     "Run one of the bundled demo scenarios",
		Args:      requiredPositionalArgs("scenario"),
		ValidArgs: []string{"sleepers", "parallelmap", "echoserver"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []corert.RunOption{corert.WithDomains(domains)}
			if seed != 0 {
				opts = append(opts, corert.WithSeed(seed))
			}
			switch args[0] {
			case "sleepers":
				return runSleepers(opts)
			case "parallelmap":
				return runParallelMap(opts)
			case "echoserver":
				return runEchoServer(opts)
			default:
				return fmt.Errorf("unknown scenario %q", args[0])
			}
		},
	}

	cmd.Flags().IntVar(&domains, "domains", 4, "number of domains in the pool")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "PRNG seed, 0 draws from crypto/rand")
	return cmd
}

func requiredPositionalArgs(name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no argument given for %s", name)
		}
		if len(args) > 1 {
			return fmt.Errorf("unexpected extra argument %q", args[1])
		}
		return nil
	}
}

func withEventsHook(opts []corert.RunOption) []corert.RunOption {
	return append(opts, corert.WithEventsHook(func(int) corert.EventsHook {
		return ioevents.NewHook()
	}))
}

func runSleepers(opts []corert.RunOption) error {
	start := time.Now()
	result, err := corert.Run(func(rc *corert.Context) (any, error) {
		a := corert.CallCC(rc, func(rc *corert.Context) (any, error) {
			return ioevents.Sleep(rc, time.Second)
		})
		b := corert.CallCC(rc, func(rc *corert.Context) (any, error) {
			return ioevents.Sleep(rc, time.Second)
		})
		return corert.AwaitAll(rc, []*corert.Promise{a, b})
	}, withEventsHook(opts)...)
	if err != nil {
		return err
	}
	fmt.Printf("both sleepers woke at %v, elapsed %.2fs\n", result, time.Since(start).Seconds())
	return nil
}

func runParallelMap(opts []corert.RunOption) error {
	inputs := []int{3, 1, 4, 1, 5, 9, 2, 6}
	start := time.Now()
	result, err := corert.Run(func(rc *corert.Context) (any, error) {
		closures := make([]func(*corert.Context) (any, error), len(inputs))
		for i, n := range inputs {
			n := n
			closures[i] = func(*corert.Context) (any, error) {
				time.Sleep(100 * time.Millisecond)
				return n * n, nil
			}
		}
		return corert.Group(rc, closures)
	}, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("squares: %v, elapsed %.2fs\n", result, time.Since(start).Seconds())
	return nil
}

func runEchoServer(opts []corert.RunOption) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	defer ln.Close()
	addr := ln.Addr().String()

	result, err := corert.Run(func(rc *corert.Context) (any, error) {
		server := corert.CallCC(rc, func(rc *corert.Context) (any, error) {
			conn, err := ioevents.Accept(rc, ln)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			buf := make([]byte, 5)
			n, err := ioevents.Read(rc, conn, buf)
			if err != nil {
				return nil, err
			}
			_, err = ioevents.Write(rc, conn, buf[:n])
			return nil, err
		})

		dialClient := func(rc *corert.Context) (any, error) {
			conn, err := ioevents.Dial(rc, "tcp", addr)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			if _, err := ioevents.Write(rc, conn, []byte("hello")); err != nil {
				return nil, err
			}
			buf := make([]byte, 5)
			n, err := ioevents.Read(rc, conn, buf)
			if err != nil {
				return nil, err
			}
			return string(buf[:n]), nil
		}
		client, err := corert.Call(rc, dialClient)
		if err != nil {
			client = corert.CallCC(rc, dialClient)
		}

		return corert.AwaitAll(rc, []*corert.Promise{server, client})
	}, withEventsHook(opts)...)
	if err != nil {
		return err
	}
	fmt.Printf("round trip: %v\n", result)
	return nil
}
