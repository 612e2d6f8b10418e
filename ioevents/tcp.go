package ioevents

import (
	"fmt"
	"net"

	"github.com/Swind/corert/domain"
)

func hookFor(rc *domain.Context) (*Hook, error) {
	hook, ok := rc.Hook().(*Hook)
	if !ok {
		return nil, fmt.Errorf("ioevents: domain %d has no ioevents.Hook installed", rc.DomainID())
	}
	return hook, nil
}

// Dial connects to addr over network (as net.Dial), suspending the calling task until the
// connection completes or fails.
func Dial(rc *domain.Context, network, addr string) (net.Conn, error) {
	hook, err := hookFor(rc)
	if err != nil {
		return nil, err
	}
	p := rc.Make(func() (any, error) {
		return net.Dial(network, addr)
	})
	hook.RegisterAsync(p)
	v, err := rc.Suspend(p)
	if err != nil {
		return nil, err
	}
	conn, _ := v.(net.Conn)
	return conn, nil
}

// Accept blocks on ln.Accept, suspending the calling task rather than
// the domain, until a connection arrives or ln is closed.
func Accept(rc *domain.Context, ln net.Listener) (net.Conn, error) {
	hook, err := hookFor(rc)
	if err != nil {
		return nil, err
	}
	p := rc.Make(func() (any, error) {
		return ln.Accept()
	})
	hook.RegisterAsync(p)
	v, err := rc.Suspend(p)
	if err != nil {
		return nil, err
	}
	conn, _ := v.(net.Conn)
	return conn, nil
}

// Read suspends until conn.Read fills (or partially fills) buf.
func Read(rc *domain.Context, conn net.Conn, buf []byte) (int, error) {
	hook, err := hookFor(rc)
	if err != nil {
		return 0, err
	}
	p := rc.Make(func() (any, error) {
		return conn.Read(buf)
	})
	hook.RegisterAsync(p)
	v, err := rc.Suspend(p)
	if err != nil {
		return 0, err
	}
	n, _ := v.(int)
	return n, nil
}

// Write suspends until conn.Write has flushed buf.
func Write(rc *domain.Context, conn net.Conn, buf []byte) (int, error) {
	hook, err := hookFor(rc)
	if err != nil {
		return 0, err
	}
	p := rc.Make(func() (any, error) {
		return conn.Write(buf)
	})
	hook.RegisterAsync(p)
	v, err := rc.Suspend(p)
	if err != nil {
		return 0, err
	}
	n, _ := v.(int)
	return n, nil
}
