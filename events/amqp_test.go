package events

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestNewAMQPDialTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// Accept the connection but never speak the protocol, so the dial can
	// only finish via the timeout.
	done := make(chan struct{})
	defer close(done)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-done
		conn.Close()
	}()

	start := time.Now()
	pub, err := NewAMQP("amqp://guest:guest@"+ln.Addr().String()+"/", "leads", 50*time.Millisecond)
	if err == nil {
		pub.Close()
		t.Fatal("expected a timeout error from an unresponsive broker")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("err = %v, want connection timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dial took %v, timeout not honored", elapsed)
	}
}
