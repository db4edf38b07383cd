package socket

import (
	"net"
	"testing"
)

func TestApplyNonTCPConnIsNoop(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if err := Apply(server, WorkerDefault()); err != nil {
		t.Fatalf("Apply on non-TCP conn should be a no-op, got: %v", err)
	}
}

func TestWorkerDefaultEnablesCoreOptions(t *testing.T) {
	cfg := WorkerDefault()
	if !cfg.NoDelay || !cfg.KeepAlive || !cfg.ReusePort {
		t.Errorf("WorkerDefault() = %+v, want NoDelay/KeepAlive/ReusePort all true", cfg)
	}
}

func TestListenReusePortBindsLoopback(t *testing.T) {
	ln, err := ListenReusePort("tcp", "127.0.0.1:0", &Config{ReusePort: true})
	if err != nil {
		t.Fatalf("ListenReusePort: %v", err)
	}
	defer ln.Close()
	if ln.Addr() == nil {
		t.Fatal("expected bound address")
	}
}

func TestListenReusePortWithoutReusePortStillBinds(t *testing.T) {
	ln, err := ListenReusePort("tcp", "127.0.0.1:0", &Config{ReusePort: false})
	if err != nil {
		t.Fatalf("ListenReusePort: %v", err)
	}
	defer ln.Close()
	if ln.Addr() == nil {
		t.Fatal("expected bound address")
	}
}

func TestListenReusePortNilConfigBindsWithoutReuseport(t *testing.T) {
	ln, err := ListenReusePort("tcp", "127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("ListenReusePort: %v", err)
	}
	defer ln.Close()
	if ln.Addr() == nil {
		t.Fatal("expected bound address")
	}
}
