package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/config"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	cfg := config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     1, // nothing listens here
		MQTTClientID: "board-test",
	}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(p.Disconnect)
	return p
}

func TestPublishJSON_NotConnected(t *testing.T) {
	p := newTestPublisher(t)

	err := p.PublishJSON("board/weather", map[string]string{"a": "b"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("PublishJSON() error = %v, want %v", err, ErrNotConnected)
	}
}

func TestPublishJSON_MarshalError(t *testing.T) {
	p := newTestPublisher(t)

	err := p.PublishJSON("board/weather", make(chan int))
	if err == nil || errors.Is(err, ErrNotConnected) {
		t.Fatalf("PublishJSON() error = %v, want marshal error", err)
	}
}

func TestConnect_ContextDeadline(t *testing.T) {
	p := newTestPublisher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := p.Connect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if p.IsConnected() {
		t.Error("IsConnected() = true after failed connect")
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	p := newTestPublisher(t)
	p.Disconnect()
	p.Disconnect()

	if err := p.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() error = %v, want %v", err, ErrStopped)
	}
}

// freePort returns a local TCP port with nothing listening on it.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

// serveConnack accepts clients on l and answers CONNECT with an accepted
// CONNACK and PINGREQ with PINGRESP.
func serveConnack(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			for {
				cp, err := packets.ReadPacket(conn)
				if err != nil {
					return
				}
				var reply packets.ControlPacket
				switch cp.(type) {
				case *packets.ConnectPacket:
					reply = packets.NewControlPacket(packets.Connack)
				case *packets.PingreqPacket:
					reply = packets.NewControlPacket(packets.Pingresp)
				case *packets.DisconnectPacket:
					return
				default:
					continue
				}
				if err := reply.Write(conn); err != nil {
					return
				}
			}
		}(conn)
	}
}

func TestConnect_BrokerUpAfterDeadline(t *testing.T) {
	prev := connectRetryInterval
	connectRetryInterval = 100 * time.Millisecond
	t.Cleanup(func() { connectRetryInterval = prev })

	port := freePort(t)
	p := NewPublisher(config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     port,
		MQTTClientID: "board-test-late",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(p.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v, want %v", err, context.DeadlineExceeded)
	}

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Skipf("port %d taken before the broker could start: %v", port, err)
	}
	t.Cleanup(func() { l.Close() })
	go serveConnack(l)

	deadline := time.Now().Add(5 * time.Second)
	for !p.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("IsConnected() = false; want the startup attempt to keep retrying until the broker is up")
		}
		time.Sleep(50 * time.Millisecond)
	}

	// A later Connect reuses the established session.
	if err := p.Connect(context.Background()); err != nil {
		t.Errorf("Connect() after broker up error = %v", err)
	}
}
