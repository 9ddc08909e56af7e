package zookeeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/exoRift/ripple"
)

var _ ripple.Source = (*Source)(nil)

func setupZooKeeper(t *testing.T) *zk.Conn {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "zookeeper:3.9",
			ExposedPorts: []string{"2181/tcp"},
			WaitingFor:   wait.ForListeningPort("2181/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start zookeeper container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}
	port, err := container.MappedPort(ctx, "2181/tcp")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}

	conn, _, err := zk.Connect([]string{fmt.Sprintf("%s:%s", host, port.Port())}, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	if _, err := conn.Create("/state", []byte{}, 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create parent node: %v", err)
	}

	return conn
}

func TestSource_EmitsInitialValue(t *testing.T) {
	conn := setupZooKeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/state/app"
	value := []byte(`{"theme": "dark"}`)

	if _, err := conn.Create(path, value, 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	source := New(conn, path)
	ch, err := source.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case data := <-ch:
		if string(data) != string(value) {
			t.Errorf("expected %q, got %q", value, data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for initial value")
	}
}

func TestSource_EmitsOnChange(t *testing.T) {
	conn := setupZooKeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/state/app"
	initial := []byte(`{"v": 1}`)
	updated := []byte(`{"v": 2}`)

	if _, err := conn.Create(path, initial, 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	source := New(conn, path)
	ch, err := source.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Drain initial value
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for initial value")
	}

	if _, err := conn.Set(path, updated, -1); err != nil {
		t.Fatalf("failed to update node: %v", err)
	}

	select {
	case data := <-ch:
		if string(data) != string(updated) {
			t.Errorf("expected %q, got %q", updated, data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for update")
	}
}

func TestSource_WaitsForCreation(t *testing.T) {
	conn := setupZooKeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/state/missing"

	source := New(conn, path)
	ch, err := source.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Nothing exists yet, so nothing is emitted.
	select {
	case data := <-ch:
		t.Errorf("did not expect emission before creation, got %q", data)
	case <-time.After(500 * time.Millisecond):
	}

	value := []byte("created")
	if _, err := conn.Create(path, value, 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	select {
	case data := <-ch:
		if string(data) != string(value) {
			t.Errorf("expected %q, got %q", value, data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for created value")
	}
}

func TestSource_IgnoresDelete(t *testing.T) {
	conn := setupZooKeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/state/app"
	if _, err := conn.Create(path, []byte(`{"v": 1}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	source := New(conn, path)
	ch, err := source.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Drain initial
	<-ch

	if err := conn.Delete(path, -1); err != nil {
		t.Fatalf("failed to delete node: %v", err)
	}

	// A deleted node carries no snapshot.
	select {
	case data := <-ch:
		t.Errorf("did not expect emission on delete, got %q", data)
	case <-time.After(500 * time.Millisecond):
	}

	if _, err := conn.Create(path, []byte(`{"v": 2}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to recreate node: %v", err)
	}

	select {
	case data := <-ch:
		if string(data) != `{"v": 2}` {
			t.Errorf("expected recreated value, got %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for recreated value")
	}
}

func TestSource_ClosesOnContextCancel(t *testing.T) {
	conn := setupZooKeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	path := "/state/app"
	if _, err := conn.Create(path, []byte("value"), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	source := New(conn, path)
	ch, err := source.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Drain initial
	<-ch

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}
