// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	surrealOnce      sync.Once
	surrealContainer *Container
	surrealError     error

	redisOnce      sync.Once
	redisContainer *Container
	redisError     error
)

// Container wraps a shared testcontainers instance.
type Container struct {
	container testcontainers.Container
	host      string
	port      string
}

func startContainer(req testcontainers.ContainerRequest, port string) (*Container, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s container: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get %s host: %w", req.Image, err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get %s port: %w", req.Image, err)
	}

	return &Container{container: container, host: host, port: mappedPort.Port()}, nil
}

// StartSurrealDB starts a shared SurrealDB container for the test run.
// Uses sync.Once so only one container is created per process. Skipped
// under -short.
func StartSurrealDB(t *testing.T) *Container {
	t.Helper()
	if testing.Short() {
		t.Skip("SurrealDB container tests skipped in -short mode")
	}

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startContainer(testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}, "8000/tcp")
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealContainer
}

// StartRedis starts a shared Redis container for the test run. Skipped
// under -short.
func StartRedis(t *testing.T) *Container {
	t.Helper()
	if testing.Short() {
		t.Skip("Redis container tests skipped in -short mode")
	}

	redisOnce.Do(func() {
		redisContainer, redisError = startContainer(testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			).WithDeadline(30 * time.Second),
		}, "6379/tcp")
	})

	if redisError != nil {
		t.Fatalf("Redis container failed: %v", redisError)
	}
	return redisContainer
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *Container) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// RedisURL returns a redis:// URL for the container.
func (c *Container) RedisURL() string {
	return fmt.Sprintf("redis://%s:%s/0", c.host, c.port)
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *Container) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
