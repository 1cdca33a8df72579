//go:build integration_pg

package pg

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

type countingTracer struct{ n int }

func (c *countingTracer) OnQuery(context.Context, QueryEvent) { c.n++ }

func TestKV_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tr := &countingTracer{}
	p, err := Open(ctx, Config{URL: dsn, AppName: "aidetect-it", MaxConns: 2}, tr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	kv := NewKV(p)
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := kv.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, ok, err := kv.Get(ctx, "aid-last-feedback"); err != nil || ok {
		t.Fatalf("empty get ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "aid-last-feedback", "up"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "aid-last-feedback", "down"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, ok, err := kv.Get(ctx, "aid-last-feedback")
	if err != nil || !ok || v != "down" {
		t.Fatalf("get = %q ok=%v err=%v", v, ok, err)
	}
	if tr.n < 4 {
		t.Fatalf("tracer saw %d statements", tr.n)
	}
}
