package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "oracle", User: "default", Password: "pw",
		DialTimeout: 5 * time.Second, AsyncInsert: true,
	})
	if !strings.HasPrefix(dsn, "clickhouse://default:pw@ch:9000/oracle?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	for _, want := range []string{"dial_timeout=5s", "async_insert=1", "wait_for_async_insert=1"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %s missing %s", dsn, want)
		}
	}

	httpDSN := BuildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "oracle", UseHTTP: true})
	if !strings.HasPrefix(httpDSN, "http://") {
		t.Fatalf("expected http scheme, got %s", httpDSN)
	}
}
