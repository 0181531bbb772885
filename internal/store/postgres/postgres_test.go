package postgres

import (
	"reflect"
	"testing"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", Database: "mmbot", User: "bot", Password: "pw"})
	want := "postgres://bot:pw@db:5432/mmbot?sslmode=disable"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
	if got := DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}); got != "postgres://x" {
		t.Errorf("explicit DSN not used: %q", got)
	}
}

func TestPageQuery(t *testing.T) {
	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	query, args := pageQuery("SELECT * FROM actions WHERE kind = $1", []any{"trade"},
		domain.ListOpts{Since: &since, Limit: 10, Offset: 20})

	wantQuery := "SELECT * FROM actions WHERE kind = $1 AND created_at >= $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
	if query != wantQuery {
		t.Errorf("query = %q\nwant    %q", query, wantQuery)
	}
	wantArgs := []any{"trade", since, 10, 20}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestPageQueryNoOptions(t *testing.T) {
	query, args := pageQuery("SELECT 1 WHERE 1=1", nil, domain.ListOpts{})
	if query != "SELECT 1 WHERE 1=1 ORDER BY created_at DESC" {
		t.Errorf("query = %q", query)
	}
	if len(args) != 0 {
		t.Errorf("args = %v", args)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := migrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Fatalf("migrations = %v", names)
	}
}
