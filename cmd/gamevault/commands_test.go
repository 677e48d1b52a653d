package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/gamevault/internal/core"
	"github.com/JonMunkholm/gamevault/internal/database"
	"github.com/JonMunkholm/gamevault/internal/schema"
)

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	svc := core.NewService(database.NewMemoryStore(), core.ServiceConfig{})
	return &cli{svc: svc, out: &out}, &out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRateFile(t *testing.T) {
	input := "# seed\nNOK\t10.5\t2024-01-01\n\nsek\t9.75\n"
	rates, err := parseRateFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseRateFile() error: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("got %d rates, want 2", len(rates))
	}
	if rates[0].Rate != 10.5 || rates[0].Timestamp.Year() != 2024 {
		t.Errorf("first rate = %+v", rates[0])
	}
	if !rates[1].Timestamp.IsZero() {
		t.Errorf("second rate timestamp = %v, want zero", rates[1].Timestamp)
	}

	for _, bad := range []string{"NOK\n", "NOK\tabc\n", "NOK\t1\tyesterday\n"} {
		if _, err := parseRateFile(strings.NewReader(bad)); err == nil {
			t.Errorf("parseRateFile(%q) should fail", bad)
		}
	}
}

func TestCollectImportFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.tsv", "")
	writeFile(t, dir, "a.TXT", "")
	writeFile(t, dir, "notes.md", "")
	os.Mkdir(filepath.Join(dir, "sub.tsv"), 0o755)

	files, err := collectImportFiles([]string{dir})
	if err != nil {
		t.Fatalf("collectImportFiles() error: %v", err)
	}
	want := []string{filepath.Join(dir, "a.TXT"), filepath.Join(dir, "b.tsv")}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("files = %v, want %v", files, want)
	}

	if _, err := collectImportFiles([]string{filepath.Join(dir, "missing.tsv")}); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := collectImportFiles([]string{t.TempDir()}); err == nil {
		t.Error("empty directory should fail")
	}
}

func TestRun_ImportAndValue(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	row := make([]string, schema.ColumnCount)
	row[schema.ColTitle] = "Banjo-Kazooie"
	row[schema.ColLoosePrice] = "30"
	tsv := strings.Join(schema.Header(), "\t") + "\n" + strings.Join(row, "\t") + "\n"
	path := writeFile(t, t.TempDir(), "games.tsv", tsv)

	if code := c.run(ctx, []string{"import", "--preview", path}); code != 0 {
		t.Fatalf("preview exit code = %d", code)
	}
	if !strings.Contains(out.String(), "1 new") {
		t.Errorf("preview output = %q", out.String())
	}

	out.Reset()
	if code := c.run(ctx, []string{"import", path}); code != 0 {
		t.Fatalf("import exit code = %d, output %q", code, out.String())
	}
	if !strings.Contains(out.String(), "1 accepted, 0 rejected") {
		t.Errorf("import output = %q", out.String())
	}

	// Same file again: every row is now a duplicate
	out.Reset()
	if code := c.run(ctx, []string{"import", path}); code != 1 {
		t.Errorf("re-import exit code = %d, want 1", code)
	}

	out.Reset()
	if code := c.run(ctx, []string{"value", "--column", "usd"}); code != 0 {
		t.Fatalf("value exit code = %d", code)
	}
	if !strings.Contains(out.String(), "0 items") {
		t.Errorf("value output = %q", out.String())
	}
}

func TestRun_Rates(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()

	if code := c.run(ctx, []string{"rate", "latest", "NOK"}); code != 1 {
		t.Errorf("latest without rates exit code = %d, want 1", code)
	}
	if code := c.run(ctx, []string{"rate", "record", "NOK", "0"}); code != 1 {
		t.Errorf("zero rate exit code = %d, want 1", code)
	}
	if code := c.run(ctx, []string{"rate", "record", "nok", "10.25", "--at", "2024-05-01"}); code != 0 {
		t.Fatalf("record exit code = %d", code)
	}

	seed := writeFile(t, t.TempDir(), "rates.tsv", "NOK\t10.5\t2024-06-01\nNOK\t10.4\t2024-05-15\n")
	if code := c.run(ctx, []string{"rate", "seed", seed}); code != 0 {
		t.Fatalf("seed exit code = %d", code)
	}

	out.Reset()
	if code := c.run(ctx, []string{"rate", "latest", "NOK"}); code != 0 {
		t.Fatalf("latest exit code = %d", code)
	}
	if !strings.HasPrefix(out.String(), "NOK 10.5 at 2024-06-01") {
		t.Errorf("latest output = %q", out.String())
	}

	out.Reset()
	c.run(ctx, []string{"rate", "history", "NOK", "--limit", "2"})
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 2 {
		t.Errorf("history printed %d lines, want 2", len(lines))
	}

	if code := c.run(ctx, []string{"bogus"}); code != 1 {
		t.Errorf("unknown command exit code = %d, want 1", code)
	}
}
