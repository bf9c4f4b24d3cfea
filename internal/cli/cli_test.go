package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/cache"
	"github.com/matzehuels/sgtsnepi/pkg/config"
	"github.com/matzehuels/sgtsnepi/pkg/embed"
	sgio "github.com/matzehuels/sgtsnepi/pkg/io"
	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/repulsion"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

func TestEmbeddingOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		format  string
		want    string
		wantErr bool
	}{
		{"default csv", "", "", "data/g.embedding.csv", false},
		{"format picks extension", "", "json", "data/g.embedding.json", false},
		{"txt is tsv", "", "txt", "data/g.embedding.tsv", false},
		{"explicit output", "out.tsv", "", "out.tsv", false},
		{"matching format", "out.json", "json", "out.json", false},
		{"mismatched format", "out.csv", "json", "", true},
		{"unsupported output", "out.mtx", "", "", true},
		{"unknown format", "", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := embeddingOutput("data/g.mtx", tt.output, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("embeddingOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("embeddingOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    embed.Kind
		wantErr bool
	}{
		{"auto", embed.KindUnspecified, false},
		{"", embed.KindUnspecified, false},
		{"graph", embed.KindGraph, false},
		{"coord", embed.KindCoordinates, false},
		{"matrix", embed.KindUnspecified, true},
	}
	for _, tt := range tests {
		got, err := parseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseKind(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestEmbedFlagsOverrideConfig(t *testing.T) {
	var ef embedFlags
	cmd := &cobra.Command{Use: "test"}
	ef.register(cmd)
	if err := cmd.ParseFlags([]string{"--dims", "1", "--seed", "5", "--mode", "exact", "--early-stop", "3"}); err != nil {
		t.Fatal(err)
	}

	cfg := &config.File{Embed: config.Embed{Dims: 3, Lambda: 4, MaxIter: 300}}
	opts, err := ef.options(cmd, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dims != 1 {
		t.Errorf("Dims = %d, want flag value 1", opts.Dims)
	}
	if opts.Lambda != 4 || opts.MaxIter != 300 {
		t.Errorf("unset flags should keep config values, got lambda=%v max_iter=%d", opts.Lambda, opts.MaxIter)
	}
	if opts.Seed != 5 || opts.Mode != repulsion.ModeExact {
		t.Errorf("Seed = %d, Mode = %v", opts.Seed, opts.Mode)
	}
	if opts.EarlyStop.Window != 3 || opts.EarlyStop.Tol != 1e-4 {
		t.Errorf("EarlyStop = %+v, want window 3 with the default tolerance", opts.EarlyStop)
	}
	if opts.Eta != 0 {
		t.Errorf("Eta = %v, unset flags must not inject their display default", opts.Eta)
	}
}

func TestGraphFlagsOverrideConfig(t *testing.T) {
	var gf graphFlags
	cmd := &cobra.Command{Use: "test"}
	gf.register(cmd)
	if err := cmd.ParseFlags([]string{"--knn", "approx", "--trees", "8"}); err != nil {
		t.Fatal(err)
	}

	cfg := &config.File{Graph: config.Graph{Perplexity: 30, Method: "exact"}}
	opts, err := gf.options(cmd, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Perplexity != 30 || opts.Method != knn.MethodApproximate || opts.Approx.Trees != 8 {
		t.Errorf("options = %+v", opts)
	}

	if err := cmd.ParseFlags([]string{"--knn", "fast"}); err != nil {
		t.Fatal(err)
	}
	if _, err := gf.options(cmd, cfg); err == nil {
		t.Error("unknown --knn value should fail")
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv(redisURLEnv, "")
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name  string
		cfg   config.Cache
		off   bool
		check func(cache.Cache) bool
	}{
		{"no-cache flag", config.Cache{Dir: dir}, true, func(c cache.Cache) bool { _, ok := c.(cache.NullCache); return ok }},
		{"disabled", config.Cache{Dir: dir, Disabled: true}, false, func(c cache.Cache) bool { _, ok := c.(cache.NullCache); return ok }},
		{"file", config.Cache{Dir: dir}, false, func(c cache.Cache) bool { _, ok := c.(*cache.FileCache); return ok }},
		{"layered", config.Cache{Dir: dir, MemoryEntries: 4, TTL: "1h"}, false, func(c cache.Cache) bool { _, ok := c.(*cache.Layered); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newCache(ctx, tt.cfg, tt.off)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			defer c.Close()
			if !tt.check(c) {
				t.Errorf("newCache() = %T", c)
			}
		})
	}

	if _, err := newCache(ctx, config.Cache{Dir: dir, TTL: "soon"}, false); err == nil {
		t.Error("invalid ttl should fail")
	}
}

func TestRootCommand(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()
	want := map[string]bool{"embed": false, "graph": false, "recall": false, "render": false, "cache": false, "completion": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

// writeRing writes an n-cycle as Matrix Market and returns its path.
func writeRing(t *testing.T, dir string, n int) string {
	t.Helper()
	b := sparse.NewBuilder(n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		b.Add(i, j, 1)
		b.Add(j, i, 1)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "ring.mtx")
	if err := sgio.ExportMatrixMarket(g, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(&logs)
	root.SetErr(&logs)
	return root.ExecuteContext(context.Background())
}

func TestEmbedRecallRender(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv(redisURLEnv, "")
	in := writeRing(t, dir, 24)
	out := filepath.Join(dir, "ring.csv")

	cfgPath := filepath.Join(dir, "sgtsnepi.toml")
	if err := os.WriteFile(cfgPath, []byte("[embed]\nmax_iter = 60\nearly_exag = 20\neta = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "embed", in, "-o", out, "--config", cfgPath, "--seed", "3", "-j", "2"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	e, err := sgio.ImportEmbedding(out)
	if err != nil {
		t.Fatalf("read embedding: %v", err)
	}
	if e.N() != 24 || e.Dims != 2 {
		t.Errorf("embedding is %d×%d, want 24×2", e.N(), e.Dims)
	}

	if err := execute(t, "recall", in, out, "--recall-k", "2", "--bins", "4"); err != nil {
		t.Errorf("recall: %v", err)
	}

	dot := filepath.Join(dir, "ring.dot")
	if err := execute(t, "render", out, "-o", dot, "--graph", in); err != nil {
		t.Fatalf("render: %v", err)
	}
	if data, err := os.ReadFile(dot); err != nil || !bytes.Contains(data, []byte("graph")) {
		t.Errorf("render output = %q, %v", data, err)
	}
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "points.csv")
	var buf bytes.Buffer
	for i := 0; i < 30; i++ {
		buf.WriteString(csvRow(float64(i)*0.37+0.5, float64(i%5)+0.25))
	}
	if err := os.WriteFile(in, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "knn.mtx")
	if err := execute(t, "graph", in, "-o", out, "--perplexity", "3", "--no-cache"); err != nil {
		t.Fatalf("graph: %v", err)
	}
	g, err := sgio.ImportMatrixMarket(out)
	if err != nil {
		t.Fatal(err)
	}
	if g.N != 30 {
		t.Errorf("graph has %d vertices, want 30", g.N)
	}

	if err := execute(t, "graph", in, "-o", filepath.Join(dir, "knn.csv"), "--no-cache"); err == nil {
		t.Error("csv graph output should be rejected")
	}
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	if err := execute(t, "embed", filepath.Join(dir, "missing.mtx"), "--no-cache"); err == nil {
		t.Error("missing input should fail")
	}
	if err := execute(t, "embed", writeRing(t, dir, 10), "--type", "matrix", "--no-cache"); err == nil {
		t.Error("unknown --type should fail")
	}
	if err := execute(t, "embed", writeRing(t, dir, 10), "--config", filepath.Join(dir, "none.toml")); err == nil {
		t.Error("missing config file should fail")
	}
}

func csvRow(x, y float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64) + "," + strconv.FormatFloat(y, 'f', 4, 64) + "\n"
}
