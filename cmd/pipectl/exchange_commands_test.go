package main

import (
	"strings"
	"testing"
	"time"

	"thepipe/internal/exchange"
	"thepipe/internal/testsupport"
	"thepipe/internal/treefile"
)

func TestPushPullRoundTripOverLocalPipe(t *testing.T) {
	env := setupCLITestEnv(t)
	file := testsupport.WriteTreeFile(t, env.baseDir, "scene.yaml", testsupport.SampleTree(t))

	push := runCLIAsync(t, []string{"push", "cli", file}, env.configPath)
	waitForSocket(t, env.cfg, "cli")

	out, _, err := runCLI(t, []string{"pull", "cli", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	got, err := treefile.Decode(strings.NewReader(out), treefile.JSON)
	if err != nil {
		t.Fatalf("decode pulled tree: %v\n%s", err, out)
	}
	if got.Count() != testsupport.SampleTree(t).Count() {
		t.Fatalf("pulled %d nodes, want %d", got.Count(), testsupport.SampleTree(t).Count())
	}

	res := awaitCLI(t, push)
	if res.err != nil {
		t.Fatalf("push: %v", res.err)
	}
	requireContains(t, res.stdout, "Waiting for a consumer on cli")
	requireContains(t, res.stdout, exchange.PushedMessage)

	history, _, err := runCLI(t, []string{"history", "cli"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, outcome := range []string{"sent", "delivered", "received"} {
		requireContains(t, history, outcome)
	}

	stats, _, err := runCLI(t, []string{"history", "--stats"}, env.configPath)
	if err != nil {
		t.Fatalf("history --stats: %v", err)
	}
	requireContains(t, stats, "delivered")
}

func TestPullReportsEmptyPipe(t *testing.T) {
	env := setupCLITestEnv(t)

	_, stderr, err := runCLI(t, []string{"pull", "nobody"}, env.configPath)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	requireContains(t, stderr, "Nothing waiting on nobody")
}

func TestPullRejectsUnknownFormat(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"pull", "cli", "--format", "xml"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestPushTimesOutWithoutConsumer(t *testing.T) {
	env := setupCLITestEnv(t)
	file := testsupport.WriteTreeFile(t, env.baseDir, "scene.json", testsupport.SampleTree(t))

	start := time.Now()
	_, _, err := runCLI(t, []string{"push", "lonely", file, "--timeout", "200ms"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no consumer took the data") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("push ignored --timeout")
	}
}

func TestInspectTreeFile(t *testing.T) {
	env := setupCLITestEnv(t)
	file := testsupport.WriteTreeFile(t, env.baseDir, "scene.yaml", testsupport.SampleTree(t))

	out, _, err := runCLI(t, []string{"inspect", file}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Nodes:  13")
	requireContains(t, out, "Nurbs Surface")
	requireContains(t, out, "TOTAL")
}

func TestInspectPeeksWithoutTaking(t *testing.T) {
	env := setupCLITestEnv(t)
	file := testsupport.WriteTreeFile(t, env.baseDir, "scene.yaml", testsupport.SampleTree(t))

	push := runCLIAsync(t, []string{"push", "peeked", file}, env.configPath)
	waitForSocket(t, env.cfg, "peeked")

	out, _, err := runCLI(t, []string{"inspect", "peeked"}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Source: peeked")
	requireContains(t, out, "Extrusion")

	if _, _, err := runCLI(t, []string{"pull", "peeked", "--format", "table"}, env.configPath); err != nil {
		t.Fatalf("pull after peek: %v", err)
	}
	if res := awaitCLI(t, push); res.err != nil {
		t.Fatalf("push: %v", res.err)
	}
}

func TestDemoRoundTripAppliesSampleScene(t *testing.T) {
	env := setupCLITestEnv(t)

	push := runCLIAsync(t, []string{"demo", "push", "demo"}, env.configPath)
	waitForSocket(t, env.cfg, "demo")

	out, _, err := runCLI(t, []string{"demo", "pull", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("demo pull: %v", err)
	}
	requireContains(t, out, "appended 10 objects")
	requireContains(t, out, "Nurbs Curve")

	if res := awaitCLI(t, push); res.err != nil {
		t.Fatalf("demo push: %v", res.err)
	}
}

func TestHistoryRequiresJournal(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithJournalDisabled())

	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "journal is disabled") {
		t.Fatalf("expected disabled journal error, got %v", err)
	}
}
