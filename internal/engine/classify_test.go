package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/soyunomas/dupefinder/internal/entities"
	"github.com/soyunomas/dupefinder/internal/hasher"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func handles(paths ...string) []*entities.FileHandle {
	out := make([]*entities.FileHandle, len(paths))
	for i, p := range paths {
		out[i] = &entities.FileHandle{Path: p, Name: p, Size: 5}
	}
	return out
}

// contentEq compara por un contenido ficticio y cuenta las llamadas.
func contentEq(content map[string]string, calls *int) EqualFunc {
	return func(a, b *entities.FileHandle) (bool, error) {
		*calls++
		return content[a.Path] == content[b.Path], nil
	}
}

func assertCoverage(t *testing.T, dm *entities.DuplicateMap, input []*entities.FileHandle) {
	t.Helper()
	seen := make(map[string]int)
	for _, c := range dm.Clusters() {
		seen[c.Representative.Path]++
		for _, d := range c.Duplicates {
			seen[d.Path]++
		}
	}
	for _, h := range input {
		if seen[h.Path] != 1 {
			t.Errorf("%s appears %d times in the duplicate map", h.Path, seen[h.Path])
		}
	}
	if len(seen) != len(input) || dm.FileCount() != len(input) {
		t.Errorf("Expected %d files in map, got %d (FileCount %d)", len(input), len(seen), dm.FileCount())
	}
}

func TestClassify_Scenario(t *testing.T) {
	content := map[string]string{"a.txt": "hello", "b.txt": "hello", "c.txt": "world"}
	input := handles("a.txt", "b.txt", "c.txt")
	calls := 0

	dm, failures, err := Classify(context.Background(), input, contentEq(content, &calls), entities.PolicyAbort, discardLogger)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("Expected no failures, got %v", failures)
	}

	clusters := dm.Clusters()
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 representatives, got %d", len(clusters))
	}
	if clusters[0].Representative.Path != "a.txt" || len(clusters[0].Duplicates) != 1 || clusters[0].Duplicates[0].Path != "b.txt" {
		t.Errorf("Expected a.txt -> [b.txt], got %+v", clusters[0])
	}
	if clusters[1].Representative.Path != "c.txt" || len(clusters[1].Duplicates) != 0 {
		t.Errorf("Expected c.txt -> [], got %+v", clusters[1])
	}
	// b contra a; c contra a
	if calls != 2 {
		t.Errorf("Expected 2 comparisons, got %d", calls)
	}
	assertCoverage(t, dm, input)
}

func TestClassify_FirstMatchWins(t *testing.T) {
	input := handles("r1", "r2", "x")
	calls := 0
	// r1 y r2 son distintos entre sí, pero x "coincide" con ambos
	eq := func(a, b *entities.FileHandle) (bool, error) {
		calls++
		if b.Path == "x" {
			return true, nil
		}
		return false, nil
	}

	dm, _, err := Classify(context.Background(), input, eq, entities.PolicyAbort, discardLogger)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	r1, _ := dm.Get("r1")
	r2, _ := dm.Get("r2")
	if len(r1.Duplicates) != 1 || len(r2.Duplicates) != 0 {
		t.Errorf("x must only join the first matching representative: r1=%v r2=%v", r1.Duplicates, r2.Duplicates)
	}
	// r2 contra r1, x contra r1 (y se detiene)
	if calls != 2 {
		t.Errorf("Expected 2 comparisons, got %d", calls)
	}
	assertCoverage(t, dm, input)
}

func TestClassify_AllDistinctIsQuadratic(t *testing.T) {
	input := handles("a", "b", "c", "d")
	content := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}
	calls := 0

	dm, _, err := Classify(context.Background(), input, contentEq(content, &calls), entities.PolicyAbort, discardLogger)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if dm.Len() != 4 {
		t.Errorf("Expected 4 representatives, got %d", dm.Len())
	}
	// 1 + 2 + 3
	if calls != 6 {
		t.Errorf("Expected 6 comparisons, got %d", calls)
	}
}

func TestClassify_SingleAndEmpty(t *testing.T) {
	calls := 0
	eq := contentEq(nil, &calls)

	dm, _, err := Classify(context.Background(), handles("only"), eq, entities.PolicyAbort, discardLogger)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	c, ok := dm.Get("only")
	if !ok || len(c.Duplicates) != 0 {
		t.Errorf("Expected single file to be its own representative")
	}

	dm, _, err = Classify(context.Background(), nil, eq, entities.PolicyAbort, discardLogger)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if dm.Len() != 0 {
		t.Errorf("Expected empty map")
	}
	if calls != 0 {
		t.Errorf("Expected no comparisons, got %d", calls)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	content := map[string]string{"a": "x", "b": "y", "c": "x", "d": "y", "e": "x"}
	input := handles("a", "b", "c", "d", "e")

	var first []string
	for run := 0; run < 5; run++ {
		calls := 0
		dm, _, err := Classify(context.Background(), input, contentEq(content, &calls), entities.PolicyAbort, discardLogger)
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		var reps []string
		for _, c := range dm.Clusters() {
			reps = append(reps, c.Representative.Path)
		}
		if run == 0 {
			first = reps
			continue
		}
		if len(reps) != len(first) || reps[0] != first[0] || reps[1] != first[1] {
			t.Errorf("Run %d picked representatives %v, first run %v", run, reps, first)
		}
	}
	if first[0] != "a" || first[1] != "b" {
		t.Errorf("Expected first-seen representatives [a b], got %v", first)
	}
}

func TestClassify_ReadErrorPolicies(t *testing.T) {
	input := handles("a", "b", "c")
	readErr := &hasher.ReadError{Path: "b", Op: "read", Err: errors.New("boom")}
	eq := func(a, b *entities.FileHandle) (bool, error) {
		if a.Path == "b" || b.Path == "b" {
			return false, readErr
		}
		return true, nil
	}

	_, _, err := Classify(context.Background(), input, eq, entities.PolicyAbort, discardLogger)
	if !errors.Is(err, readErr) {
		t.Fatalf("Expected abort with the read error, got %v", err)
	}

	dm, failures, err := Classify(context.Background(), input, eq, entities.PolicySkip, discardLogger)
	if err != nil {
		t.Fatalf("Skip policy should not fail: %v", err)
	}
	if len(failures) != 1 || failures[0].Path != "b" {
		t.Errorf("Expected one recorded failure for b, got %v", failures)
	}
	a, _ := dm.Get("a")
	if len(a.Duplicates) != 1 || a.Duplicates[0].Path != "c" {
		t.Errorf("Expected a -> [c], got %v", a.Duplicates)
	}
	if _, ok := dm.Get("b"); !ok {
		t.Errorf("Unreadable pair is treated as not duplicates, b should be a representative")
	}
	assertCoverage(t, dm, input)
}

func TestClassify_UnreadableFileCountedOnce(t *testing.T) {
	input := handles("a", "b", "c", "z")
	content := map[string]string{"a": "x", "b": "y", "c": "w"}
	eq := func(a, b *entities.FileHandle) (bool, error) {
		if a.Path == "z" || b.Path == "z" {
			return false, &hasher.ReadError{Path: "z", Op: "read", Err: errors.New("boom")}
		}
		return content[a.Path] == content[b.Path], nil
	}

	dm, failures, err := Classify(context.Background(), input, eq, entities.PolicySkip, discardLogger)
	if err != nil {
		t.Fatalf("Skip policy should not fail: %v", err)
	}
	// z falla contra a, b y c, pero es un solo archivo
	if len(failures) != 1 || failures[0].Path != "z" || failures[0].Op != "compare" {
		t.Errorf("Expected exactly one failure for z, got %v", failures)
	}
	if c, ok := dm.Get("z"); !ok || c.HasDuplicates() {
		t.Errorf("z should remain its own representative without duplicates")
	}
	assertCoverage(t, dm, input)
}

func TestClassify_OtherErrorsAlwaysAbort(t *testing.T) {
	boom := errors.New("not a read error")
	eq := func(a, b *entities.FileHandle) (bool, error) { return false, boom }

	_, _, err := Classify(context.Background(), handles("a", "b"), eq, entities.PolicySkip, discardLogger)
	if !errors.Is(err, boom) {
		t.Errorf("Expected unexpected errors to abort even in skip mode, got %v", err)
	}
}

func TestClassify_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, _, err := Classify(ctx, handles("a", "b"), contentEq(nil, &calls), entities.PolicyAbort, discardLogger)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
