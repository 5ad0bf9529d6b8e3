package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/tools/benchmark/parse"
)

// Columns of a table loaded from Go benchmark output.
var benchmarkColumns = []string{
	"name",
	"function",
	"procs",
	"iterations",
	"ns_per_op",
	"allocs_per_op",
	"bytes_per_op",
	"mb_per_s",
	"environment",
	"file",
}

// readBenchmarkText reads the text output of "go test -bench".
func readBenchmarkText(r io.Reader, file string) (Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("reading input: %w", err)
	}

	return benchmarkTable(string(content), file)
}

// readBenchmarkJSON reads the output of "go test -json -bench".
//
// The Output fields of "output" events are collected and parsed as text output.
func readBenchmarkJSON(r io.Reader, file string) (Table, error) {
	var textOutput strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event testEvent
		if err := json.Unmarshal(line, &event); err != nil { //nolint:musttag // JSON produced uses titleized keys expected by std json/encoding
			continue
		}

		if event.Action == "output" && event.Output != "" {
			textOutput.WriteString(event.Output)
		}
	}

	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("scanning input: %w", err)
	}

	return benchmarkTable(textOutput.String(), file)
}

func benchmarkTable(text, file string) (Table, error) {
	environment := extractEnvironment(text)

	set, err := parse.ParseSet(strings.NewReader(text))
	if err != nil {
		return Table{}, fmt.Errorf("parsing benchmark output: %w", err)
	}

	benchmarks := make([]*parse.Benchmark, 0, len(set))
	for _, runs := range set {
		benchmarks = append(benchmarks, runs...)
	}
	slices.SortFunc(benchmarks, func(a, b *parse.Benchmark) int {
		return a.Ord - b.Ord
	})

	t := Table{
		Columns: benchmarkColumns,
		Rows:    make([][]any, 0, len(benchmarks)),
	}

	for _, bench := range benchmarks {
		function, procs := splitBenchmarkName(bench.Name)
		t.Rows = append(t.Rows, []any{
			bench.Name,
			function,
			procs,
			int64(bench.N),
			bench.NsPerOp,
			measured(bench, parse.AllocsPerOp, int64(bench.AllocsPerOp)),
			measured(bench, parse.AllocedBytesPerOp, int64(bench.AllocedBytesPerOp)),
			measured(bench, parse.MBPerS, bench.MBPerS),
			environment,
			file,
		})
	}

	return t, nil
}

// measured leaves a metric null when the benchmark did not report it.
func measured[T int64 | float64](bench *parse.Benchmark, metric int, value T) any {
	if bench.Measured&metric == 0 {
		return nil
	}

	return value
}

// splitBenchmarkName strips the "Benchmark" prefix and the GOMAXPROCS suffix from a benchmark name.
//
// Example: "BenchmarkJSON/small-16" yields "JSON/small" and 16.
func splitBenchmarkName(name string) (string, any) {
	function := strings.TrimPrefix(name, "Benchmark")
	function = strings.TrimPrefix(function, "_")

	idx := strings.LastIndex(function, "-")
	if idx <= 0 || idx == len(function)-1 {
		return function, nil
	}

	var procs int64
	for _, r := range function[idx+1:] {
		if r < '0' || r > '9' {
			return function, nil
		}
		procs = procs*10 + int64(r-'0')
	}

	return function[:idx], procs
}

// extractEnvironment extracts environment information from benchmark output.
// It looks for goos, goarch, and cpu lines and combines them.
func extractEnvironment(text string) string {
	var parts []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "goos: "):
			parts = append(parts, strings.TrimPrefix(line, "goos: "))
		case strings.HasPrefix(line, "goarch: "):
			parts = append(parts, strings.TrimPrefix(line, "goarch: "))
		case strings.HasPrefix(line, "cpu: "):
			cpu := strings.TrimSpace(strings.TrimPrefix(line, "cpu: "))
			parts = append(parts, "cpu: "+cpu)
		}
	}

	if len(parts) == 0 {
		return "unknown environment"
	}

	return strings.Join(parts, " ")
}

// testEvent represents a single JSON event from `go test -json` output.
// See: https://pkg.go.dev/cmd/test2json
type testEvent struct {
	Time    string
	Action  string
	Package string
	Test    string
	Output  string
	Elapsed float64
}
