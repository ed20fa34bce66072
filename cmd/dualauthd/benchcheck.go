package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const defaultRegressionThreshold = 0.30

// trackedBenchmarks are the hot paths whose cost must not regress.
var trackedBenchmarks = map[string][]string{
	"BenchmarkAuthorizeJWT":               {"ns/op", "allocs/op"},
	"BenchmarkAuthorizeCookieMemory":      {"ns/op", "allocs/op"},
	"BenchmarkAuthorizeCookieRedis":       {"ns/op"},
	"BenchmarkAuthenticateCookieParallel": {"ns/op"},
}

var errRegression = errors.New("performance regression threshold exceeded")

// benchSamples maps benchmark name to unit to samples.
type benchSamples map[string]map[string][]float64

// NewBenchcheckCmd creates the benchcheck subcommand.
func NewBenchcheckCmd() *cobra.Command {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:   "benchcheck",
		Short: "Compare go test -bench output against a baseline",
		Long: `Compare the medians of tracked engine benchmarks between a baseline and a
candidate "go test -bench" output and fail when any metric grows by more
than the threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baselinePath == "" || candidatePath == "" {
				return errors.New("--baseline and --candidate are required")
			}
			if threshold < 0 {
				return errors.New("--threshold must be >= 0")
			}
			baseline, err := parseBenchFile(baselinePath)
			if err != nil {
				return fmt.Errorf("parse baseline: %w", err)
			}
			candidate, err := parseBenchFile(candidatePath)
			if err != nil {
				return fmt.Errorf("parse candidate: %w", err)
			}
			return compareBench(cmd.OutOrStdout(), baseline, candidate, threshold)
		},
	}

	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	cmd.Flags().Float64Var(&threshold, "threshold", defaultRegressionThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	return cmd
}

func compareBench(out io.Writer, baseline, candidate benchSamples, threshold float64) error {
	names := make([]string, 0, len(trackedBenchmarks))
	for name := range trackedBenchmarks {
		names = append(names, name)
	}
	slices.Sort(names)

	var failures []string
	fmt.Fprintln(out, "benchmark metric baseline candidate delta")
	for _, name := range names {
		for _, unit := range trackedBenchmarks[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			bm, cm := median(base), median(cand)
			if bm <= 0 {
				// allocs/op of zero cannot regress by ratio; any growth fails.
				if cm > bm {
					failures = append(failures, fmt.Sprintf("%s %s grew from %.0f to %.0f", name, unit, bm, cm))
				}
				fmt.Fprintf(out, "%s %s %.3f %.3f n/a\n", name, unit, bm, cm)
				continue
			}
			delta := (cm - bm) / bm
			fmt.Fprintf(out, "%s %s %.3f %.3f %+0.2f%%\n", name, unit, bm, cm, delta*100)
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, delta*100, threshold*100))
			}
		}
	}

	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Fprintf(out, "  - %s\n", f)
		}
		return fmt.Errorf("%w: %d failing metrics", errRegression, len(failures))
	}
	return nil
}

func parseBenchFile(path string) (benchSamples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBench(f)
}

func parseBench(r io.Reader) (benchSamples, error) {
	samples := benchSamples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := trackedBenchmarks[name]; !ok {
			continue
		}
		if samples[name] == nil {
			samples[name] = map[string][]float64{}
		}
		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			samples[name][fields[i+1]] = append(samples[name][fields[i+1]], v)
		}
	}
	return samples, scanner.Err()
}

// trimProcs strips the -GOMAXPROCS suffix go test appends to names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
