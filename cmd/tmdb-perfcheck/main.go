// Command tmdb-perfcheck compares two `go test -bench` outputs and fails when a
// tracked benchmark regresses past a threshold.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

const defaultThreshold = 0.30

var defaultTracked = map[string][]string{
	"BenchmarkLogin":           {"ns/op", "allocs/op"},
	"BenchmarkSessionByHandle": {"ns/op", "allocs/op"},
	"BenchmarkValidateTicket":  {"ns/op", "allocs/op"},
	"BenchmarkMetricsSnapshot": {"ns/op"},
}

// sampleSet maps benchmark -> unit -> samples.
type sampleSet map[string]map[string][]float64

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:           "tmdb-perfcheck",
		Short:         "Fail when tracked benchmarks regress",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold < 0 {
				return errors.New("--threshold must be >= 0")
			}
			baseline, err := parseBenchmarkFile(baselinePath, defaultTracked)
			if err != nil {
				return fmt.Errorf("parse baseline: %w", err)
			}
			candidate, err := parseBenchmarkFile(candidatePath, defaultTracked)
			if err != nil {
				return fmt.Errorf("parse candidate: %w", err)
			}

			rows, failures := compare(baseline, candidate, defaultTracked, threshold)
			fmt.Fprintln(out, "benchmark metric baseline candidate delta")
			for _, row := range rows {
				fmt.Fprintln(out, row)
			}
			if len(failures) > 0 {
				return fmt.Errorf("performance regression threshold exceeded:\n  - %s", strings.Join(failures, "\n  - "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	cmd.Flags().Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

func compare(baseline, candidate sampleSet, tracked map[string][]string, threshold float64) ([]string, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows, failures []string
	for _, benchmark := range names {
		for _, metric := range tracked[benchmark] {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)
			if baseMedian <= 0 {
				if candidateMedian > 0 {
					failures = append(failures, fmt.Sprintf("%s %s grew from zero to %.3f", benchmark, metric, candidateMedian))
				}
				continue
			}

			delta := (candidateMedian - baseMedian) / baseMedian
			rows = append(rows, fmt.Sprintf("%s %s %.3f %.3f %+0.2f%%", benchmark, metric, baseMedian, candidateMedian, delta*100))
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseBenchmarkFile(path string, tracked map[string][]string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, tracked)
}

func parseBenchmarks(r io.Reader, tracked map[string][]string) (sampleSet, error) {
	samples := sampleSet{}
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

		name := normalizeBenchmarkName(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// normalizeBenchmarkName strips the -GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
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

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
