// Package bootstrap drives the self-hosting fixed-point check and golden
// test/benchmark harness of the compiler's external interfaces. It is
// grounded on two pack conventions: sunholo-data-ailang's eval_harness,
// which loads a YAML benchmark manifest with gopkg.in/yaml.v3 and reports
// pass/fail per case, and the teacher compiler's own sequential driver
// (main.go's run function), which threads one pipeline stage into the
// next and stops at the first failure.
package bootstrap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GoldenProgram is one literal-input/expected-stdout pair from the
// end-to-end scenario table.
type GoldenProgram struct {
	Name       string `yaml:"name"`
	Source     string `yaml:"source"`
	WantStdout string `yaml:"want_stdout"`
	WantExit   int64  `yaml:"want_exit"`
}

// Benchmark is one Tier-N compute benchmark compared against a reference
// runtime. ReferenceSeconds stands in for "the C reference implementation's
// measured time" since this repo has no C toolchain to invoke; a real
// harness would replace it with an actual timed run.
type Benchmark struct {
	Name             string  `yaml:"name"`
	Tier             int     `yaml:"tier"`
	Source           string  `yaml:"source"`
	ReferenceSeconds float64 `yaml:"reference_seconds"`
}

// Config is the bmb.bootstrap.yaml descriptor: the golden program list,
// benchmark tier assignments and the performance-gate ratio.
type Config struct {
	// SelfSource names the BMB source file the fixed-point check compiles
	// twice. The protocol's stage 1/2/3 names a real self-hosted compiler
	// written in BMB; this repo has no such program (see Run's doc
	// comment), so SelfSource stands for "the program under fixed-point
	// test" rather than literally the compiler's own source.
	SelfSource    string          `yaml:"self_source"`
	PerfGateRatio float64         `yaml:"perf_gate_ratio"`
	Golden        []GoldenProgram `yaml:"golden"`
	Benchmarks    []Benchmark     `yaml:"benchmarks"`
}

const defaultPerfGateRatio = 1.10

// LoadConfig reads and validates a bootstrap descriptor from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: parsing %s: %w", path, err)
	}
	if cfg.SelfSource == "" {
		return nil, fmt.Errorf("bootstrap: %s missing required field self_source", path)
	}
	if cfg.PerfGateRatio <= 0 {
		cfg.PerfGateRatio = defaultPerfGateRatio
	}
	return &cfg, nil
}
