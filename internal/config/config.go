package config

import (
	"fmt"
	"strconv"
	"strings"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Config holds every benchmark knob. Default() is the compiled-in run; the
// command line only overrides it.
type Config struct {
	Sizes []int

	// Repeat applies to cblas and rknn. The naive loop gets its own, much
	// smaller, count so a 2048 run finishes in minutes rather than hours.
	Repeat      int
	NaiveRepeat int

	Format Format

	LogLevel  string
	LogFormat string

	// MetricsAddr enables the Prometheus listener when non-empty.
	MetricsAddr string

	// NPUDriver is "rknn" or "emulated". The emulator is never chosen
	// implicitly: a missing rknn binding aborts the run.
	NPUDriver string
	// NativeLayout requests the accelerator's native operand layout instead of
	// plain row-major. Only meaningful for rknn.
	NativeLayout bool
}

func Default() Config {
	return Config{
		Sizes:        []int{256, 512, 1024, 2048},
		Repeat:       20,
		NaiveRepeat:  3,
		Format:       FormatMarkdown,
		LogLevel:     "info",
		LogFormat:    "console",
		NPUDriver:    "rknn",
		NativeLayout: true,
	}
}

func (c *Config) Validate() error {
	if len(c.Sizes) == 0 {
		return fmt.Errorf("invalid sizes: at least one size is required")
	}
	for i, s := range c.Sizes {
		if s <= 0 {
			return fmt.Errorf("invalid size: %d (must be positive)", s)
		}
		if i > 0 && s <= c.Sizes[i-1] {
			return fmt.Errorf("invalid sizes: %v (must be strictly ascending)", c.Sizes)
		}
	}
	if c.Repeat <= 0 {
		return fmt.Errorf("invalid repeat: %d (must be positive)", c.Repeat)
	}
	if c.NaiveRepeat <= 0 {
		return fmt.Errorf("invalid naive_repeat: %d (must be positive)", c.NaiveRepeat)
	}
	switch c.Format {
	case FormatMarkdown, FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("invalid format: %q (want markdown, csv or json)", c.Format)
	}
	switch c.NPUDriver {
	case "rknn", "emulated":
	default:
		return fmt.Errorf("invalid npu driver: %q (want rknn or emulated)", c.NPUDriver)
	}
	return nil
}

// ParseSizes parses a comma separated size list such as "256,512,1024".
func ParseSizes(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", f, err)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes in %q", s)
	}
	return sizes, nil
}
