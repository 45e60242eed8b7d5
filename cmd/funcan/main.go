// cmd/funcan/main.go — command-line function analyzer
//
// One-shot:
//   funcan -f "x**2 + 3*x + 5" -min -5 -max 5 -op both -png out.png
//
// Interactive (no -f): prompts for the function, range and operation,
// offering the last values as defaults. Ctrl-D exits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/njchilds90/funcan"
	"github.com/njchilds90/funcan/internal/config"
	"github.com/njchilds90/funcan/internal/observability"
	"github.com/njchilds90/funcan/internal/render"
)

const historyFile = ".funcan_history"

type options struct {
	function string
	min, max string
	op       string
	png      string
	json     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("funcan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	configPath := fs.String("config", "", "YAML or JSON settings file")
	fs.StringVar(&opts.function, "f", "", "function of x, e.g. \"x**2 + 3*x + 5\"")
	fs.StringVar(&opts.min, "min", "", "range minimum")
	fs.StringVar(&opts.max, "max", "", "range maximum")
	fs.StringVar(&opts.op, "op", "", "operation: diff, int or both")
	fs.StringVar(&opts.png, "png", "", "write the chart to this PNG file")
	fs.BoolVar(&opts.json, "json", false, "print the result bundle as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger, err := observability.NewLogger(stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	analyzer := funcan.NewAnalyzer(
		funcan.WithLogger(logger.With(slog.String("component", "cli"))),
		funcan.WithSamples(settings.Samples),
		funcan.WithMaxSamples(settings.MaxSamples),
		funcan.WithQuadrature(funcan.Quadrature{
			AbsTol: settings.QuadAbsTol,
			RelTol: settings.QuadRelTol,
			Limit:  settings.QuadLimit,
		}),
	)

	if opts.function == "" {
		return repl(analyzer, settings, opts, stdout, stderr)
	}
	if opts.min == "" {
		opts.min = formatFloat(settings.DefaultMin)
	}
	if opts.max == "" {
		opts.max = formatFloat(settings.DefaultMax)
	}
	if opts.op == "" {
		opts.op = settings.DefaultOperation
	}
	if err := analyzeOnce(analyzer, settings, opts, stdout); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func analyzeOnce(analyzer *funcan.Analyzer, settings config.Settings, opts options, stdout io.Writer) error {
	op, err := funcan.ParseOperation(opts.op)
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(context.Background(), funcan.Request{
		Func: opts.function,
		XMin: opts.min,
		XMax: opts.max,
		Op:   op,
	})
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if err := funcan.WriteReport(stdout, res); err != nil {
		return err
	}
	if opts.png != "" {
		f, err := os.Create(opts.png)
		if err != nil {
			return err
		}
		if err := render.Chart(f, res, settings.Theme, settings.ChartWidth, settings.ChartHeight); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", opts.png, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "chart written to %s\n", opts.png)
	}
	return nil
}

func repl(analyzer *funcan.Analyzer, settings config.Settings, opts options, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "funcan: enter a function of x, Ctrl-D to quit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	last := options{
		function: settings.DefaultFunction,
		min:      valueOr(opts.min, formatFloat(settings.DefaultMin)),
		max:      valueOr(opts.max, formatFloat(settings.DefaultMax)),
		op:       valueOr(opts.op, settings.DefaultOperation),
		png:      opts.png,
		json:     opts.json,
	}
	for {
		cur := last
		var ok bool
		if cur.function, ok = ask(ln, "f(x) = ", last.function); !ok {
			break
		}
		if cur.min, ok = ask(ln, "min x: ", last.min); !ok {
			break
		}
		if cur.max, ok = ask(ln, "max x: ", last.max); !ok {
			break
		}
		if cur.op, ok = ask(ln, "operation (diff/int/both): ", last.op); !ok {
			break
		}
		ln.AppendHistory(cur.function)

		if err := analyzeOnce(analyzer, settings, cur, stdout); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			continue
		}
		last = cur
	}
	fmt.Fprintln(stdout)
	return 0
}

// ask prompts with def pre-filled. It reports false on Ctrl-D or Ctrl-C.
func ask(ln *liner.State, prompt, def string) (string, bool) {
	line, err := ln.PromptWithSuggestion(prompt, def, -1)
	if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
		return "", false
	}
	if err != nil {
		return def, true
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, true
	}
	return line, true
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
