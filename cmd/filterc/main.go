// Command filterc compiles a filter document into a PostgreSQL WHERE
// fragment or an ORM where tree and prints it as JSON.
//
//	echo '{"field":"age","operator":"gte","value":18,"type":"int"}' | filterc
//	filterc --mode tree --format msgpack filter.bin
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"filterCompiler/builders"
	"filterCompiler/config"
	"filterCompiler/grammar"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "filterc: %v\n", err)
		os.Exit(1)
	}
}

type sqlOutput struct {
	Where  string `json:"where"`
	Params any    `json:"params"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("filterc", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to a filterc.yaml config file")
	fs.String("mode", "sql", "output: sql or tree")
	fs.String("placeholder", "dollar", "sql placeholders: dollar, colon, at or question")
	fs.Bool("indent", false, "indent JSON output")
	fs.String("format", "json", "input format: json or msgpack")
	fs.String("log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath, fs)
	if err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	input, name, err := readInput(fs.Args(), stdin)
	if err != nil {
		return err
	}
	logger.Debug("read filter document", "source", name, "bytes", len(input), "format", cfg.Input.Format)

	var raw any
	if cfg.Input.Format == "msgpack" {
		raw, err = grammar.DecodeMsgpack(input)
	} else {
		raw, err = grammar.DecodeJSON(input)
	}
	if err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}

	var out any
	switch cfg.Output.Mode {
	case "tree":
		tree, err := builders.BuildWhereTree(raw)
		if err != nil {
			return err
		}
		out = tree
	default:
		style, err := builders.ParsePlaceholder(cfg.Output.Placeholder)
		if err != nil {
			return err
		}
		frag, err := builders.NewPGEncoder(&builders.PGOptions{Placeholder: style}).Encode(raw)
		if err != nil {
			return err
		}
		logger.Debug("compiled filter", "placeholder", cfg.Output.Placeholder, "params", len(frag.Args))

		res := sqlOutput{Where: frag.Where, Params: frag.Args}
		if style == builders.Colon || style == builders.At {
			res.Params = frag.Params()
		}
		out = res
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if cfg.Output.Indent {
		enc.SetIndent("", "  ")
	}
	return errors.Wrap(enc.Encode(out), "write output")
}

func readInput(args []string, stdin io.Reader) ([]byte, string, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(stdin)
		return data, "stdin", errors.Wrap(err, "read stdin")
	case 1:
		data, err := os.ReadFile(args[0])
		return data, args[0], errors.Wrapf(err, "read %s", args[0])
	default:
		return nil, "", errors.Errorf("expected at most one input file, got %d", len(args))
	}
}
