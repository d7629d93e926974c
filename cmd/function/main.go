// Command function runs the local pickup decision once, reading a FunctionInput
// document and writing the FunctionRunResult the checkout host expects.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/contracts/jsonschema"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
)

const serviceName = "pickup-function"

const (
	exitOK           = 0
	exitInvalidInput = 1
	exitUsage        = 2
)

// Options are the command line flags
type Options struct {
	Input  string `short:"i" long:"input" description:"Read FunctionInput JSON from this file instead of stdin"`
	Output string `short:"o" long:"output" description:"Write the FunctionRunResult to this file instead of stdout"`
	Policy string `short:"p" long:"policy" description:"Pickup policy to decide under [default, strict]" default:"default"`
	Pretty bool   `long:"pretty" description:"Indent the JSON output"`
	Schema bool   `long:"print-schema" description:"Write the FunctionInput JSON Schema and exit"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.Schema {
		if err := writeOutput(opts.Output, stdout, jsonschema.Schema()); err != nil {
			fmt.Fprintln(stderr, err)
			return exitInvalidInput
		}
		return exitOK
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "warn"))
	logConfig.Output = stderr
	logger := logging.New(logConfig)

	policy, err := domain.PolicyByName(opts.Policy)
	if err != nil {
		logger.WithError(err).Error("Invalid pickup policy", "policy", opts.Policy)
		return exitUsage
	}

	raw, err := readInput(opts.Input, stdin)
	if err != nil {
		logger.WithError(err).Error("Failed to read function input")
		return exitInvalidInput
	}

	decoder, err := application.NewInputDecoder()
	if err != nil {
		logger.WithError(err).Error("Failed to compile input schema")
		return exitInvalidInput
	}

	input, err := decoder.Decode(raw)
	if err != nil {
		attrs := []any{}
		if appErr, ok := errors.AsAppError(err); ok && len(appErr.Details) > 0 {
			attrs = append(attrs, "fields", appErr.Details)
		}
		logger.WithError(err).Error("Malformed function input", attrs...)
		return exitInvalidInput
	}

	decision := domain.Evaluate(input, policy)
	if decision.ConfigErr != nil {
		logger.Warn("Generator configuration is malformed, using defaults", "error", decision.ConfigErr.Error())
	}
	logger.Debug("Pickup decided", "policy", policy.Name, "outcome", string(decision.Outcome), "locationHandle", decision.LocationHandle)

	if err := writeResult(opts.Output, stdout, decision.Result, opts.Pretty); err != nil {
		logger.WithError(err).Error("Failed to write function result")
		return exitInvalidInput
	}
	return exitOK
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeResult(path string, stdout io.Writer, result domain.FunctionRunResult, pretty bool) error {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(result, "", "  ")
	} else {
		out, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return writeOutput(path, stdout, append(out, '\n'))
}

func writeOutput(path string, stdout io.Writer, out []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
