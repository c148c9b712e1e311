package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam"
)

// Exit codes for jamctl commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (bad flags, unreadable input).
	ExitCodeError = 1
	// ExitCodeRejected indicates a token or OTP code was rejected.
	ExitCodeRejected = 2
	// ExitCodeConfig indicates invalid configuration or key material.
	ExitCodeConfig = 3
)

var buildVersion = "dev"

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	buildVersion = v
}

// newRootCmd builds the full command tree. Every call returns fresh commands
// so tests can run them in isolation.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jamctl",
		Short: "Encode, decode and inspect JWT, PASETO and OTP material",
		Long: `jamctl is a thin command line front end for the jam library.
It encodes and decodes JWT and PASETO tokens, computes and checks OTP codes,
inspects PEM keys and validates jam configuration files.`,
		Version: buildVersion,
		// Errors are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "jamctl version %s\n" .Version}}`)
	root.PersistentFlags().String("config", "", "jam config file (YAML or JSON); flags override its values")

	root.AddCommand(
		newJWTCmd(),
		newPASETOCmd(),
		newOTPCmd(),
		newKeysCmd(),
		newConfigCmd(),
		newBenchCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs jamctl and exits with a code derived from the error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(getExitCode(err))
	}
}

func getExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, jam.ErrVerification),
		errors.Is(err, jam.ErrExpired),
		errors.Is(err, jam.ErrListed),
		errors.Is(err, jam.ErrAlgorithmMismatch),
		errors.Is(err, jam.ErrFormat),
		errors.Is(err, jam.ErrOTPInvalid),
		errors.Is(err, jam.ErrOTPRateLimited):
		return ExitCodeRejected
	case errors.Is(err, jam.ErrConfiguration):
		return ExitCodeConfig
	default:
		return ExitCodeError
	}
}

// baseConfig returns the config named by --config, or DefaultConfig.
func baseConfig(cmd *cobra.Command) (jam.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return jam.DefaultConfig(), nil
	}
	return jam.LoadConfig(path)
}

// buildInstance loads the base config, lets mutate apply flag overrides and
// builds an Instance. Callers must Close it.
func buildInstance(cmd *cobra.Command, mutate func(*jam.Config)) (*jam.Instance, error) {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return nil, err
	}
	mutate(&cfg)
	return jam.New().WithConfig(cfg).Build()
}

// readInput returns args[0], or stdin when no argument or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readPayload(cmd *cobra.Command, args []string) (map[string]any, error) {
	raw, err := readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
