package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with jam configuration files",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Load a config file, build every module and list them",
		Long: `Load a config file with environment overrides applied, build an
Instance from it and print the configured modules. Redis-backed modules are
created but not contacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := jam.LoadConfig(args[0])
			if err != nil {
				return err
			}
			inst, err := jam.New().WithConfig(cfg).Build()
			if err != nil {
				return err
			}
			defer inst.Close()

			cfg = inst.Config()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "auth_type: %s\n", cfg.AuthType)
			fmt.Fprintf(out, "serializer: %s\n", cfg.Serializer)
			if cfg.JWT != nil {
				line := "jwt: " + cfg.JWT.Alg
				if cfg.JWT.List != nil {
					line += fmt.Sprintf(" (%s list, %s)", cfg.JWT.List.Type, cfg.JWT.List.Backend)
				}
				fmt.Fprintln(out, line)
			}
			if cfg.PASETO != nil {
				fmt.Fprintf(out, "paseto: %s.%s\n", cfg.PASETO.Version, cfg.PASETO.Purpose)
			}
			if cfg.Session != nil {
				fmt.Fprintf(out, "session: %s (ttl %s)\n", cfg.Session.Backend, cfg.Session.TTL)
			}
			if cfg.OTP != nil {
				fmt.Fprintf(out, "otp: %s %d digits %s\n", cfg.OTP.Type, cfg.OTP.Digits, cfg.OTP.Digest)
			}
			if providers := inst.OAuth2Providers(); len(providers) > 0 {
				fmt.Fprintf(out, "oauth2: %s\n", strings.Join(providers, ", "))
			}
			return nil
		},
	}
}
