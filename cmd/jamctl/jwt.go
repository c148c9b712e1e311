package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam"
)

type jwtFlags struct {
	alg       string
	key       string
	publicKey string
	password  string
}

func (f *jwtFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.alg, "alg", "HS256", "JWT algorithm (HS*, RS*, ES*, PS*)")
	cmd.Flags().StringVar(&f.key, "key", "", "HMAC secret, PEM key or path to a PEM file")
	cmd.Flags().StringVar(&f.publicKey, "public-key", "", "verification key when --key holds a private key")
	cmd.Flags().StringVar(&f.password, "password", "", "password for an encrypted private key")
}

// apply overrides the JWT section with every flag the user set.
func (f *jwtFlags) apply(cmd *cobra.Command, cfg *jam.Config) {
	if cfg.JWT == nil {
		cfg.JWT = &jam.JWTConfig{Alg: f.alg}
	}
	// The list store belongs to the serving process, not to offline tooling.
	cfg.JWT.List = nil
	if cmd.Flags().Changed("alg") || cfg.JWT.Alg == "" {
		cfg.JWT.Alg = f.alg
	}
	if cmd.Flags().Changed("key") {
		cfg.JWT.Secret = f.key
	}
	if cmd.Flags().Changed("public-key") {
		cfg.JWT.PublicKey = f.publicKey
	}
	if cmd.Flags().Changed("password") {
		cfg.JWT.Password = f.password
	}
}

func newJWTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Encode and decode JSON Web Tokens",
	}
	cmd.AddCommand(newJWTEncodeCmd(), newJWTDecodeCmd())
	return cmd
}

func newJWTEncodeCmd() *cobra.Command {
	var (
		flags jwtFlags
		exp   time.Duration
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "encode [payload-json|-]",
		Short: "Sign a JSON payload as a JWT",
		Long: `Sign a JSON object as a JWT. The payload is read from the argument or,
when absent or "-", from stdin. Unless --raw is set, iat, exp and jti claims
are added the same way MakePayload does.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			inst, err := buildInstance(cmd, func(cfg *jam.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			defer inst.Close()

			if !raw {
				payload = inst.MakePayload(exp, payload)
			}
			token, err := inst.CreateJWT(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&exp, "exp", 0, "token lifetime; zero uses the configured expire")
	cmd.Flags().BoolVar(&raw, "raw", false, "sign the payload as given, without iat, exp and jti")
	return cmd
}

func newJWTDecodeCmd() *cobra.Command {
	var (
		flags jwtFlags
		noExp bool
	)
	cmd := &cobra.Command{
		Use:   "decode [token|-]",
		Short: "Verify a JWT and print its payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			inst, err := buildInstance(cmd, func(cfg *jam.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			defer inst.Close()

			payload, err := inst.VerifyJWT(cmd.Context(), token, !noExp, false)
			if err != nil {
				return err
			}
			return writeJSON(cmd, payload)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noExp, "no-exp", false, "accept tokens past their exp claim")
	return cmd
}
