package main

import (
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam"
)

type otpFlags struct {
	secret   string
	typ      string
	digits   int
	digest   string
	interval time.Duration
	window   int
	issuer   string
}

func (f *otpFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secret, "secret", "", "base32 shared secret")
	cmd.Flags().StringVar(&f.typ, "type", "totp", "OTP type (totp or hotp)")
	cmd.Flags().IntVar(&f.digits, "digits", 6, "code length")
	cmd.Flags().StringVar(&f.digest, "digest", "SHA1", "HMAC digest (SHA1, SHA256, SHA512)")
	cmd.Flags().DurationVar(&f.interval, "interval", 30*time.Second, "TOTP step")
	cmd.Flags().IntVar(&f.window, "window", 1, "accepted TOTP drift in steps or HOTP look-ahead")
	cmd.Flags().StringVar(&f.issuer, "issuer", "", "issuer shown by authenticator apps")
	_ = cmd.MarkFlagRequired("secret")
}

func (f *otpFlags) apply(cmd *cobra.Command, cfg *jam.Config) {
	if cfg.OTP == nil {
		cfg.OTP = &jam.OTPConfig{}
	}
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("type") || cfg.OTP.Type == "" {
		cfg.OTP.Type = f.typ
	}
	if set("digits") || cfg.OTP.Digits == 0 {
		cfg.OTP.Digits = f.digits
	}
	if set("digest") || cfg.OTP.Digest == "" {
		cfg.OTP.Digest = f.digest
	}
	if set("interval") || cfg.OTP.Interval == 0 {
		cfg.OTP.Interval = f.interval
	}
	if set("window") {
		cfg.OTP.Window = f.window
	}
	if set("issuer") {
		cfg.OTP.Issuer = f.issuer
	}
}

func newOTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Compute and check HOTP and TOTP codes",
	}
	cmd.AddCommand(newOTPCodeCmd(), newOTPVerifyCmd(), newOTPSecretCmd(), newOTPURICmd())
	return cmd
}

func newOTPCodeCmd() *cobra.Command {
	var (
		flags  otpFlags
		factor int64
	)
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Print the code for a secret",
		Long: `Print the code for a secret. --factor is the counter for HOTP and a unix
time in seconds for TOTP, where zero means now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := buildInstance(cmd, func(cfg *jam.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			defer inst.Close()

			code, err := inst.OTPCode(flags.secret, factor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&factor, "factor", 0, "HOTP counter or TOTP unix time")
	return cmd
}

func newOTPVerifyCmd() *cobra.Command {
	var (
		flags  otpFlags
		factor int64
	)
	cmd := &cobra.Command{
		Use:   "verify <code>",
		Short: "Check a code against a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := buildInstance(cmd, func(cfg *jam.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			defer inst.Close()

			if err := inst.OTPVerify(cmd.Context(), flags.secret, args[0], factor); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&factor, "factor", 0, "HOTP counter or TOTP unix time")
	return cmd
}

func newOTPSecretCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random base32 secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := jam.OTPSecret(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 20, "secret length in bytes")
	return cmd
}

func newOTPURICmd() *cobra.Command {
	var (
		flags  otpFlags
		qrPath string
		qrSize int
	)
	cmd := &cobra.Command{
		Use:   "uri <account>",
		Short: "Print an otpauth:// provisioning URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := buildInstance(cmd, func(cfg *jam.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			defer inst.Close()

			uri, err := inst.OTPURI(flags.secret, args[0])
			if err != nil {
				return err
			}
			if qrPath != "" {
				if err := qrcode.WriteFile(uri, qrcode.Medium, qrSize, qrPath); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&qrPath, "qr", "", "also write the URI as a PNG QR code to this path")
	cmd.Flags().IntVar(&qrSize, "qr-size", 256, "QR code size in pixels")
	return cmd
}
