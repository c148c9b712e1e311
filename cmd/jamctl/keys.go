package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/jam/keys"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect PEM key material",
	}
	cmd.AddCommand(newKeysInspectCmd())
	return cmd
}

func newKeysInspectCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Describe a PEM private or public key",
		Long: `Describe a PEM private or public key. Private keys print both the key
and its derived public half.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if priv, err := keys.PrivateKey(args[0], password); err == nil {
				fmt.Fprintln(out, keys.Describe(priv))
				fmt.Fprintln(out, keys.Describe(priv.Public()))
				return nil
			}
			pub, err := keys.PublicKeyAuto(args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, keys.Describe(pub))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for an encrypted private key")
	return cmd
}
