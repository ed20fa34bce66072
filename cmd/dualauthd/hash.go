package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/dualauth/password"
)

type hashConfig struct {
	algorithm string
	password  string
	cost      int
}

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	cfg := &hashConfig{}

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password for a credential record",
		Long: `Print a password hash suitable for the password_hash column. The password
is taken from --password or, when omitted, from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plaintext := cfg.password
			if plaintext == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on stdin or --password")
				}
				plaintext = strings.TrimRight(line, "\r\n")
			}
			if plaintext == "" {
				return errors.New("password must not be empty")
			}

			hasher, err := newHasher(cfg)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(plaintext)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.algorithm, "algorithm", "bcrypt", "hash algorithm (bcrypt or argon2id)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password to hash (default: read from stdin)")
	cmd.Flags().IntVar(&cfg.cost, "cost", 0, "bcrypt cost (0 selects the default)")

	return cmd
}

func newHasher(cfg *hashConfig) (password.Hasher, error) {
	switch strings.ToLower(cfg.algorithm) {
	case "bcrypt":
		return password.NewBcrypt(cfg.cost)
	case "argon2id", "argon2":
		return password.NewArgon2(password.DefaultArgon2Config())
	default:
		return nil, fmt.Errorf("algorithm must be bcrypt or argon2id, got %q", cfg.algorithm)
	}
}
