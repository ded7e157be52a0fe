package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/hash"
)

func newHashCmd(root *rootOptions) *cobra.Command {
	var (
		user      string
		skillList []string
	)

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the verification hash for a username and verified skills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			if root.cfg.SecretKey == "" {
				return errNoSecret
			}
			h, err := hash.New(root.cfg.SecretKey)
			if err != nil {
				return err
			}

			verified := make([]string, 0, len(skillList))
			for _, s := range skillList {
				if s = strings.TrimSpace(s); s != "" {
					verified = append(verified, s)
				}
			}
			digest, err := h.Hash(strings.TrimSpace(user), verified)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "GitHub username")
	cmd.Flags().StringSliceVar(&skillList, "skills", nil, "Comma-separated verified skills")
	return cmd
}
