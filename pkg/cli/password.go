package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigilantes/alertmail/pkg/vault"
)

func NewPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password utilities",
	}

	cmd.AddCommand(newPasswordScoreCommand())

	return cmd
}

func newPasswordScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rate a password's strength, read from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password from stdin: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")

			score, feedback := vault.ScorePassword(password)
			fmt.Fprintf(rt.Writer(), "Strength: %d/100\n", score)
			for _, hint := range feedback {
				fmt.Fprintf(rt.Writer(), "  - %s\n", hint)
			}
			return nil
		},
	}

	return cmd
}
