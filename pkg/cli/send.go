package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilantes/alertmail/pkg/mail"
)

func NewSendTestCommand() *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test email through the stored configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.Manager()
			if err != nil {
				return err
			}

			to := recipient
			if to == "" {
				to = rt.settings.DefaultRecipient
			}
			if to == "" {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				cfg, err := store.Load()
				if err != nil {
					return err
				}
				to = cfg.SenderEmail
			}

			msg, err := mail.RenderTestMail(to)
			if err != nil {
				return err
			}

			result := manager.Send(cmd.Context(), msg, to)
			if !result.Succeeded() {
				return fmt.Errorf("test email to %s failed after %d attempt(s) (%s): %w",
					to, result.Attempts, result.Category, result.Err)
			}
			fmt.Fprintf(rt.Writer(), "Test email delivered to %s in %d attempt(s)\n", to, result.Attempts)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "to", "", "Recipient address (defaults to the configured sender)")

	return cmd
}

func NewCheckCommand() *cobra.Command {
	var sendTest bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the stored configuration stage by stage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.Manager()
			if err != nil {
				return err
			}

			report := manager.CheckConfiguration(cmd.Context(), sendTest)
			for _, stage := range report.Stages {
				status := "ok"
				if !stage.OK {
					status = fmt.Sprintf("failed: %v", stage.Err)
				}
				fmt.Fprintf(rt.Writer(), "%-14s %s (%s)\n", stage.Stage, status, stage.Duration.Round(time.Millisecond))
			}
			if !report.OK() {
				return errors.New("configuration check failed")
			}
			fmt.Fprintln(rt.Writer(), "Configuration check passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&sendTest, "send-test", false, "Also deliver a test mail to the configured sender")

	return cmd
}
