package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/vigilantes/alertmail/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage email delivery configuration",
	}

	cmd.AddCommand(
		newConfigSetCommand(),
		newConfigShowCommand(),
		newConfigExportCommand(),
		newConfigImportCommand(),
	)

	return cmd
}

func newConfigSetCommand() *cobra.Command {
	var (
		provider      string
		smtpServer    string
		smtpPort      int
		useTLS        bool
		senderEmail   string
		password      string
		passwordStdin bool
		authMethod    string
		timeout       int
		maxRetries    int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set and persist the email configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if passwordStdin {
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			p, err := config.ParseProvider(provider)
			if err != nil {
				return err
			}
			var method config.AuthMethod
			if authMethod != "" {
				method, err = config.ParseAuthMethod(authMethod)
				if err != nil {
					return err
				}
			}

			cfg := &config.EmailConfig{
				Provider:       p,
				SMTPServer:     smtpServer,
				SMTPPort:       smtpPort,
				UseTLS:         useTLS,
				SenderEmail:    senderEmail,
				SenderPassword: password,
				AuthMethod:     method,
				Timeout:        timeout,
				MaxRetries:     maxRetries,
			}

			store, err := rt.Store()
			if err != nil {
				return err
			}
			if err := store.Save(cfg, "set via alertmailctl"); err != nil {
				var vErr *config.ValidationError
				if errors.As(err, &vErr) {
					fmt.Fprintln(rt.Writer(), "Configuration rejected:")
					for _, violation := range vErr.Violations {
						fmt.Fprintf(rt.Writer(), "  - %s\n", violation)
					}
				}
				return err
			}
			fmt.Fprintf(rt.Writer(), "Configuration saved to %s\n", rt.dataDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Email provider: gmail, outlook, yahoo or custom")
	cmd.Flags().StringVar(&smtpServer, "smtp-server", "", "SMTP server hostname (required for custom provider)")
	cmd.Flags().IntVar(&smtpPort, "smtp-port", 0, "SMTP server port (required for custom provider)")
	cmd.Flags().BoolVar(&useTLS, "use-tls", true, "Use TLS for the SMTP connection")
	cmd.Flags().StringVar(&senderEmail, "sender-email", "", "Sender email address")
	cmd.Flags().StringVar(&password, "sender-password", "", "Sender password or app password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin instead of a flag")
	cmd.Flags().StringVar(&authMethod, "auth-method", "", "Authentication method: password, app_password or oauth2")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Per-attempt SMTP timeout in seconds")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retries after the initial send attempt")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("sender-email")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current configuration with credentials redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					return errors.New("no configuration found, run 'alertmailctl config set' first")
				}
				return err
			}
			cfg.SenderPassword = ""
			return writeConfig(rt, cfg, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: yaml or json")

	return cmd
}

func writeConfig(rt *runtimeState, cfg *config.EmailConfig, format string) error {
	switch format {
	case "json":
		return writeJSON(rt.Writer(), cfg)
	case "yaml", "":
		view := map[string]any{
			"provider":     string(cfg.Provider),
			"smtp_server":  cfg.SMTPServer,
			"smtp_port":    cfg.SMTPPort,
			"use_tls":      cfg.UseTLS,
			"sender_email": cfg.SenderEmail,
			"auth_method":  string(cfg.AuthMethod),
			"timeout":      cfg.Timeout,
			"max_retries":  cfg.MaxRetries,
		}
		data, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(rt.Writer(), string(data))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func newConfigExportCommand() *cobra.Command {
	var (
		includeCredentials bool
		outFile            string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configuration as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			data, err := store.Export(includeCredentials)
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = fmt.Fprintln(rt.Writer(), string(data))
				return err
			}
			if err := os.WriteFile(outFile, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(rt.Writer(), "Configuration exported to %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeCredentials, "include-credentials", false, "Include the sender password in the export")
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Write to a file instead of stdout")

	return cmd
}

func newConfigImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			if err := store.Import(data); err != nil {
				var vErr *config.ValidationError
				if errors.As(err, &vErr) {
					fmt.Fprintln(rt.Writer(), "Imported configuration rejected:")
					for _, violation := range vErr.Violations {
						fmt.Fprintf(rt.Writer(), "  - %s\n", violation)
					}
				}
				return err
			}
			fmt.Fprintln(rt.Writer(), "Configuration imported")
			return nil
		},
	}

	return cmd
}
