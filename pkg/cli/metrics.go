package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vigilantes/alertmail/pkg/metrics"
)

func NewMetricsCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())

			server := &http.Server{Addr: listenAddr, Handler: mux}
			go func() {
				<-cmd.Context().Done()
				_ = server.Close()
			}()

			fmt.Fprintf(rt.Writer(), "Serving metrics on %s/metrics\n", listenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:9464", "Listen address for the metrics endpoint")

	return cmd
}
