package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	"github.com/NamanBalaji/segreq/internal/repository"
	"github.com/NamanBalaji/segreq/internal/styles"
	"github.com/NamanBalaji/segreq/internal/transport"
)

func newProbeCmd(opts *rootOptions) *cobra.Command {
	var (
		seg      segmentFlags
		timeout  time.Duration
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "probe URL",
		Short: "Send the segment request and validate the range the server answers with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := seg.segment(opts.cfg)
			if err != nil {
				return err
			}

			b, err := opts.newBuilder(args, s)
			if err != nil {
				return err
			}

			repo, err := repository.NewBboltRepository(opts.cfg.StateDB)
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if record, err := repo.Find(repository.RecordID(b.Request().OriginalURL())); err == nil {
				b.SetEntityLength(record.EntityLength)
			}

			proberOpts := []transport.Option{transport.WithTimeout(timeout)}
			if insecure {
				proberOpts = append(proberOpts, transport.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
			}

			out := cmd.OutOrStdout()

			res, err := transport.NewProber(proberOpts...).Probe(ctx, b, opts.cfg.Proxy.Address)
			if err != nil {
				reportFailure(out, err)
				return err
			}

			history := b.Request().History()
			for i, hop := range history[1:] {
				fmt.Fprintln(out, styles.StatusRedirect.Render(fmt.Sprintf("redirect %d: %s", i+1, hop)))
			}
			fmt.Fprintln(out, styles.Field("url", res.URL))
			fmt.Fprintln(out, styles.Field("status", fmt.Sprint(res.StatusCode)))
			for _, c := range b.Request().CookieJar().Snapshot() {
				fmt.Fprintln(out, styles.Field("cookie", c.String()))
			}

			return judge(cmd, repo, b, res.Range)
		},
	}

	seg.register(cmd)
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Overall probe timeout")
	cmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "Skip TLS certificate verification")

	return cmd
}

// reportFailure prints the status code and retry hint carried by err.
func reportFailure(out io.Writer, err error) {
	if code, ok := reqErrors.GetStatusCode(err); ok && code > 0 {
		fmt.Fprintln(out, styles.Field("status", fmt.Sprint(code)))
	}

	retry := "no"
	if reqErrors.IsRetryable(err) {
		retry = "yes"
	}
	fmt.Fprintln(out, styles.Field("retryable", retry))
}
