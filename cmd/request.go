package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segreq/internal/styles"
)

func newRequestCmd(opts *rootOptions) *cobra.Command {
	var (
		seg    segmentFlags
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "request URL [REDIRECT...]",
		Short: "Print the GET request for a segment",
		Long: "Print the GET request for a segment. Extra URLs are replayed as " +
			"redirects, so the last one is fetched and the one before it is the Referer.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := seg.segment(opts.cfg)
			if err != nil {
				return err
			}

			b, err := opts.newBuilder(args, s)
			if err != nil {
				return err
			}

			text, err := b.CreateRequest()
			if err != nil {
				return err
			}

			return printRequest(cmd, text, pretty)
		},
	}

	seg.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Show CRLF line endings")

	return cmd
}

func newConnectCmd(opts *rootOptions) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "connect URL",
		Short: "Print the CONNECT request that tunnels to URL through a proxy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.newBuilder(args, nil)
			if err != nil {
				return err
			}

			text, err := b.CreateProxyRequest()
			if err != nil {
				return err
			}

			return printRequest(cmd, text, pretty)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "Show CRLF line endings")

	return cmd
}

func printRequest(cmd *cobra.Command, text string, pretty bool) error {
	if pretty {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), styles.Request(text))
		return err
	}

	_, err := fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
