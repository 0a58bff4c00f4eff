package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	seghttp "github.com/NamanBalaji/segreq/internal/http"
	"github.com/NamanBalaji/segreq/internal/logger"
	"github.com/NamanBalaji/segreq/internal/request"
	"github.com/NamanBalaji/segreq/internal/segment"
	"github.com/NamanBalaji/segreq/internal/styles"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		total         int64
		segmentLength int64
	)

	cmd := &cobra.Command{
		Use:   "plan URL --total BYTES",
		Short: "Split a resource into segments and print the request for each",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if segmentLength == 0 {
				segmentLength = opts.cfg.SegmentLength
			}

			segments, err := segment.Plan(total, segmentLength)
			if err != nil {
				return err
			}

			factory, err := request.NewFactory(opts.cfg)
			if err != nil {
				return err
			}

			// seeds the shared jar once
			if _, err := opts.newRequest(factory, args); err != nil {
				return err
			}

			httpCfg := seghttp.ConfigFrom(opts.cfg)
			texts := make([]string, len(segments))

			g := new(errgroup.Group)
			g.SetLimit(max(opts.cfg.Connections, 1))

			for i, s := range segments {
				g.Go(func() error {
					r, err := openRequest(factory, args)
					if err != nil {
						return err
					}

					b := seghttp.NewBuilder(httpCfg)
					b.SetRequest(r)
					b.SetSegment(s)

					texts[i], err = b.CreateRequest()
					return err
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}

			logger.Infof("Built %d segment requests for %s", len(segments), args[0])

			out := cmd.OutOrStdout()
			for i, s := range segments {
				header := fmt.Sprintf("segment %d: bytes %d-%d (%d)", s.Index, s.Offset(), s.EndPosition(), s.Length)
				fmt.Fprintln(out, styles.HeaderStyle.Render(header))
				fmt.Fprint(out, texts[i])
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&total, "total", 0, "Total resource length in bytes")
	cmd.Flags().Int64Var(&segmentLength, "segment-length", 0, "Segment length (default from config)")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}
