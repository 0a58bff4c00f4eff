package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	seghttp "github.com/NamanBalaji/segreq/internal/http"
	"github.com/NamanBalaji/segreq/internal/logger"
	"github.com/NamanBalaji/segreq/internal/repository"
	"github.com/NamanBalaji/segreq/internal/styles"
)

var ErrRangeRejected = errors.New("range rejected")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		seg          segmentFlags
		contentRange string
		contentLen   int64
	)

	cmd := &cobra.Command{
		Use:   "check URL --content-range 'bytes A-B/C'",
		Short: "Decide whether a response range may be appended to a segment",
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

			var rng seghttp.Range
			switch {
			case contentRange != "":
				rng, err = seghttp.ParseContentRange(contentRange)
				if err != nil {
					return err
				}
			case contentLen > 0:
				rng = seghttp.Range{Start: 0, End: contentLen - 1, EntityLength: contentLen}
			}

			repo, err := repository.NewBboltRepository(opts.cfg.StateDB)
			if err != nil {
				return err
			}
			defer repo.Close()

			return judge(cmd, repo, b, rng)
		},
	}

	seg.register(cmd)
	cmd.Flags().StringVar(&contentRange, "content-range", "", "Content-Range the server answered with")
	cmd.Flags().Int64Var(&contentLen, "content-length", 0, "Content-Length of a full (200) response without Content-Range")

	return cmd
}

// judge checks rng against the builder using the entity length recorded for
// the request's original URL, records a first-seen length on acceptance and
// prints the verdict. A rejected segment is reset to restart from its offset.
func judge(cmd *cobra.Command, repo repository.Repository, b *seghttp.Builder, rng seghttp.Range) error {
	rawURL := b.Request().OriginalURL()

	record, err := repo.Find(repository.RecordID(rawURL))
	switch {
	case err == nil:
		b.SetEntityLength(record.EntityLength)
	case !errors.Is(err, repository.ErrRecordNotFound):
		return err
	}

	verdict := b.CheckRange(rng)
	if verdict == nil && rng.EntityLength > 0 {
		if _, err := repo.Confirm(rawURL, rng.EntityLength); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Field("segment", b.Segment().String()))
	fmt.Fprintln(out, styles.Field("range", rng.String()))
	fmt.Fprintln(out, styles.Field("expected start", fmt.Sprint(b.StartByte())))
	if end := b.EndByte(); end > 0 {
		fmt.Fprintln(out, styles.Field("expected end", fmt.Sprint(end)))
	}
	if n := b.EntityLength(); n > 0 {
		fmt.Fprintln(out, styles.Field("confirmed length", fmt.Sprint(n)))
	}
	fmt.Fprintln(out, styles.Verdict(verdict))

	if verdict != nil {
		logger.Infof("Rejected %s for %s: %v", rng, rawURL, verdict)

		if s := b.Segment(); s != nil && !s.IsUnbounded() {
			s.Reset()
			fmt.Fprintln(out, styles.Field("restart from", fmt.Sprint(b.StartByte())))
		}

		return fmt.Errorf("%w: %w", ErrRangeRejected, verdict)
	}

	return nil
}
