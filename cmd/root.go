package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segreq/internal/config"
	"github.com/NamanBalaji/segreq/internal/cookie"
	reqErrors "github.com/NamanBalaji/segreq/internal/errors"
	seghttp "github.com/NamanBalaji/segreq/internal/http"
	"github.com/NamanBalaji/segreq/internal/logger"
	"github.com/NamanBalaji/segreq/internal/request"
	"github.com/NamanBalaji/segreq/internal/segment"
	"github.com/NamanBalaji/segreq/internal/styles"
)

var Version = "dev"

var ErrSegmentComplete = errors.New("segment already fully written")

// Exit statuses beyond the generic failure.
const (
	exitFailure  = 1
	exitUsage    = 2
	exitRejected = 3
	exitNetwork  = 4
	exitState    = 5
	exitTempFail = 75
)

type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
	logPath    string

	stateDB     string
	connections int
	userAgent   string
	noKeepAlive bool

	user     string
	password string

	proxyAddr     string
	proxyMethod   string
	proxyUser     string
	proxyPassword string

	cookies []string

	cfg *config.Config
}

// NewRootCmd builds the segreq command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "segreq",
		Short:         "Build and validate segmented HTTP range requests",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logPath := opts.logPath
			if logPath == "" {
				logPath = filepath.Join(xdg.StateHome, "segreq", "segreq.log")
			}

			if err := logger.InitLogging(opts.debug, logPath); err != nil {
				return err
			}

			return opts.load(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			logger.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/segreq)")
	flags.StringVar(&opts.envFile, "env-file", config.EnvFile, "File with SEGREQ_* overrides")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.logPath, "log", "", "Log file used with --debug")
	flags.StringVar(&opts.stateDB, "state", "", "State database holding confirmed entity lengths")
	flags.IntVarP(&opts.connections, "connections", "c", 0, "Concurrent segment builders")
	flags.StringVarP(&opts.userAgent, "user-agent", "a", "", "User-Agent header value")
	flags.BoolVar(&opts.noKeepAlive, "no-keep-alive", false, "Close the connection after each segment")
	flags.StringVar(&opts.user, "user", "", "Origin Basic auth user")
	flags.StringVar(&opts.password, "password", "", "Origin Basic auth password")
	flags.StringVarP(&opts.proxyAddr, "proxy", "p", "", "HTTP proxy address (host:port), enables the proxy")
	flags.StringVar(&opts.proxyMethod, "proxy-method", "", "Proxy method: tunnel or get")
	flags.StringVar(&opts.proxyUser, "proxy-user", "", "Proxy Basic auth user")
	flags.StringVar(&opts.proxyPassword, "proxy-password", "", "Proxy Basic auth password")
	flags.StringArrayVar(&opts.cookies, "cookie", nil, "Set-Cookie value to seed the jar with; can be repeated")

	cmd.AddCommand(
		newRequestCmd(opts),
		newConnectCmd(opts),
		newPlanCmd(opts),
		newCheckCmd(opts),
		newProbeCmd(opts),
		newStateCmd(opts),
	)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render(err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status. Retryable failures exit
// with EX_TEMPFAIL.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRangeRejected):
		return exitRejected
	case reqErrors.IsConfigError(err), reqErrors.IsContractError(err):
		return exitUsage
	case reqErrors.IsRetryable(err):
		return exitTempFail
	case reqErrors.IsNetworkError(err):
		return exitNetwork
	case reqErrors.IsStateError(err):
		return exitState
	default:
		return exitFailure
	}
}

// load reads the config file, then environment overrides, then explicitly
// set flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)

	if o.configPath == "" {
		cfg, err = config.GetConfig()
	} else {
		cfg, err = config.Load(o.configPath)
	}

	if err != nil {
		return err
	}

	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("user-agent") {
		cfg.UserAgent = o.userAgent
	}

	if o.noKeepAlive {
		cfg.DisableKeepAlive = true
	}

	if flags.Changed("connections") && o.connections > 0 {
		cfg.Connections = o.connections
	}

	if flags.Changed("state") {
		cfg.StateDB = o.stateDB
	}

	if flags.Changed("user") {
		cfg.Http.AuthEnabled = true
		cfg.Http.User = o.user
		cfg.Http.Password = o.password
	}

	if flags.Changed("proxy") {
		cfg.Proxy.Enabled = true
		cfg.Proxy.Address = o.proxyAddr
	}

	if flags.Changed("proxy-method") {
		cfg.Proxy.Method = o.proxyMethod
	}

	if flags.Changed("proxy-user") {
		cfg.Proxy.AuthEnabled = true
		cfg.Proxy.User = o.proxyUser
		cfg.Proxy.Password = o.proxyPassword
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg

	return nil
}

// newRequest creates the Request for urls[0], replays the remaining urls as
// redirects and seeds the jar from --cookie.
func (o *rootOptions) newRequest(factory *request.Factory, urls []string) (*request.Request, error) {
	r, err := openRequest(factory, urls)
	if err != nil {
		return nil, err
	}

	if err := o.seedCookies(r); err != nil {
		return nil, err
	}

	return r, nil
}

func openRequest(factory *request.Factory, urls []string) (*request.Request, error) {
	r, err := factory.CreateFor(urls[0])
	if err != nil {
		return nil, err
	}

	for _, next := range urls[1:] {
		if err := r.Redirect(next); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// seedCookies adds the --cookie values, scoped to r's current URL, to r's jar.
func (o *rootOptions) seedCookies(r *request.Request) error {
	if len(o.cookies) == 0 {
		return nil
	}

	target, err := r.Target()
	if err != nil {
		return err
	}

	for _, line := range o.cookies {
		c, err := cookie.Parse(line, target.Host, target.Path())
		if err != nil {
			return err
		}

		r.CookieJar().Add(c)
	}

	logger.Debugf("Seeded %d cookies, jar holds %d", len(o.cookies), r.CookieJar().Len())

	return nil
}

// newBuilder wires a Builder for urls and seg from the loaded config.
func (o *rootOptions) newBuilder(urls []string, seg *segment.Segment) (*seghttp.Builder, error) {
	factory, err := request.NewFactory(o.cfg)
	if err != nil {
		return nil, err
	}

	r, err := o.newRequest(factory, urls)
	if err != nil {
		return nil, err
	}

	b := seghttp.NewBuilder(seghttp.ConfigFrom(o.cfg))
	b.SetRequest(r)
	b.SetSegment(seg)

	return b, nil
}

type segmentFlags struct {
	index         uint32
	length        int64
	segmentLength int64
	written       int64
}

func (f *segmentFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&f.index, "index", 0, "Segment index")
	cmd.Flags().Int64Var(&f.length, "length", 0, "Segment length in bytes (0 with index 0 fetches the whole resource)")
	cmd.Flags().Int64Var(&f.segmentLength, "segment-length", 0, "Nominal segment length (default from config)")
	cmd.Flags().Int64Var(&f.written, "written", 0, "Bytes of the segment already written")
}

func (f *segmentFlags) segment(cfg *config.Config) (*segment.Segment, error) {
	if f.index == 0 && f.length == 0 {
		return segment.NewSegment(0, 0, 0, f.written)
	}

	segmentLength := f.segmentLength
	if segmentLength == 0 {
		segmentLength = cfg.SegmentLength
	}

	length := f.length
	if length == 0 {
		length = segmentLength
	}

	s, err := segment.NewSegment(f.index, length, segmentLength, f.written)
	if err != nil {
		return nil, err
	}

	if s.Complete() {
		return nil, fmt.Errorf("%w: %s", ErrSegmentComplete, s)
	}

	return s, nil
}
