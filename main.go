package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksrelay/internal/auth"
	"github.com/die-net/socksrelay/internal/dialer"
	"github.com/die-net/socksrelay/internal/flowlog"
	"github.com/die-net/socksrelay/internal/idle"
	"github.com/die-net/socksrelay/internal/metrics"
	"github.com/die-net/socksrelay/internal/proxy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen      = pflag.String("listen", ":11080", "SOCKS5 listen address")
		requireAuth = pflag.Bool("auth", false, "Require username/password authentication")
		credentials = pflag.String("credentials", "password.properties", "Properties file of user=password records")
		debug       = pflag.Bool("debug", false, "Log every SOCKS5 message and response")

		connectTimeout = pflag.Duration("connect-timeout", dialer.DefaultDialTimeout, "Timeout for outbound DNS lookup and TCP connect")
		readerIdle     = pflag.Duration("reader-idle", proxy.DefaultIdle.ReaderIdle, "Close sessions that receive nothing from the client for this long (0 disables)")
		writerIdle     = pflag.Duration("writer-idle", proxy.DefaultIdle.WriterIdle, "Close sessions that send nothing to the client for this long (0 disables)")
		allIdle        = pflag.Duration("all-idle", 0, "Close sessions with no traffic in either direction for this long (0 disables)")
		tcpKeepAlive   = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		reusePort      = pflag.Bool("reuse-port", false, "Set SO_REUSEPORT on the listening socket")
		dnsServer      = pflag.String("dns-server", "", "DNS server (host[:port]) for destination names. Empty uses the system resolver.")

		metricsListen = pflag.String("metrics-listen", ":8080", "Prometheus metrics listen address. Empty disables.")
		debugListen   = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
		logFormat     = pflag.String("log-format", "console", "Log output: console|json")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	log, err := newLogger(*logFormat, *debug)
	if err != nil {
		return fmt.Errorf("invalid --log-format: %w", err)
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	idleCfg := idle.Config{ReaderIdle: *readerIdle, WriterIdle: *writerIdle, AllIdle: *allIdle}
	if idleCfg.ReaderIdle < 0 || idleCfg.WriterIdle < 0 || idleCfg.AllIdle < 0 {
		return errors.New("invalid idle timeout: must be >= 0")
	}

	store, err := loadCredentials(*credentials, log)
	if err != nil {
		return fmt.Errorf("invalid --credentials: %w", err)
	}
	if *requireAuth && store.Len() == 0 {
		log.Warn().Msg("authentication required but no credentials loaded; every user is accepted")
	}

	dialCfg := dialer.Config{
		DialTimeout: *connectTimeout,
		KeepAlive:   ka,
	}
	if *dnsServer != "" {
		r, err := dialer.NewDNSResolver(*dnsServer, *connectTimeout)
		if err != nil {
			return fmt.Errorf("invalid --dns-server: %w", err)
		}
		dialCfg.Resolver = r
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cfg := proxy.Config{
		RequireAuth:   *requireAuth,
		Debug:         *debug,
		Idle:          idleCfg,
		KeepAlive:     ka,
		Dialer:        dialer.NewDirectDialer(dialCfg),
		Authenticator: store,
		FlowLog:       flowlog.NewLogSink(log),
		Observer:      metrics.New(reg),
		Log:           log,
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *debugListen != "" {
		if err := serveHTTP(ctx, g, *debugListen, http.DefaultServeMux, ka); err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		log.Info().Str("addr", *debugListen).Msg("debug listening")
	}

	if *metricsListen != "" {
		mux := http.NewServeMux()
		h := metrics.Handler(reg)
		mux.Handle("/metrics", h)
		mux.Handle("/prometheus", h)
		if err := serveHTTP(ctx, g, *metricsListen, mux, ka); err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}
		log.Info().Str("addr", *metricsListen).Msg("metrics listening")
	}

	ln, err := proxy.ListenTCP(ctx, "tcp", *listen, proxy.ListenConfig{KeepAlive: ka, ReusePort: *reusePort})
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	srv := proxy.NewServer(ctx, cfg)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Info().Str("addr", ln.Addr().String()).Bool("auth", *requireAuth).Int("users", store.Len()).Msg("socks5 relay listening")

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info().Int64("sessions", srv.ActiveSessions()).Msg("shutting down")
	srv.Wait()
	return err
}

func newLogger(format string, debug bool) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	case "json":
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unknown format %q", format)
	}
}

// loadCredentials reads the properties file. A missing file yields an empty
// store, which accepts every user.
func loadCredentials(path string, log zerolog.Logger) (*auth.Store, error) {
	if path == "" {
		return auth.NewStore(nil), nil
	}
	store, err := auth.LoadProperties(path)
	if errors.Is(err, auth.ErrNoCredentials) {
		log.Warn().Str("path", path).Msg("credentials file not found; using empty store")
		return auth.NewStore(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, h http.Handler, ka net.KeepAliveConfig) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	lc := net.ListenConfig{KeepAliveConfig: ka}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	context.AfterFunc(ctx, func() {
		_ = srv.Close()
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})
	return nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
