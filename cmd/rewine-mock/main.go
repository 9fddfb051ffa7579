package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/rewine-client/authapi/fakeapi"
	"github.com/jrsteele09/rewine-client/internal/config"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type seedUser struct {
	username string
	email    string
	password string
	name     string
	roles    []users.RoleType
}

var seedUsers = []seedUser{
	{"admin", "admin@rewine.test", "Admin2024", "Rewine Admin", []users.RoleType{users.RoleAdmin, users.RoleUser}},
	{"sommelier", "sommelier@rewine.test", "Merlot2019", "Sam Sommelier", []users.RoleType{users.RoleModerator, users.RoleUser}},
	{"demo", "demo@rewine.test", "Demo2024", "Demo User", nil},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running mock api")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("mock api stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if level, err := zerolog.ParseLevel(c.GetLogLevel()); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	displayAppname(c.GetAppName() + " mock")

	handler, err := newHandler(c)
	if err != nil {
		return err
	}
	server := &http.Server{Addr: c.GetPort(), Handler: handler}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(server) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func newHandler(c config.Config) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	opts := fakeapi.DefaultOptions()
	opts.AccessTokenExpiry = c.GetMockAccessTokenExpiry()
	opts.RefreshTokenExpiry = c.GetMockRefreshTokenExpiry()
	opts.SigningSecret = c.GetMockSigningSecret()
	opts.RotateRefreshToken = c.GetMockRotateRefreshTokens()
	opts.Registerer = reg
	api := fakeapi.New(opts)

	for _, u := range seedUsers {
		if _, err := api.AddUser(u.username, u.email, u.password, u.name, u.roles...); err != nil {
			return nil, fmt.Errorf("[newHandler] failed to seed user %s: %w", u.username, err)
		}
		log.Info().Str("email", u.email).Str("password", u.password).Msg("seeded user")
	}
	log.Info().
		Str("base_path", opts.BasePath).
		Dur("access_ttl", opts.AccessTokenExpiry).
		Bool("rotate_refresh", opts.RotateRefreshToken).
		Msg("mock api configured")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", api)
	return mux, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("mock api listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
