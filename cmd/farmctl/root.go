package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/farmer-dashboard/internal/apiclient"
	"github.com/spec-kit/farmer-dashboard/internal/authstate"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "farmctl",
		Short:        "Inspect dashboard sessions and route access",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("api", "http://localhost:8800", "dashboard API base URL")
	flags.String("token", "", "session token")
	flags.String("channel", string(domain.ChannelHeader), "token transport: header or cookie")
	flags.String("cookie-name", "token", "cookie name used with --channel=cookie")
	flags.String("log-level", "warn", "log level")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("FARMCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newWhoamiCmd(v),
		newRouteCmd(v),
		newRegionCmd(v),
		newTokenCmd(v),
	)
	return root
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if err := level.Set(strings.ToLower(v.GetString("log-level"))); err != nil {
		level = zapcore.WarnLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// session is one mounted client: a single API client and a single store.
type session struct {
	client *apiclient.Client
	store  *authstate.Store
	logger *zap.Logger
}

func mount(v *viper.Viper) (*session, error) {
	logger, err := newLogger(v)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	channel := domain.TokenChannel(v.GetString("channel"))
	if channel != domain.ChannelHeader && channel != domain.ChannelCookie {
		return nil, fmt.Errorf("unsupported channel %q", channel)
	}

	client, err := apiclient.New(v.GetString("api"), apiclient.Options{
		Logger:     logger,
		Token:      v.GetString("token"),
		Channel:    channel,
		CookieName: v.GetString("cookie-name"),
	})
	if err != nil {
		return nil, err
	}
	return &session{
		client: client,
		store:  authstate.NewStore(client, logger),
		logger: logger,
	}, nil
}
