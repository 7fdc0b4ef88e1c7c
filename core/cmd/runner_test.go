package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	coretelegram "github.com/m3rciful/pharmtutor/core/telegram"
)

type testConfig struct{ core coreconfig.Config }

func (c *testConfig) CoreConfig() *coreconfig.Config { return &c.core }

type testApp struct {
	calls *[]string
}

func (a testApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			*a.calls = append(*a.calls, "app.start")
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			*a.calls = append(*a.calls, "app.stop")
			return nil
		},
	}, nil
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	var calls []string
	var loaded string
	err := Run(Options{
		ConfigPath: "bot.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return &testConfig{}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return testApp{calls: &calls}, nil },
		RunTelegram: func(ctx context.Context, o coretelegram.RunOptions) error {
			require.NoError(t, o.OnStart(ctx, coretelegram.Runtime{}))
			calls = append(calls, "serve")
			return o.OnStop(ctx, coretelegram.Runtime{})
		},
		Signals: func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "bot.yaml", loaded)
	assert.Equal(t, []string{"app.start", "serve", "app.stop"}, calls)
}

func TestRunStopsOnLoadAndBootstrapErrors(t *testing.T) {
	boom := errors.New("boom")

	err := Run(Options{
		ConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { t.Fatal("bootstrap called"); return nil, nil },
	})
	assert.ErrorIs(t, err, boom)

	err = Run(Options{
		ConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return &testConfig{}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)

	assert.Error(t, Run(Options{}))
}
