package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"pkg.parley.chat/parley/internal/config/hook"
)

// AccountType selects the member re-fetch policy: bot accounts chunk,
// client accounts additionally request a presence sync.
type AccountType string

const (
	AccountBot    AccountType = "bot"
	AccountClient AccountType = "client"
)

type Config struct {
	Platform struct {
		Auth        string
		APIBase     string
		AccountType AccountType
	}

	Rest struct {
		RetryDelay time.Duration
	}

	Logging struct {
		Level zapcore.Level
	}
}

func Read() (*Config, error) {
	v := viper.New()
	configureEnv(v)
	configureLocation(v)
	return readUnmarshalConfig(v)
}

func configureEnv(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("conf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func configureLocation(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
}

func readUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	c := &Config{}
	if err := v.Unmarshal(c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		hook.Level(), mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, err
	}
	if c.Platform.AccountType == "" {
		c.Platform.AccountType = AccountBot
	}
	if c.Platform.AccountType != AccountBot && c.Platform.AccountType != AccountClient {
		return nil, fmt.Errorf("unknown account type %q", c.Platform.AccountType)
	}
	return c, nil
}
