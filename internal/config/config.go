package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Trade      TradeConfig      `mapstructure:"trade"`
	HolderGate HolderGateConfig `mapstructure:"holder_gate"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Cron       CronConfig       `mapstructure:"cron"`
}

type AppConfig struct {
	Env    string `mapstructure:"env"`
	APIKey string `mapstructure:"api_key"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        int64         `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	GasLimit       uint64        `mapstructure:"gas_limit"`
}

type TradeConfig struct {
	TreasuryAddress string        `mapstructure:"treasury_address"`
	DeadlineWindow  time.Duration `mapstructure:"deadline_window"`
}

type HolderGateConfig struct {
	TokenAddress string `mapstructure:"token_address"`
	MinUnits     string `mapstructure:"min_units"`
}

type TelegramConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	BotToken    string   `mapstructure:"bot_token"`
	TargetChats []string `mapstructure:"target_chats"`

	// ControlBotToken powers the operator command bot. It must differ from
	// BotToken; two long-pollers on one token fight over getUpdates.
	ControlBotToken string `mapstructure:"control_bot_token"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ChainProbe  string `mapstructure:"chain_probe"`
	LedgerStats string `mapstructure:"ledger_stats"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.api_key", "dev-key-123")
	v.SetDefault("server.http_addr", ":3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("chain.rpc_url", "https://rpc.pulsechain.com")
	v.SetDefault("chain.chain_id", 369)
	v.SetDefault("chain.request_timeout", "15s")
	v.SetDefault("chain.confirm_timeout", "120s")
	v.SetDefault("chain.gas_limit", 600000)
	v.SetDefault("trade.deadline_window", "180s")
	v.SetDefault("holder_gate.min_units", "1")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.chain_probe", "@every 1m")
	v.SetDefault("cron.ledger_stats", "@every 24h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
