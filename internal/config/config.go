package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Market   Market   `mapstructure:"market"`
	Vision   Vision   `mapstructure:"vision"`
	Auth     Auth     `mapstructure:"auth"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Market holds the configuration for the market-data providers.
type Market struct {
	// SinaBaseURL serves realtime quotes, gold spot and fund NAV lines.
	SinaBaseURL string `mapstructure:"sina_base_url"`
	// FundGzBaseURL serves intraday fund valuation estimates (jsonp).
	FundGzBaseURL string `mapstructure:"fundgz_base_url"`
	// FundSearchBaseURL serves the fund name->code directory.
	FundSearchBaseURL string `mapstructure:"fund_search_base_url"`
	// TencentBaseURL serves the last-resort ETF quote.
	TencentBaseURL string `mapstructure:"tencent_base_url"`
	// TushareBaseURL and TushareToken configure the official quote API.
	TushareBaseURL string  `mapstructure:"tushare_base_url"`
	TushareToken   string  `mapstructure:"tushare_token"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Vision holds the configuration for the screenshot extraction model.
type Vision struct {
	ApiKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Auth holds the configuration for bearer-token verification.
type Auth struct {
	JwtSecret string `mapstructure:"jwt_secret"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("market.sina_base_url", "http://hq.sinajs.cn")
	viper.SetDefault("market.fundgz_base_url", "http://fundgz.1234567.com.cn")
	viper.SetDefault("market.fund_search_base_url", "http://fundsuggest.eastmoney.com")
	viper.SetDefault("market.tencent_base_url", "http://qt.gtimg.cn")
	viper.SetDefault("market.tushare_base_url", "http://api.tushare.pro")
	viper.SetDefault("market.timeout_seconds", 5)
	viper.SetDefault("market.rate_limit", 10) // requests per second
	viper.SetDefault("market.rate_limit_burst", 5)
	viper.SetDefault("vision.model", "gemini-2.5-flash")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("database.dsn", "wealth.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
