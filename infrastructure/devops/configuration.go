package devops

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type Configuration struct {
	ListenAddr    string `yaml:"listen_addr"`
	DSN           string `yaml:"dsn"`
	MaxConnection int    `yaml:"max_connection"`
	LogLevel      string `yaml:"log_level"`

	// Base64-encoded HS256 signing secret shared by device and user tokens.
	JwtSecret      string        `yaml:"jwt_secret"`
	DeviceTokenTTL time.Duration `yaml:"device_token_ttl"`
	UserTokenTTL   time.Duration `yaml:"user_token_ttl"`

	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`

	SlackInfoChannel  string `yaml:"slack_info_channel"`
	SlackErrorChannel string `yaml:"slack_error_channel"`

	ReportBucket string `yaml:"report_bucket"`
}

var (
	once    sync.Once
	loaded  *Configuration
	loadErr error
)

// Load reads the configuration once: from the SSM parameter named by
// CONFIG_SSM_PARAM when set, otherwise from the CONFIG_FILE path
// (default config.yaml).
func Load(ctx context.Context) (*Configuration, error) {
	once.Do(func() {
		var raw []byte
		if param := os.Getenv("CONFIG_SSM_PARAM"); param != "" {
			raw, loadErr = fetchParameter(ctx, param)
		} else {
			path := os.Getenv("CONFIG_FILE")
			if path == "" {
				path = "config.yaml"
			}
			raw, loadErr = os.ReadFile(path)
		}
		if loadErr != nil {
			return
		}

		cfg := defaults()
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal yaml: %w", err)
			return
		}
		loaded = cfg
	})
	return loaded, loadErr
}

func fetchParameter(ctx context.Context, name string) ([]byte, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(cfg)
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	return []byte(*out.Parameter.Value), nil
}

func defaults() *Configuration {
	return &Configuration{
		ListenAddr:       ":8090",
		MaxConnection:    30,
		LogLevel:         "info",
		DeviceTokenTTL:   12 * time.Hour,
		UserTokenTTL:     8 * time.Hour,
		HeartbeatTimeout: 20 * time.Second,
		SweepInterval:    15 * time.Second,
	}
}
