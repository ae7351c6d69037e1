package container

import (
	"fmt"
	"time"

	"github.com/serroba/admission-go/internal/ratelimit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options holds the server configuration. Fields map to CLI flags and
// SERVICE_* environment variables through humacli.
type Options struct {
	Port              int    `default:"8888"               help:"Port to listen on"                                                                         short:"p"`
	RedisAddr         string `default:"localhost:6379"     help:"Redis server address"                                                                      short:"r"`
	PostgresURL       string `default:""                   help:"Postgres URL of the denial audit store; empty disables it"`
	LogFormat         string `default:"console"            help:"Log encoding: console or json"`
	Shards            int    `default:"64"                 help:"Number of lock shards in the window store"`
	SweepInterval     int    `default:"30"                 help:"Seconds between idle-record sweeps"`
	SweepGrace        int    `default:"60"                 help:"Seconds a record must stay expired before it is swept"`
	BurstWindowMs     int    `default:"1000"               help:"Default burst sub-window in milliseconds"`
	Events            bool   `default:"true"               help:"Publish denial events to Redis streams"`
	TrustProxyHeaders bool   `default:"false"              help:"Take the client IP from X-Forwarded-For and X-Real-IP; enable only behind a trusted proxy"`
	APILimit          int    `default:"600"                help:"Requests per client IP per window on endpoints without their own policy"`
	APIWindowSec      int    `default:"60"                 help:"Window length in seconds for per-IP endpoint quotas"`
	APIBurstLimit     int    `default:"50"                 help:"Burst cap per client IP on endpoints without their own policy; 0 disables"`
	CheckAPILimit     int    `default:"60000"              help:"Requests per caller IP per window on the check endpoints; 0 disables"`
	ConsumerGroup     string `default:"admission-consumer" help:"Redis streams consumer group name"`
}

// DefaultEndpointConfig is the admission policy for operations that do not
// declare their own.
func (o *Options) DefaultEndpointConfig() ratelimit.EndpointConfig {
	cfg := ratelimit.EndpointConfig{
		Scope: ratelimit.ScopeIP,
		Limit: ratelimit.LimitConfig{
			Max:    int64(o.APILimit),
			Window: time.Duration(o.APIWindowSec) * time.Second,
		},
	}

	if o.APIBurstLimit > 0 {
		cfg.Limit.Burst = &ratelimit.BurstConfig{
			Max:    int64(o.APIBurstLimit),
			Window: o.burstWindow(),
		}
	}

	return cfg
}

// CheckEndpointConfig is the admission policy of the check endpoints. Their
// callers are upstream services that funnel many users through few hosts,
// so they get a high per-IP cap without a burst guard. A zero limit turns
// admission control off for them.
func (o *Options) CheckEndpointConfig() ratelimit.EndpointConfig {
	if o.CheckAPILimit <= 0 {
		return ratelimit.EndpointConfig{Disabled: true}
	}

	return ratelimit.EndpointConfig{
		Scope: ratelimit.ScopeIP,
		Limit: ratelimit.LimitConfig{
			Max:    int64(o.CheckAPILimit),
			Window: time.Duration(o.APIWindowSec) * time.Second,
		},
	}
}

func (o *Options) burstWindow() time.Duration {
	return time.Duration(o.BurstWindowMs) * time.Millisecond
}

// NewLogger builds a zap logger for the given encoding.
func NewLogger(format string) (*zap.Logger, error) {
	var cfg zap.Config

	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
