package wsn

import (
	"context"
	"net/http"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	TokenVariable   string = "WSN_TOKEN"
	URLVariable     string = "WSN_URL"
	TimeoutVariable string = "WSN_TIMEOUT"

	DefaultURL     string        = "http://hycamp.org/wsn/api/query/"
	DefaultTimeout time.Duration = 30 * time.Second
)

type Config struct {
	URL     string
	Token   Credential
	Timeout time.Duration

	HTTPClient *http.Client
}

func LoadConfiguration(ctx context.Context) Config {
	log := logging.GetFromContext(ctx)

	timeout := DefaultTimeout
	if s := env.GetVariableOrDefault(ctx, TimeoutVariable, ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			log.Warn("ignoring invalid timeout", "value", s, "default", DefaultTimeout.String())
		} else {
			timeout = d
		}
	}

	return Config{
		URL:     env.GetVariableOrDefault(ctx, URLVariable, DefaultURL),
		Token:   Credential(env.GetVariableOrDefault(ctx, TokenVariable, "")),
		Timeout: timeout,
	}
}
