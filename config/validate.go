package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 验证配置：先按字段 tag 校验，再做跨字段检查
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config validation: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics_port must differ from http_port")
	}
	if c.Server.RateLimitBurst < c.Server.RateLimitRPS {
		errs = append(errs, "rate_limit_burst must be at least rate_limit_rps")
	}
	if c.Client.ReceiveTimeout > 0 && c.Client.PollInterval > c.Client.ReceiveTimeout {
		errs = append(errs, "client poll_interval must not exceed receive_timeout")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
