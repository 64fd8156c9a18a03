package cli

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fdkevin0/htmlview"
	"github.com/fdkevin0/htmlview/internal/configsource"
)

type runtimeConfig struct {
	App        *htmlview.Config
	Debug      bool
	ConfigFile string
}

type runtimeConfigValues struct {
	htmlview.Config `mapstructure:",squash"`
	Debug           bool `mapstructure:"debug"`
}

func buildRuntimeConfig(cmd *cobra.Command) (*runtimeConfig, error) {
	v, err := configsource.NewViperForCommand(cmd, flagConfigFile)
	if err != nil {
		return nil, err
	}

	values := runtimeConfigValues{
		Config: *htmlview.NewDefaultConfig(),
	}
	if err := v.Unmarshal(&values, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, htmlview.NewConfigError("反序列化配置失败", err)
	}

	values.Addr = strings.TrimSpace(values.Addr)
	values.OutputDir = strings.TrimSpace(values.OutputDir)
	values.AllowedOrigins = lo.Compact(lo.Map(values.AllowedOrigins, func(origin string, _ int) string {
		return strings.TrimSpace(origin)
	}))

	cfg := &runtimeConfig{
		App:        &values.Config,
		Debug:      values.Debug,
		ConfigFile: v.ConfigFileUsed(),
	}

	if err := validateRuntimeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateRuntimeConfig(cfg *runtimeConfig) error {
	if cfg.App.Addr == "" {
		return htmlview.NewValidationError("addr 不能为空")
	}
	if cfg.App.SessionTTL <= 0 {
		return htmlview.NewValidationError("session-ttl 必须大于 0")
	}
	if cfg.App.ShutdownTimeout <= 0 {
		return htmlview.NewValidationError("shutdown-timeout 必须大于 0")
	}
	if cfg.App.MaxSourceBytes < 0 {
		return htmlview.NewValidationError("max-source-bytes 不能为负数")
	}
	if cfg.App.OutputDir == "" {
		return htmlview.NewValidationError("output-dir 不能为空")
	}
	return nil
}

// durationDecodeHook accepts bare numbers as seconds and Go duration strings.
func durationDecodeHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}

		switch value := data.(type) {
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		case string:
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				return time.Duration(0), nil
			}
			if strings.ContainsAny(trimmed, "hmsuµn") {
				parsed, err := time.ParseDuration(trimmed)
				if err != nil {
					return nil, fmt.Errorf("无效的时长 %q: %w", trimmed, err)
				}
				return parsed, nil
			}
			return time.ParseDuration(trimmed + "s")
		default:
			return data, nil
		}
	}
}
