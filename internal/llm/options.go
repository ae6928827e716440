package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/newthinker/parley/internal/core"
)

// Options are provider query options taken from query_config. Keys a
// provider has no field for land in Extra.
type Options struct {
	Temperature      *float64       `mapstructure:"temperature"`
	TopP             *float64       `mapstructure:"top_p"`
	MaxTokens        int            `mapstructure:"max_tokens"`
	Stop             []string       `mapstructure:"stop"`
	Seed             *int           `mapstructure:"seed"`
	PresencePenalty  *float64       `mapstructure:"presence_penalty"`
	FrequencyPenalty *float64       `mapstructure:"frequency_penalty"`
	JSONMode         bool           `mapstructure:"json_mode"`
	Extra            map[string]any `mapstructure:",remain"`
}

// DecodeOptions converts a raw query_config map into Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, fmt.Errorf("creating options decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("decoding query options: %w", err)
	}
	return opts, nil
}

// DecodeExtra decodes o.Extra into dst, a pointer to a struct with
// mapstructure tags. Keys dst has no field for are reported as
// unsupported by provider.
func (o Options) DecodeExtra(provider string, dst any) error {
	if len(o.Extra) == 0 {
		return nil
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		Metadata:         &md,
	})
	if err != nil {
		return fmt.Errorf("creating options decoder: %w", err)
	}
	if err := dec.Decode(o.Extra); err != nil {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("decoding %s query options: %w", provider, err))
	}
	if len(md.Unused) > 0 {
		return UnsupportedOptions(provider, md.Unused...)
	}
	return nil
}

// UnsupportedOptions is the CONFIG_INVALID error for query_config keys a
// provider cannot send.
func UnsupportedOptions(provider string, keys ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return core.WrapError(core.ErrConfigInvalid,
		fmt.Errorf("query_config keys not supported by %s: %s", provider, strings.Join(sorted, ", ")))
}
