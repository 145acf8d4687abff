package candb

import (
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ClassicMaxLength is the payload limit of classic CAN.
	ClassicMaxLength = 8
	// FDMaxLength is the payload limit of CAN FD.
	FDMaxLength = 64
)

type buildOptions struct {
	log            *Logger
	maxFrameLength int
}

// Option configures a Builder.
type Option func(*buildOptions)

func WithLogger(l *Logger) Option {
	return func(o *buildOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxFrameLength rejects message entries longer than n bytes.
func WithMaxFrameLength(n int) Option {
	return func(o *buildOptions) { o.maxFrameLength = n }
}

// LoggerFrom returns the logger the options would hand to a Builder.
func LoggerFrom(opts ...Option) *Logger {
	o := defaultBuildOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o.log
}

func defaultBuildOptions() buildOptions {
	return buildOptions{log: NopLogger(), maxFrameLength: FDMaxLength}
}

type decodeOptions struct {
	rangeCheck bool
}

// DecodeOption configures a decode call.
type DecodeOption func(*decodeOptions)

// WithRangeCheck makes decoding fail with ErrValueOutOfRange when a
// physical value falls outside the signal's declared [Min, Max].
func WithRangeCheck() DecodeOption {
	return func(o *decodeOptions) { o.rangeCheck = true }
}

func collectDecodeOptions(opts []DecodeOption) decodeOptions {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Config is the YAML form of the codec settings.
type Config struct {
	LogLevel       string `yaml:"log_level"`
	MaxFrameLength int    `yaml:"max_frame_length"`
	StrictDecode   bool   `yaml:"strict_decode"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		MaxFrameLength: FDMaxLength,
	}
}

// ParseConfig reads a YAML document on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxFrameLength <= 0 || c.MaxFrameLength > FDMaxLength {
		return errors.Newf("max_frame_length must be in 1..%d, got %d", FDMaxLength, c.MaxFrameLength)
	}
	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// BuildOptions returns builder options logging to out.
func (c Config) BuildOptions(out io.Writer) []Option {
	return []Option{
		WithLogger(NewLogger(out, ParseLevel(c.LogLevel))),
		WithMaxFrameLength(c.MaxFrameLength),
	}
}

func (c Config) DecodeOptions() []DecodeOption {
	if c.StrictDecode {
		return []DecodeOption{WithRangeCheck()}
	}
	return nil
}
