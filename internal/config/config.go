package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "wellcast/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Models    []ModelConfig   `yaml:"models" ignored:"true" validate:"min=1,dive"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
}

// PipelineConfig holds the data preparation and evaluation constants
type PipelineConfig struct {
	MinMonths        int     `yaml:"min_months" envconfig:"MIN_MONTHS" validate:"gte=1"`
	Cutoff           string  `yaml:"cutoff" envconfig:"CUTOFF" validate:"omitempty,isodate"`
	IQRMultiplier    float64 `yaml:"iqr_multiplier" envconfig:"IQR_MULTIPLIER" validate:"gt=0"`
	Target           string  `yaml:"target" envconfig:"TARGET" validate:"oneof=oil gas"`
	TestWindow       int     `yaml:"test_window" envconfig:"TEST_WINDOW" validate:"gte=1"`
	WellTestFraction float64 `yaml:"well_test_fraction" envconfig:"WELL_TEST_FRACTION" validate:"gt=0,lt=1"`
	ADFMaxLag        int     `yaml:"adf_max_lag" envconfig:"ADF_MAX_LAG" validate:"gte=-1"`
	CVFolds          int     `yaml:"cv_folds" envconfig:"CV_FOLDS" validate:"gte=0"`
	CVSkip           int     `yaml:"cv_skip" envconfig:"CV_SKIP" validate:"gte=1"`
}

// ForecastConfig controls the refit and forecast stage
type ForecastConfig struct {
	Horizon    int      `yaml:"horizon" envconfig:"HORIZON" validate:"gte=1"`
	Confidence float64  `yaml:"confidence" envconfig:"CONFIDENCE" validate:"gt=0,lt=1"`
	Models     []string `yaml:"models" envconfig:"MODELS"`
}

// ModelConfig describes one named model
type ModelConfig struct {
	Name          string              `yaml:"name" validate:"required"`
	Kind          string              `yaml:"kind" validate:"required,modelkind"`
	ARIMA         ARIMAConfig         `yaml:"arima"`
	Decomposition DecompositionConfig `yaml:"decomposition"`
	Ridge         RidgeConfig         `yaml:"ridge"`
	Boost         BoostConfig         `yaml:"boost"`
}

// ARIMAConfig is the (p,d,q) order
type ARIMAConfig struct {
	P int `yaml:"p" validate:"gte=0,lte=6"`
	D int `yaml:"d" validate:"gte=0,lte=2"`
	Q int `yaml:"q" validate:"gte=0,lte=6"`
}

// DecompositionConfig configures the additive trend/seasonality model
type DecompositionConfig struct {
	Changepoints       int     `yaml:"changepoints" validate:"gte=0,lte=50"`
	ChangepointRange   float64 `yaml:"changepoint_range" validate:"gt=0,lte=1"`
	ChangepointPenalty float64 `yaml:"changepoint_penalty" validate:"gte=0"`
	FourierOrder       int     `yaml:"fourier_order" validate:"gte=0,lte=10"`
}

// RidgeConfig configures the regularized regression
type RidgeConfig struct {
	Lambda float64 `yaml:"lambda" validate:"gte=0"`
}

// BoostConfig configures the residual tree ensemble
type BoostConfig struct {
	Trees        int     `yaml:"trees" validate:"gte=1,lte=5000"`
	Depth        int     `yaml:"depth" validate:"gte=1,lte=8"`
	LearningRate float64 `yaml:"learning_rate" validate:"gt=0,lte=1"`
	MinLeaf      int     `yaml:"min_leaf" validate:"gte=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	Input     string `yaml:"input" envconfig:"INPUT"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout file"`
	TraceFile     string  `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=TraceExporter file"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// RenderConfig selects the artifacts written after a run
type RenderConfig struct {
	CSV           bool          `yaml:"csv" envconfig:"CSV"`
	JSON          bool          `yaml:"json" envconfig:"JSON"`
	Workbook      bool          `yaml:"workbook" envconfig:"WORKBOOK"`
	PDF           bool          `yaml:"pdf" envconfig:"PDF"`
	HTML          bool          `yaml:"html" envconfig:"HTML"`
	PNG           bool          `yaml:"png" envconfig:"PNG"`
	Width         int           `yaml:"width" envconfig:"WIDTH" validate:"gte=320"`
	Height        int           `yaml:"height" envconfig:"HEIGHT" validate:"gte=240"`
	ChromeTimeout time.Duration `yaml:"chrome_timeout" envconfig:"CHROME_TIMEOUT" validate:"gt=0"`
}

// Load builds the configuration from defaults, an optional YAML file and
// WELLCAST_* environment variables, in increasing order of precedence.
// An empty path falls back to the well-known file locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile decodes YAML over the already populated defaults
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// UnmarshalYAML seeds every model entry with default hyperparameters so a
// file only needs to name the values it changes.
func (m *ModelConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain ModelConfig
	p := plain(DefaultModelConfig("", ""))
	if err := unmarshal(&p); err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = p.Kind
	}
	*m = ModelConfig(p)
	return nil
}

// getConfigFilePath returns the first config file found in common locations
func getConfigFilePath() string {
	locations := []string{
		DefaultConfigFile,
		"configs/" + DefaultConfigFile,
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// CutoffDate returns the parsed date-range anchor; ok is false when the cut is disabled
func (c *Config) CutoffDate() (time.Time, bool) {
	if c.Pipeline.Cutoff == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", c.Pipeline.Cutoff)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Model returns the model configuration with the given name
func (c *Config) Model(name string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// ForecastModels returns the models refit for the final forecast
func (c *Config) ForecastModels() []ModelConfig {
	if len(c.Forecast.Models) == 0 {
		return c.Models
	}
	out := make([]ModelConfig, 0, len(c.Forecast.Models))
	for _, name := range c.Forecast.Models {
		if m, ok := c.Model(name); ok {
			out = append(out, m)
		}
	}
	return out
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	v := newValidator()

	var fieldErrs []apierrors.ValidationError
	if err := v.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			fieldErrs = append(fieldErrs, apierrors.ValidationError{
				Field:   fieldPath(fe),
				Message: formatValidationError(fe),
			})
		}
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name != "" && seen[m.Name] {
			fieldErrs = append(fieldErrs, apierrors.ValidationError{
				Field:   "models.name",
				Message: fmt.Sprintf("model name %q is used more than once", m.Name),
			})
		}
		seen[m.Name] = true
	}
	for _, name := range c.Forecast.Models {
		if !seen[name] {
			fieldErrs = append(fieldErrs, apierrors.ValidationError{
				Field:   "forecast.models",
				Message: fmt.Sprintf("forecast model %q is not configured", name),
			})
		}
	}

	if len(fieldErrs) > 0 {
		return apierrors.NewValidationErrors(fieldErrs)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("isodate", isISODate)
	v.RegisterValidation("modelkind", isModelKind)

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath turns "Config.pipeline.min_months" into "pipeline.min_months"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationError formats validation error messages
func formatValidationError(fe validator.FieldError) string {
	field := fieldPath(fe)
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(param, " ", " is ", 1))
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(param, " ", ", ", -1))
	case "isodate":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "modelkind":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(ModelKinds, ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func isModelKind(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range ModelKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			MinMonths:        DefaultMinMonths,
			Cutoff:           DefaultCutoff,
			IQRMultiplier:    DefaultIQRMultiplier,
			Target:           DefaultTarget,
			TestWindow:       DefaultTestWindow,
			WellTestFraction: DefaultWellTestFraction,
			ADFMaxLag:        DefaultADFMaxLag,
			CVFolds:          DefaultCVFolds,
			CVSkip:           DefaultCVSkip,
		},
		Models: DefaultModels(),
		Forecast: ForecastConfig{
			Horizon:    DefaultHorizon,
			Confidence: DefaultConfidence,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			ServiceName:   DefaultServiceName,
			Environment:   "development",
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
		Render: RenderConfig{
			CSV:           true,
			JSON:          true,
			Workbook:      true,
			PDF:           true,
			HTML:          true,
			PNG:           false,
			Width:         DefaultChartWidth,
			Height:        DefaultChartHeight,
			ChromeTimeout: DefaultChromeTimeout,
		},
	}
}

// DefaultModels returns one model of each kind, named after its kind
func DefaultModels() []ModelConfig {
	models := make([]ModelConfig, 0, len(ModelKinds))
	for _, kind := range ModelKinds {
		models = append(models, DefaultModelConfig(kind, kind))
	}
	return models
}

// DefaultModelConfig returns a model configuration with default hyperparameters
func DefaultModelConfig(name, kind string) ModelConfig {
	return ModelConfig{
		Name: name,
		Kind: kind,
		ARIMA: ARIMAConfig{
			P: DefaultARIMAP,
			D: DefaultARIMAD,
			Q: DefaultARIMAQ,
		},
		Decomposition: DecompositionConfig{
			Changepoints:       DefaultChangepoints,
			ChangepointRange:   DefaultChangepointRange,
			ChangepointPenalty: DefaultChangepointPenalty,
			FourierOrder:       DefaultFourierOrder,
		},
		Ridge: RidgeConfig{
			Lambda: DefaultRidgeLambda,
		},
		Boost: BoostConfig{
			Trees:        DefaultBoostTrees,
			Depth:        DefaultBoostDepth,
			LearningRate: DefaultBoostLearningRate,
			MinLeaf:      DefaultBoostMinLeaf,
		},
	}
}
