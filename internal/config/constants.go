package config

import "time"

// Application constants
const (
	AppName    = "wellcast"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment override, e.g. WELLCAST_PIPELINE_MIN_MONTHS
	EnvPrefix = "WELLCAST"
)

// Pipeline defaults
const (
	DefaultMinMonths        = 24
	DefaultCutoff           = "2010-01-01"
	DefaultIQRMultiplier    = 1.5
	DefaultTarget           = "oil"
	DefaultTestWindow       = 12
	DefaultWellTestFraction = 0.2
	DefaultADFMaxLag        = -1 // -1 selects the lag order automatically
	DefaultCVFolds          = 3
	DefaultCVSkip           = 6
	DefaultHorizon          = 6
	DefaultConfidence       = 0.95
)

// Model kinds
const (
	KindARIMA              = "arima"
	KindDecomposition      = "decomposition"
	KindRidge              = "ridge"
	KindARIMABoost         = "arima_boost"
	KindDecompositionBoost = "decomposition_boost"
)

// ModelKinds lists every model kind the runner can build
var ModelKinds = []string{
	KindARIMA,
	KindDecomposition,
	KindRidge,
	KindARIMABoost,
	KindDecompositionBoost,
}

// Model hyperparameter defaults
const (
	DefaultARIMAP = 1
	DefaultARIMAD = 1
	DefaultARIMAQ = 1

	DefaultChangepoints       = 5
	DefaultChangepointRange   = 0.8
	DefaultChangepointPenalty = 10.0
	DefaultFourierOrder       = 3

	DefaultRidgeLambda = 1.0

	DefaultBoostTrees        = 100
	DefaultBoostDepth        = 3
	DefaultBoostLearningRate = 0.1
	DefaultBoostMinLeaf      = 2
)

// File and directory defaults
const (
	DefaultOutputDir   = "output"
	DefaultLogsDir     = "logs"
	DefaultLogFile     = "logs/wellcast.log"
	DefaultConfigFile  = "wellcast.yaml"
	DefaultServiceName = "wellcast"
)

// Render defaults
const (
	DefaultChartWidth    = 1200
	DefaultChartHeight   = 700
	DefaultChromeTimeout = 30 * time.Second
)
