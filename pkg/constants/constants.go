// Package constants provides shared constants for the hiring-cost application.
package constants

// Growth model constants
const (
	// BaseGrowthRate is the periodic growth rate applied at level 1
	BaseGrowthRate = 0.01

	// GrowthRateStep is the growth rate added for every level above 1
	GrowthRateStep = 0.0025

	// MinLevel is the lowest supported level
	MinLevel = 1

	// MaxLevel is the highest level accepted by the CLI and API
	MaxLevel = 10
)

// Search constants
const (
	// DefaultMaxDuration is the default upper bound of the duration scan
	DefaultMaxDuration = 150

	// DefaultFeeLowerBound is the default lower end of the fee bisection bracket
	DefaultFeeLowerBound = 1000.0

	// DefaultFeeUpperBound is the default upper end of the fee bisection bracket
	DefaultFeeUpperBound = 1000000.0

	// DefaultCostTolerance is the absolute tolerance on the amortized cost, in currency units
	DefaultCostTolerance = 1.0

	// DefaultMaxIterations caps the number of bisection steps
	DefaultMaxIterations = 50

	// BoundaryMargin is the distance from the lower bound within which a fee is treated as unreachable
	BoundaryMargin = 1.0
)

// Reference data constants
const (
	// MinimumAcquisitionCost is the floor applied to interpolated fees
	MinimumAcquisitionCost = 1000.0
)

// Currency constants
const (
	// CurrencyPlaces is the number of decimal places shown for currency
	CurrencyPlaces = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Batch constants
const (
	// DefaultOutputDir is the directory the batch CSV files are written to
	DefaultOutputDir = "output"

	// HiringFeesFileFormat is the file name pattern of the fee table
	HiringFeesFileFormat = "level%d-hiring-fees.csv"

	// OptimalDurationFileFormat is the file name pattern of the duration table
	OptimalDurationFileFormat = "level%d-optimal-duration.csv"

	// DefaultSalarySpacing is the default salary grid step
	DefaultSalarySpacing = 500.0

	// MaxSalaryGridRows caps the number of salaries in one fee table
	MaxSalaryGridRows = 10000
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of configuration keys
	EnvPrefix = "HIRING_COST"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxRequestSizeBytes int64 = 256 * 1024

	// DefaultRateLimitRequests is the number of requests a client may issue per window
	DefaultRateLimitRequests = 60

	// DefaultRateLimitWindow is the period after which a client's request budget refills
	DefaultRateLimitWindow = "1m"

	// DefaultCacheTTLSeconds is the lifetime of cached fee tables
	DefaultCacheTTLSeconds = 600

	// CacheBackendMemory keeps cached tables in process
	CacheBackendMemory = "memory"

	// CacheBackendRedis keeps cached tables in redis
	CacheBackendRedis = "redis"

	// CacheBackendNone disables caching
	CacheBackendNone = "none"

	// DefaultRedisAddress is used when the redis backend has no address configured
	DefaultRedisAddress = "localhost:6379"

	// RequestIDHeader carries the per-request identifier
	RequestIDHeader = "X-Request-ID"
)
