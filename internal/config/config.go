package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/runwayscope/runwayscope/internal/geo"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server         ServerConfig         `toml:"server"`         // HTTP server settings
	Logging        LoggingConfig        `toml:"logging"`        // Application logging settings
	Storage        StorageConfig        `toml:"storage"`        // Data persistence settings
	Station        StationConfig        `toml:"station"`        // Airport reference point
	Feed           FeedConfig           `toml:"feed"`           // Live ping feed settings
	RunwayZone     RunwayZoneConfig     `toml:"runway_zone"`    // Runway-proximity region
	Classification ClassificationConfig `toml:"classification"` // Runway event engine settings
	Reporting      ReportingConfig      `toml:"reporting"`      // Lookup databases for reporting
	AI             AIConfig             `toml:"ai"`             // Traffic summary generation
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests (["*"] for all)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type (only "sqlite" is supported)
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files
	MaxPingsInAPI  int    `toml:"max_pings_in_api"` // Maximum number of pings returned per API request
}

// StationConfig is the airport reference point all geometry is anchored to
type StationConfig struct {
	AirportCode   string  `toml:"airport_code"`   // ICAO code of the airport (e.g. "LFBO")
	Latitude      float64 `toml:"latitude"`       // Latitude in decimal degrees
	Longitude     float64 `toml:"longitude"`      // Longitude in decimal degrees
	ElevationFeet int     `toml:"elevation_feet"` // Field elevation above sea level in feet
}

// FeedConfig contains the live ping feed settings
type FeedConfig struct {
	URL                string `toml:"url"`                     // Feed endpoint; "{bounds}" is replaced with "north,south,west,east"
	FetchIntervalSecs  int    `toml:"fetch_interval_seconds"`  // How often to fetch new pings
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"` // HTTP request timeout
	BoundsRadiusM      int    `toml:"bounds_radius_m"`         // Half-width in meters of the square fetch window around the station
	APIKey             string `toml:"api_key"`                 // Optional API key sent as a header
	APIKeyHeader       string `toml:"api_key_header"`          // Header name for the API key
}

// RunwayZoneConfig describes the fixed runway-proximity region. Either an
// explicit vertex ring is given, or the ring is derived from the runway axis.
type RunwayZoneConfig struct {
	// Explicit ring, as [[lon, lat], ...]. Takes precedence when non-empty.
	Vertices [][]float64 `toml:"vertices"`

	// Axis parameters used to derive the ring when Vertices is empty
	AzimuthDeg   float64 `toml:"azimuth_deg"`   // True heading of the runway axis
	LongAxisM    float64 `toml:"long_axis_m"`   // Extent along the axis from the center, each way
	ShortAxisM   float64 `toml:"short_axis_m"`  // Extent perpendicular to the axis, each way
	AxisSegments int     `toml:"axis_segments"` // Densification of the long edges

	AltitudeCeilingFt float64 `toml:"altitude_ceiling_ft"` // Pings at or above this altitude are never in-region
}

// ClassificationConfig contains runway event engine settings
type ClassificationConfig struct {
	Workers             int     `toml:"workers"`               // Concurrent flight workers (0 = NumCPU)
	MinGroundSpeedKts   float64 `toml:"min_ground_speed_kts"`  // Airborne filter: minimum ground speed
	HeadingToleranceDeg float64 `toml:"heading_tolerance_deg"` // Airborne filter: max deviation from the runway axis (0 disables)
	PrefilterMaxAltFt   float64 `toml:"prefilter_max_alt_ft"`  // Airborne filter: altitude cutoff for candidate pings
}

// ReportingConfig contains paths to the lookup databases used to enrich
// event listings
type ReportingConfig struct {
	AirlinesDBPath string `toml:"airlines_db_path"` // Path to airlines JSON file (ICAO/IATA -> name)
	AirportsDBPath string `toml:"airports_db_path"` // Path to airports JSON file (IATA -> name)
	AircraftDBPath string `toml:"aircraft_db_path"` // Path to aircraft JSON file (type designator -> model)
}

// AIConfig contains traffic summary generation settings
type AIConfig struct {
	Enabled     bool    `toml:"enabled"`     // Enable or disable the summary endpoint
	APIKey      string  `toml:"api_key"`     // Gemini API key
	Model       string  `toml:"model"`       // Model name (e.g. "gemini-2.0-flash")
	Temperature float64 `toml:"temperature"` // Response randomness (0.0-1.0)
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in the generated summary
}

// Load loads the configuration from the given path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in
// order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	switch c.Logging.Level {
	case "":
		c.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "":
		c.Logging.Format = "console"
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		return fmt.Errorf("sqlite_base_path is required")
	}
	if c.Storage.MaxPingsInAPI <= 0 {
		c.Storage.MaxPingsInAPI = 1000
	}

	if err := c.ValidateStation(); err != nil {
		return err
	}
	if err := c.ValidateFeed(); err != nil {
		return err
	}
	if err := c.ValidateRunwayZone(); err != nil {
		return err
	}
	if err := c.ValidateClassification(); err != nil {
		return err
	}

	if c.AI.Enabled {
		if c.AI.APIKey == "" {
			fmt.Printf("WARN: AI summary is enabled but no API key provided - summary endpoint will be disabled\n")
			c.AI.Enabled = false
		}
		if c.AI.Model == "" {
			c.AI.Model = "gemini-2.0-flash"
		}
		if c.AI.MaxTokens <= 0 {
			c.AI.MaxTokens = 1024
		}
	}

	return nil
}

// ValidateStation validates the station configuration
func (c *Config) ValidateStation() error {
	if c.Station.Latitude < -90 || c.Station.Latitude > 90 {
		return fmt.Errorf("invalid station latitude: %f", c.Station.Latitude)
	}
	if c.Station.Longitude < -180 || c.Station.Longitude > 180 {
		return fmt.Errorf("invalid station longitude: %f", c.Station.Longitude)
	}
	if c.Station.ElevationFeet < -2000 || c.Station.ElevationFeet > 30000 {
		return fmt.Errorf("station elevation out of typical range: %d ft", c.Station.ElevationFeet)
	}
	return nil
}

// ValidateFeed validates the feed configuration
func (c *Config) ValidateFeed() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed url is required")
	}
	if c.Feed.FetchIntervalSecs <= 0 {
		c.Feed.FetchIntervalSecs = 30
	}
	if c.Feed.RequestTimeoutSecs <= 0 {
		c.Feed.RequestTimeoutSecs = 10
	}
	if c.Feed.BoundsRadiusM <= 0 {
		c.Feed.BoundsRadiusM = 15000
	}
	if c.Feed.APIKey != "" && c.Feed.APIKeyHeader == "" {
		c.Feed.APIKeyHeader = "X-API-Key"
	}
	return nil
}

// ValidateRunwayZone validates the runway zone configuration. A malformed
// explicit ring is a fatal configuration error, never resolved per-ping.
func (c *Config) ValidateRunwayZone() error {
	if c.RunwayZone.AltitudeCeilingFt == 0 {
		c.RunwayZone.AltitudeCeilingFt = 5000
	}
	if c.RunwayZone.AltitudeCeilingFt < 0 {
		return fmt.Errorf("altitude_ceiling_ft must be positive: %f", c.RunwayZone.AltitudeCeilingFt)
	}

	if len(c.RunwayZone.Vertices) > 0 {
		ring, err := c.RunwayZone.Ring(c.Station)
		if err != nil {
			return err
		}
		if err := ring.Validate(); err != nil {
			return fmt.Errorf("invalid runway zone: %w", err)
		}
		return nil
	}

	if c.RunwayZone.AzimuthDeg < 0 || c.RunwayZone.AzimuthDeg >= 360 {
		return fmt.Errorf("runway zone azimuth_deg must be in [0, 360): %f", c.RunwayZone.AzimuthDeg)
	}
	if c.RunwayZone.LongAxisM <= 0 {
		c.RunwayZone.LongAxisM = 15000
	}
	if c.RunwayZone.ShortAxisM <= 0 {
		c.RunwayZone.ShortAxisM = 400
	}
	if c.RunwayZone.AxisSegments <= 0 {
		c.RunwayZone.AxisSegments = 6
	}
	return nil
}

// ValidateClassification validates the classification configuration
func (c *Config) ValidateClassification() error {
	if c.Classification.Workers < 0 {
		return fmt.Errorf("classification workers must be non-negative: %d", c.Classification.Workers)
	}
	if c.Classification.MinGroundSpeedKts == 0 {
		c.Classification.MinGroundSpeedKts = 20
	}
	if c.Classification.HeadingToleranceDeg < 0 || c.Classification.HeadingToleranceDeg > 180 {
		return fmt.Errorf("heading_tolerance_deg must be between 0 and 180: %f", c.Classification.HeadingToleranceDeg)
	}
	if c.Classification.PrefilterMaxAltFt == 0 {
		c.Classification.PrefilterMaxAltFt = 10000
	}
	return nil
}

// Ring returns the runway zone ring, either from the explicit vertex list or
// derived geodesically from the runway axis around the station.
func (z *RunwayZoneConfig) Ring(station StationConfig) (geo.Ring, error) {
	if len(z.Vertices) > 0 {
		ring := make(geo.Ring, 0, len(z.Vertices))
		for i, v := range z.Vertices {
			if len(v) != 2 {
				return nil, fmt.Errorf("invalid runway zone: vertex %d must be [lon, lat]", i)
			}
			ring = append(ring, geo.Point{Lon: v[0], Lat: v[1]})
		}
		return ring, nil
	}
	return geo.RunwayZone(
		station.Latitude,
		station.Longitude,
		z.AzimuthDeg,
		z.LongAxisM,
		z.ShortAxisM,
		z.AxisSegments,
	), nil
}
