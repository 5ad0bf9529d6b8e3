package config

// Driver identifies a database/sql driver used to reach a database connection.
type Driver string

// Supported database drivers.
const (
	DriverSQLite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

// String returns the driver name as registered with database/sql.
func (d Driver) String() string {
	return string(d)
}

// IsValid reports whether the driver is one of the supported drivers.
func (d Driver) IsValid() bool {
	switch d {
	case DriverSQLite, DriverPostgres:
		return true
	default:
		return false
	}
}

// AllDrivers returns all supported drivers.
func AllDrivers() []Driver {
	return []Driver{
		DriverSQLite,
		DriverPostgres,
	}
}

// SeedFormat identifies the format of a file loaded into a database connection.
type SeedFormat string

// Supported seed formats.
const (
	SeedCSV       SeedFormat = "csv"
	SeedXLSX      SeedFormat = "xlsx"
	SeedBenchmark SeedFormat = "gobench"
	SeedBenchJSON SeedFormat = "gobench-json"
)

// IsValid reports whether the format is one of the supported seed formats.
func (f SeedFormat) IsValid() bool {
	switch f {
	case SeedCSV, SeedXLSX, SeedBenchmark, SeedBenchJSON:
		return true
	default:
		return false
	}
}

// inferSeedFormat guesses the format of a seed file from its extension.
func inferSeedFormat(ext string) SeedFormat {
	switch ext {
	case ".csv":
		return SeedCSV
	case ".xlsx":
		return SeedXLSX
	case ".json":
		return SeedBenchJSON
	case ".txt", ".bench":
		return SeedBenchmark
	default:
		return ""
	}
}
