package config

const (
	defaultConfigPath     = "~/.config/bidsify/config.toml"
	projectConfigName     = "bidsify.toml"
	defaultCatalogDB      = "~/.local/share/bidsify/catalog.db"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultSessionLabel   = "001"
	defaultWorkers        = 4
	tablesEnvVar          = "BIDSIFY_TABLES"
	catalogEnabledDefault = false
)

var defaultOutputTypes = []string{"nii.gz", "dicom"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogDB: defaultCatalogDB,
		},
		Classify: Classify{
			OutputTypes:    append([]string(nil), defaultOutputTypes...),
			DefaultSession: defaultSessionLabel,
			Workers:        defaultWorkers,
		},
		Catalog: Catalog{
			Enabled: catalogEnabledDefault,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
