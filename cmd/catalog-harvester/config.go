package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/catalog-harvester/internal/secrets"
	"github.com/pdiddy/catalog-harvester/pkg/types"
)

const defaultUserAgent = "catalog-harvester"

// storeConfig resolves the store settings from viper, falling back to the
// database-url secret. A Postgres URL selects the postgres driver unless a
// driver was configured explicitly.
func storeConfig() types.StoreConfig {
	dsn := loadedSecrets.Or(secrets.DatabaseURL, viper.GetString("store.dsn"))
	driver := types.StoreDriver(viper.GetString("store.driver"))
	if !viper.IsSet("store.driver") || driver == "" {
		driver = inferDriver(dsn)
	}
	return types.StoreConfig{
		Driver:   driver,
		DSN:      dsn,
		MaxConns: viper.GetInt("store.max-conns"),
	}
}

func inferDriver(dsn string) types.StoreDriver {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return types.DriverPostgres
	}
	return types.DriverSQLite
}

// harvestConfig resolves the job settings bound under the harvest key.
func harvestConfig() types.HarvestConfig {
	return types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:           viper.GetDuration("harvest.timeout"),
			UserAgent:         userAgent(loadedSecrets.Or(secrets.ContactEmail, viper.GetString("harvest.contact"))),
			RequestsPerSecond: viper.GetFloat64("harvest.rate"),
			MaxRetries:        viper.GetInt("harvest.retries"),
		},
		Platform:        viper.GetString("harvest.platform"),
		Total:           viper.GetInt("harvest.total"),
		PageSize:        viper.GetInt("harvest.page-size"),
		Workers:         viper.GetInt("harvest.workers"),
		Offset:          viper.GetInt("harvest.offset"),
		InterChunkDelay: viper.GetDuration("harvest.delay"),
	}
}

func userAgent(contact string) string {
	ua := defaultUserAgent + "/" + version
	if contact != "" {
		ua += " (+mailto:" + contact + ")"
	}
	return ua
}

// checkFormat validates a report output format.
func checkFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use table, json, or yaml)", format)
	}
}
