package cmd

import (
	"fmt"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/drift"
	"github.com/pcsensei/pcsensei/pkg/recommend"
	"github.com/pcsensei/pcsensei/pkg/source"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/spf13/viper"
)

func openDB() (*storage.DB, error) {
	path := viper.GetString("db.path")
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return db, nil
}

// newSource builds the catalog source from config. The database, when
// given, caches remote catalogs.
func newSource(db *storage.DB) (*source.Source, error) {
	cfg := source.Config{
		URL:  viper.GetString("catalog.url"),
		Path: viper.GetString("catalog.path"),
		TTL:  viper.GetDuration("catalog.ttl"),
		Log:  utils.Log,
	}
	if db != nil {
		cfg.Cache = db
	}
	return source.New(cfg)
}

func newService(db *storage.DB) (*recommend.Service, error) {
	src, err := newSource(db)
	if err != nil {
		return nil, err
	}
	return recommend.NewService(src, recommend.WithLogger(utils.Log)), nil
}

// newSimulator builds a drift simulator over the local catalog file.
// Runs are recorded to db when it is non-nil.
func newSimulator(db *storage.DB) (*drift.Simulator, error) {
	cfg := drift.Config{
		CatalogPath: viper.GetString("catalog.path"),
		LogDir:      viper.GetString("logs.dir"),
		Log:         utils.Log,
	}
	if db != nil {
		cfg.Recorder = db
	}
	return drift.New(cfg)
}

func catalogIsRemote() bool {
	return viper.GetString("catalog.url") != ""
}
