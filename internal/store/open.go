package store

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/hnpulse/internal/config"
)

// Open returns the Cache selected by cfg.Store.Driver, initialized and ready.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (Cache, error) {
	var (
		c   Cache
		err error
	)

	switch cfg.Store.Driver {
	case config.DriverSQLite, "":
		path, perr := cfg.DatabasePath()
		if perr != nil {
			return nil, &Error{Op: "open", Err: perr}
		}
		c, err = NewSQLite(path, opts...)
	case config.DriverPostgres:
		c, err = NewPostgres(ctx, cfg.Store.DSN, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := c.Init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
