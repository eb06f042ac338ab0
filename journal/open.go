package journal

import (
	"context"
	"fmt"
)

// Options selects and configures a Store backend.
type Options struct {
	Type          string // sqlite, csv, postgres, redis, memory
	DBPath        string
	CSVPath       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open builds the Store named by opts.Type.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case "sqlite", "":
		if opts.DBPath == "" {
			return nil, fmt.Errorf("sqlite journal requires a db path")
		}
		return NewSQLite(opts.DBPath)
	case "csv":
		if opts.CSVPath == "" {
			return nil, fmt.Errorf("csv journal requires a file path")
		}
		return NewCSV(opts.CSVPath)
	case "postgres":
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres journal requires a dsn")
		}
		return NewPostgres(opts.PostgresDSN)
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis journal requires an address")
		}
		return NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown journal type %q", opts.Type)
}
