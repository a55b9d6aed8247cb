package db

import "github.com/jmehdipour/churn-predictor/internal/config"

// Pool converts a config section into pool options.
func Pool(c config.DatabaseConfig) PoolOpts {
	return PoolOpts{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

// Redis converts a config section into client options.
func Redis(c config.RedisConfig) RedisOpts {
	return RedisOpts{Addr: c.Addr, Password: c.Password, DB: c.DB, DialTimeout: c.DialTimeout}
}
