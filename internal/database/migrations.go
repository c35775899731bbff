package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		subdomain VARCHAR(63) UNIQUE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'member',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS pages (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		slug VARCHAR(255) NOT NULL,
		content JSONB NOT NULL DEFAULT '{}',
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(tenant_id, slug)
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		url VARCHAR(500) NOT NULL,
		events TEXT[] NOT NULL,
		secret VARCHAR(128) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		failure_count INTEGER NOT NULL DEFAULT 0,
		max_failures INTEGER NOT NULL DEFAULT 5,
		retry_backoff_secs INTEGER NOT NULL DEFAULT 60,
		last_triggered_at TIMESTAMP WITH TIME ZONE,
		last_status_code INTEGER,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		subscription_id UUID NOT NULL REFERENCES webhook_subscriptions(id) ON DELETE CASCADE,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		event VARCHAR(100) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		status_code INTEGER,
		success BOOLEAN NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		key_prefix VARCHAR(12) NOT NULL,
		key_hash VARCHAR(255) NOT NULL,
		permissions TEXT[] NOT NULL,
		rate_limit INTEGER NOT NULL DEFAULT 1000,
		expires_at TIMESTAMP WITH TIME ZONE,
		last_used_at TIMESTAMP WITH TIME ZONE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS api_key_usage (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		api_key_id UUID NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
		endpoint VARCHAR(500) NOT NULL,
		method VARCHAR(10) NOT NULL,
		status_code INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		client_ip VARCHAR(64),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_tenant_id ON pages(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_tenant_id ON webhook_subscriptions(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_subscription_id ON webhook_deliveries(subscription_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_tenant_id ON api_keys(tenant_id)`,

	// Prefix lookup is the hot path of key validation; the hash is never queried.
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key_prefix ON api_keys(key_prefix)`,
	`CREATE INDEX IF NOT EXISTS idx_api_key_usage_api_key_id ON api_key_usage(api_key_id, created_at DESC)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
