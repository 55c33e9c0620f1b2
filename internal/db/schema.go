package db

const (
	plansTable  = "plans"
	stakesTable = "stakes"
)

// seq preserves insertion order independently of the clock.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		minimum_amount TEXT NOT NULL,
		reward_percentage TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stakes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL REFERENCES plans(id),
		amount_staked TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		is_unstaked INTEGER NOT NULL DEFAULT 0,
		is_reward_claimed INTEGER NOT NULL DEFAULT 0,
		total_claimed_rewards TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stakes_user ON stakes (user_id, created_at, seq)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(36) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		duration_minutes BIGINT NOT NULL,
		minimum_amount VARCHAR(80) NOT NULL,
		reward_percentage VARCHAR(80) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stakes (
		seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(36) NOT NULL UNIQUE,
		user_id VARCHAR(90) NOT NULL,
		plan_id VARCHAR(36) NOT NULL,
		amount_staked VARCHAR(80) NOT NULL,
		created_at BIGINT NOT NULL,
		is_unstaked BOOL NOT NULL DEFAULT FALSE,
		is_reward_claimed BOOL NOT NULL DEFAULT FALSE,
		total_claimed_rewards VARCHAR(80) NOT NULL DEFAULT '0',
		INDEX idx_stakes_user (user_id, created_at, seq),
		FOREIGN KEY (plan_id) REFERENCES plans (id)
	)`,
}
