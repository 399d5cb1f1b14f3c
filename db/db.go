package db

import "embed"

// Migrations holds one directory of ordered .sql files per dialect.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var Migrations embed.FS
