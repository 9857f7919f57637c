package database

import "embed"

// EmbeddedMigrations, migrations/ dizinindeki SQL dosyalarını binary'ye gömer.
// Deploy edilen binary yanında migration dosyası taşımaya gerek kalmaz.
// Open bunu fs.Sub(EmbeddedMigrations, "migrations") ile kullanır.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
