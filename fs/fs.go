// Package appfs embeds the static files shipped with the binaries: SQL migrations and assets.
package appfs

import "embed"

//go:embed all:migrations all:assets
var FS embed.FS

const (
	MigrationsDir        = "migrations"
	EmailTemplatesDir    = "assets/templates/email"
	CommonPasswordsAsset = "assets/common-passwords.txt.gz"
)
