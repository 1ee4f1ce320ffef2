// Package assets bundles the static files shipped with the binaries.
package assets

import "embed"

//go:embed all:templates common-passwords.txt.gz
var FS embed.FS
