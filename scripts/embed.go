// Package scripts embeds the Risor modules that rule filters can import.
//
// Modules live flat at the package root because the Risor importer resolves
// "import name" to name.risor.
package scripts

import "embed"

//go:embed *.risor
var FS embed.FS
