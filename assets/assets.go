// Package assets embeds the default sound data shipped with the
// engine. Games normally load their own catalog and recipe files;
// these cover the stock events and the QA harness.
package assets

import _ "embed"

//go:embed sfx_recipes.json
var Recipes []byte

//go:embed sfx_catalog.json
var Catalog []byte
