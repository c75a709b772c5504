// Package assets embeds the game page served at "/".
package assets

import "embed"

//go:embed index.html
var FS embed.FS

// Index returns the game page.
func Index() ([]byte, error) {
	return FS.ReadFile("index.html")
}
