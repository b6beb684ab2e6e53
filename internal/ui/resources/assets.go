// Package resources serves the stylesheet and other static files of the
// browser chat.
package resources

import "strings"

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// DatastarScript is the client runtime loaded by every page.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// StaticPath returns the URL of a static asset under base.
func StaticPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/static/" + path
}
