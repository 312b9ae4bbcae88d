// Package routepath defines the scripts service URL paths.
package routepath

import "net/url"

const (
	Root             = "/"
	Resource         = "/scripts.json"
	Health           = "/up"
	StaticPrefix     = "/static/"
	SituationsPrefix = "/situations/"
	SelectionClear   = "/selection/clear"
	PrinciplesToggle = "/principles/toggle"
	ScriptsCopy      = "/scripts/copy"
	Leave            = "/leave"
)

// ViewParam carries the page's view session id in forms and queries.
const ViewParam = "view"

// View returns the page path bound to one view session.
func View(viewID string) string {
	if viewID == "" {
		return Root
	}
	return Root + "?" + url.Values{ViewParam: {viewID}}.Encode()
}

// Situation returns the select path for one situation id.
func Situation(id string) string {
	return SituationsPrefix + url.PathEscape(id)
}

// Static returns the path of an embedded static asset.
func Static(name string) string {
	return StaticPrefix + name
}
