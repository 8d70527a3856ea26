// Package domain models the lightning density viewer: regions picked on the
// map, the generation request sent to the server, and the events the server
// pushes back while it builds an artifact.
//
// # Regions
//
// Regions come from a GeoJSON boundary dataset. Each feature carries an
// ISO 3166-1 alpha-2 code ("ISO3166-1-Alpha-2") and a display name ("name").
// Only the code, the name, and the geometry's bounding box are kept.
//
//	Bounding boxes are stored as South/West/North/East in WGS-84 degrees.
//	When no region is selected the default box [[48.8, 13.8], [55.2, 24.2]]
//	(roughly Poland and its neighbours) is used for overlay placement.
//
// # Products
//
// The server knows two products, one per resolution mode:
//
//	low resolution   daily_lowres_density
//	high resolution  daily_hires_density
//
// # Stream protocol
//
// GET /stream-generate?product=..&year=YYYY&month=MM&day=DD[&country=CC]
// answers with text/event-stream. Every frame is a single "data:" line holding
// a JSON object:
//
//	{"status": "...", "progress": 15, "done": false}
//	{"status": "found cached map.", "progress": 100, "done": true, "type": "image", "url": "/static/..."}
//	{"status": "...", "done": true, "type": "table", "data": [{"col": 1}, ...]}
//	{"status": "...", "progress": 100, "done": true, "error": true}
//
// A frame with a truthy "error" is terminal even when "done" is false. Frames
// are validated once in [DecodeEvent] and handed on as a [StreamEvent] so the
// session code switches on concrete types instead of optional fields.
package domain
