package render

import (
	"html/template"
	"io"

	"github.com/rotisserie/eris"
)

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Transit ratio &mdash; {{.Country}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/font-awesome/4.7.0/css/font-awesome.min.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { margin: 0; height: 100%; }
.origin-marker {
  background: #000;
  color: #fff;
  border-radius: 50%;
  text-align: center;
  line-height: 26px;
  font-size: 13px;
}
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lng}}], {{.Zoom}});
L.tileLayer('{{.Style.TileURL}}', {attribution: '{{.Style.Attribution}}'}).addTo(map);
{{if .Origin}}
L.marker([{{.Origin.Geopoint.Lat}}, {{.Origin.Geopoint.Lng}}], {
  icon: L.divIcon({
    className: 'origin-marker',
    html: '<i class="fa fa-flag-checkered"></i>',
    iconSize: [26, 26]
  })
}).bindPopup('{{.Origin.Address}}').addTo(map);
{{end}}
{{range .Markers}}
L.circleMarker([{{.Geopoint.Lat}}, {{.Geopoint.Lng}}], {
  radius: {{.Radius}},
  color: '{{.StrokeColor}}',
  fillColor: '{{.FillColor}}',
  fillOpacity: {{$.Style.FillOpacity}},
  weight: 1
}).bindPopup('<b>{{.City}}</b><br>ratio: {{printf "%.2f" .Ratio}}<br>driving: {{.DriveTime}}<br>transit: {{.TransitTime}}').addTo(map);
{{end}}
{{if .Markers}}
map.fitBounds([
  [{{.Bounds.SouthWest.Lat}}, {{.Bounds.SouthWest.Lng}}],
  [{{.Bounds.NorthEast.Lat}}, {{.Bounds.NorthEast.Lng}}]
], {padding: [30, 30], maxZoom: {{.Zoom}}});
{{end}}
</script>
</body>
</html>
`))

// HTML writes the view as a self-contained Leaflet page.
func HTML(w io.Writer, view *MapView) error {
	return eris.Wrap(mapTemplate.Execute(w, view), "render: execute map template")
}
