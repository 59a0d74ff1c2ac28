package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/transitlab/transit-ratio/internal/model"
)

// XLSX writes the session's enriched city table as a workbook. Unlike
// the map encodings it keeps rows without a ratio, leaving their route
// cells blank.
func XLSX(w io.Writer, sess *model.Session) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Cities")
	if err != nil {
		return eris.Wrap(err, "render: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{
		"city", "population", "lat", "lng",
		"distance_driving", "duration_driving",
		"distance_transit", "duration_transit", "ratio",
	} {
		header.AddCell().SetString(name)
	}

	for _, row := range sess.Cities {
		r := sheet.AddRow()
		r.AddCell().SetString(row.City)
		r.AddCell().SetInt(row.Population)
		r.AddCell().SetFloat(row.Geopoint.Lat)
		r.AddCell().SetFloat(row.Geopoint.Lng)
		setIntCell(r.AddCell(), row.DistanceDriving)
		setIntCell(r.AddCell(), row.DurationDriving)
		setIntCell(r.AddCell(), row.DistanceTransit)
		setIntCell(r.AddCell(), row.DurationTransit)
		if row.Ratio != nil {
			r.AddCell().SetFloat(*row.Ratio)
		} else {
			r.AddCell().SetString("")
		}
	}

	return eris.Wrap(f.Write(w), "render: write workbook")
}

func setIntCell(cell *xlsx.Cell, v *int) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetInt(*v)
}
