// Package countries maintains the shared ISO 3166-1 alpha-2 country
// directory backed by the Opendatasoft geonames-country dataset.
package countries

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/pkg/opendatasoft"
)

const datasetCountries = "geonames-country"

// Directory maps ISO2 country codes to display names. It is loaded at
// most once per process and shared by every consumer.
type Directory struct {
	client opendatasoft.Client

	mu    sync.Mutex
	names map[string]string
}

// NewDirectory creates an unloaded directory around the given client.
func NewDirectory(client opendatasoft.Client) *Directory {
	return &Directory{client: client}
}

// Ensure loads the directory if it has not been loaded yet. Only a
// successful load is cached; a failed load returns its error and the
// next call tries again, so a transient upstream outage does not poison
// a long-running process. Concurrent callers block until the in-flight
// load completes. Name, Resolve and Codes are safe for concurrent use
// once Ensure has returned nil.
func (d *Directory) Ensure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.names != nil {
		return nil
	}
	return d.load(ctx)
}

// Name returns the display name for code, or "" when unknown.
func (d *Directory) Name(code string) string {
	name, _ := d.Resolve(code)
	return name
}

// Resolve returns the display name for code and reports whether the code
// is known. Lookup is case-insensitive.
func (d *Directory) Resolve(code string) (string, bool) {
	name, ok := d.names[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Codes returns the known ISO2 codes in ascending order.
func (d *Directory) Codes() []string {
	codes := make([]string, 0, len(d.names))
	for code := range d.names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (d *Directory) load(ctx context.Context) error {
	table, err := d.client.Records(ctx, opendatasoft.Query{
		Dataset: datasetCountries,
		Fields:  []string{"iso", "country"},
		Q:       "population>0",
	})
	if err != nil {
		return eris.Wrap(err, "countries: load directory")
	}

	isoIdx := table.Column("iso")
	nameIdx := table.Column("country")
	if isoIdx < 0 || nameIdx < 0 {
		return eris.Wrap(model.ErrParse, "countries: directory payload missing iso/country columns")
	}

	names := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) <= isoIdx || len(row) <= nameIdx {
			continue
		}
		// "NA" is Namibia, not a missing value.
		code := strings.ToUpper(strings.TrimSpace(row[isoIdx]))
		name := strings.TrimSpace(row[nameIdx])
		if code == "" || name == "" {
			continue
		}
		names[code] = name
	}
	if len(names) == 0 {
		return eris.Wrap(model.ErrParse, "countries: directory payload has no rows")
	}

	d.names = names
	zap.L().Info("country directory loaded", zap.Int("countries", len(names)))
	return nil
}
