package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/showroom-assistant/internal/fetcher"
	"github.com/sells-group/showroom-assistant/internal/model"
)

// Format is a feed encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Wrapper keys that hold the vehicle array in object-shaped feeds.
var listKeys = []string{"vehicles", "inventory", "items", "data", "results"}

// DetectFormat infers the encoding from the URI extension, defaulting to JSON.
func DetectFormat(uri string) Format {
	p := uri
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// LoadFeed fetches and decodes one feed.
func LoadFeed(ctx context.Context, f fetcher.Fetcher, uri string) ([]model.Vehicle, error) {
	rc, err := f.Fetch(ctx, uri)
	if err != nil {
		return nil, eris.Wrapf(err, "inventory: fetch %s", uri)
	}
	defer rc.Close() //nolint:errcheck

	vehicles, err := Decode(rc, DetectFormat(uri))
	if err != nil {
		return nil, eris.Wrapf(err, "inventory: decode %s", uri)
	}
	return vehicles, nil
}

// Decode reads a whole feed in the given format. Records that are not
// recognizable vehicles are skipped.
func Decode(r io.Reader, format Format) ([]model.Vehicle, error) {
	var raws []map[string]any

	switch format {
	case FormatCSV:
		recs, err := fetcher.ReadCSV(r)
		if err != nil {
			return nil, err
		}
		raws = recordsToMaps(recs)
	case FormatXLSX:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "inventory: read xlsx")
		}
		recs, err := fetcher.ReadXLSX(data)
		if err != nil {
			return nil, err
		}
		raws = recordsToMaps(recs)
	case FormatYAML:
		var doc any
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !eris.Is(err, io.EOF) {
			return nil, eris.Wrap(err, "inventory: parse yaml")
		}
		raws = extractList(doc)
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "inventory: read json")
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "inventory: parse json")
		}
		raws = extractList(doc)
	}

	out := make([]model.Vehicle, 0, len(raws))
	for _, raw := range raws {
		if v, ok := FromRecord(raw); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func recordsToMaps(recs []fetcher.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		m := make(map[string]any, len(rec))
		for k, v := range rec {
			m[k] = v
		}
		out[i] = m
	}
	return out
}

func extractList(doc any) []map[string]any {
	switch t := doc.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		for _, k := range listKeys {
			for key, v := range t {
				if normalizeKey(key) == k {
					if list, ok := v.([]any); ok {
						return extractList(list)
					}
				}
			}
		}
	}
	return nil
}
