package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/showroom-assistant/internal/fetcher"
	"github.com/sells-group/showroom-assistant/internal/model"
)

const jsonFeed = `{"vehicles": [
  {"stockNumber": "A100", "year": 2024, "make": "Chevrolet", "model": "Silverado 1500", "trim": "LT", "exteriorColor": "Summit White", "bodyStyle": "Crew Cab Pickup", "condition": "New", "sellingPrice": "$58,995"},
  {"stock": "A101", "year": 2023, "make": "Chevrolet", "model": "Tahoe", "trim": "Z71", "color": "Black", "body": "SUV", "internet_price": 64500},
  {"Stock #": "A102", "Year": "2022", "Make": "Chevrolet", "Model": "Malibu", "MSRP": 24100, "Type": "U"},
  {"note": "not a vehicle"}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestFromRecord_PriceKeys(t *testing.T) {
	tests := []struct {
		key  string
		val  any
		want float64
	}{
		{"price", 100.0, 100},
		{"Price", "200", 200},
		{"sellingPrice", "$58,995", 58995},
		{"selling_price", 300.0, 300},
		{"internetPrice", 400.0, 400},
		{"internet_price", 500.0, 500},
		{"salePrice", json.Number("600"), 600},
		{"listPrice", 700, 700},
		{"msrp", 800.0, 800},
		{"MSRP", "900.50", 900.5},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, ok := FromRecord(map[string]any{"make": "Chevrolet", "model": "Bolt", tt.key: tt.val})
			require.True(t, ok)
			assert.Equal(t, tt.want, v.Price)
		})
	}
}

func TestFromRecord_PricePrecedence(t *testing.T) {
	v, ok := FromRecord(map[string]any{"stock": "X1", "msrp": 50000.0, "internetPrice": 47000.0, "price": ""})
	require.True(t, ok)
	assert.Equal(t, 47000.0, v.Price)
}

func TestFromRecord_Rejects(t *testing.T) {
	_, ok := FromRecord(map[string]any{"make": "Chevrolet"})
	assert.False(t, ok)

	v, ok := FromRecord(map[string]any{"vin": "1GCUY", "make": "GMC"})
	require.True(t, ok)
	assert.Equal(t, "1GCUY", v.StockNumber)
}

func TestDecode_JSONWrapped(t *testing.T) {
	vehicles, err := Decode(strings.NewReader(jsonFeed), FormatJSON)
	require.NoError(t, err)
	require.Len(t, vehicles, 3)

	assert.Equal(t, model.Vehicle{
		StockNumber: "A100",
		Year:        2024,
		Make:        "Chevrolet",
		Model:       "Silverado 1500",
		Trim:        "LT",
		Color:       "Summit White",
		BodyStyle:   "Crew Cab Pickup",
		Condition:   "new",
		Price:       58995,
	}, vehicles[0])
	assert.Equal(t, 64500.0, vehicles[1].Price)
	assert.Equal(t, "A102", vehicles[2].StockNumber)
	assert.Equal(t, 2022, vehicles[2].Year)
	assert.Equal(t, "used", vehicles[2].Condition)
}

func TestDecode_JSONArrayAndEmpty(t *testing.T) {
	vehicles, err := Decode(strings.NewReader(`[{"stock":"Z1","make":"GMC","model":"Sierra"}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Sierra", vehicles[0].Model)

	vehicles, err = Decode(strings.NewReader("  "), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, vehicles)

	_, err = Decode(strings.NewReader("{broken"), FormatJSON)
	assert.Error(t, err)
}

func TestDecode_YAML(t *testing.T) {
	feed := `
inventory:
  - stock: Y1
    year: 2025
    make: Chevrolet
    model: Equinox EV
    price: 34995
`
	vehicles, err := Decode(strings.NewReader(feed), FormatYAML)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, 2025, vehicles[0].Year)
	assert.Equal(t, 34995.0, vehicles[0].Price)
}

func TestDecode_CSV(t *testing.T) {
	feed := "Stock Number,Year,Make,Model,Selling Price\nC1,2021,Ford,Escape,\"$21,500\"\n"
	vehicles, err := Decode(strings.NewReader(feed), FormatCSV)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "C1", vehicles[0].StockNumber)
	assert.Equal(t, 21500.0, vehicles[0].Price)
}

func TestDecode_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Inventory")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"stock", "year", "make", "model", "listPrice"},
		{"X1", "2024", "Chevrolet", "Colorado", "38000"},
	} {
		row := sheet.AddRow()
		for _, cell := range rowData {
			row.AddCell().SetString(cell)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	vehicles, err := Decode(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Colorado", vehicles[0].Model)
	assert.Equal(t, 38000.0, vehicles[0].Price)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("https://dealer.example.com/feed"))
	assert.Equal(t, FormatCSV, DetectFormat("ftp://ftp.example.com/out/inventory.CSV"))
	assert.Equal(t, FormatXLSX, DetectFormat("/data/inventory.xlsx"))
	assert.Equal(t, FormatYAML, DetectFormat("inventory.yml?v=2"))
}

func TestCatalog_LoadMergesAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"stock":"A100","make":"Chevrolet","model":"Duplicate"},{"stock":"H1","make":"Chevrolet","model":"Traverse"}]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := writeFile(t, dir, "feed.json", jsonFeed)

	c := NewCatalog(fetcher.NewRouter(fetcher.Options{}), local, srv.URL+"/feed.json")
	vehicles, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 4)
	assert.Equal(t, "Silverado 1500", vehicles[0].Model)
	assert.Equal(t, "Traverse", vehicles[3].Model)
	assert.False(t, c.LoadedAt().IsZero())

	v, ok, err := c.Find(context.Background(), "H1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Traverse", v.Model)
}

func TestCatalog_LoadFailureKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "feed.json", jsonFeed)
	c := NewCatalog(fetcher.NewRouter(fetcher.Options{}), p)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, os.Remove(p))
	assert.Error(t, c.Load(context.Background()))

	vehicles, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)
}

func TestCatalog_ListReturnsCopy(t *testing.T) {
	c := NewStaticCatalog([]model.Vehicle{{StockNumber: "S1", Make: "Chevrolet", Model: "Trax"}})
	vehicles, err := c.List(context.Background())
	require.NoError(t, err)
	vehicles[0].Model = "changed"

	again, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Trax", again[0].Model)
}

func TestCatalog_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "feed.json", `[{"stock":"W1","make":"Chevrolet","model":"Blazer"}]`)

	c := NewCatalog(fetcher.NewRouter(fetcher.Options{}), p)
	c.debounce = 10 * time.Millisecond
	require.NoError(t, c.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx))

	writeFile(t, dir, "feed.json", `[{"stock":"W1","make":"Chevrolet","model":"Blazer"},{"stock":"W2","make":"Chevrolet","model":"Trailblazer"}]`)

	require.Eventually(t, func() bool {
		vehicles, err := c.List(context.Background())
		return err == nil && len(vehicles) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestCatalog_WatchIgnoresRemoteFeeds(t *testing.T) {
	c := NewCatalog(fetcher.NewRouter(fetcher.Options{}), "https://dealer.example.com/feed.json")
	assert.NoError(t, c.Watch(context.Background()))
}

var lot = []model.Vehicle{
	{StockNumber: "1", Year: 2024, Make: "Chevrolet", Model: "Silverado 1500", Trim: "LT", Color: "Summit White", BodyStyle: "Crew Cab Pickup", Price: 58995},
	{StockNumber: "2", Year: 2024, Make: "Chevrolet", Model: "Tahoe", Trim: "Z71", Color: "Black", BodyStyle: "SUV", Price: 64500},
	{StockNumber: "3", Year: 2023, Make: "Chevrolet", Model: "Malibu", Trim: "RS", Color: "Red", BodyStyle: "Sedan", Price: 24100},
	{StockNumber: "4", Year: 2024, Make: "Chevrolet", Model: "Colorado", Trim: "Trail Boss", Color: "Black", Price: 41000},
	{StockNumber: "5", Year: 2025, Make: "Chevrolet", Model: "Equinox EV", Trim: "2LT", Color: "Blue", Price: 34995},
}

func stocks(vs []model.Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.StockNumber
	}
	return out
}

func TestSearch(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"do you have a Silverado?", []string{"1"}},
		{"I need a truck that can tow a boat", []string{"1", "4"}},
		{"show me an SUV", []string{"2", "5"}},
		{"something electric", []string{"5"}},
		{"a black tahoe", []string{"2", "4"}},
		{"hello there", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Search(lot, tt.query, 0)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, stocks(got))
		})
	}
}

func TestSearch_Limit(t *testing.T) {
	var many []model.Vehicle
	for i := 0; i < 10; i++ {
		many = append(many, model.Vehicle{StockNumber: string(rune('a' + i)), Make: "Chevrolet", Model: "Silverado"})
	}
	assert.Len(t, Search(many, "silverado", 0), DefaultLimit)
	got := Search(many, "silverado", 3)
	assert.Equal(t, []string{"a", "b", "c"}, stocks(got))
}

func TestContext(t *testing.T) {
	out := Context(lot, 2)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Silverado 1500", decoded[0]["model"])
	assert.Equal(t, 58995.0, decoded[0]["price"])

	assert.Equal(t, "[]", Context(nil, 0))
}

func TestSourceFunc(t *testing.T) {
	src := SourceFunc(func(context.Context) ([]model.Vehicle, error) {
		return []model.Vehicle{{StockNumber: "X1"}}, nil
	})
	got, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "X1", got[0].StockNumber)
}
