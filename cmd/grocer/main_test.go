package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/allanbutler/kg-rag-grocery/server"
)

const productsCSV = `product_id,name,brand,category,sub_category,price,ingredients,attributes,nutrition_text
1,Crunchy Oat Granola,Acme,Pantry,Cereal,3.99,"oats, honey",nut_free;vegetarian,
2,Almond Granola Clusters,Acme,Pantry,Cereal,4.49,"oats, almonds",vegetarian,
3,Maple Granola Deluxe,Summit,Pantry,Cereal,6.99,"oats, maple syrup",nut_free;vegan,
4,Kids Granola Bites,Summit,Snacks,Bars,2.49,"oats, rice",nut_free;kids,
5,Oat Milk,Dairyless,Dairy,Milk Alternatives,3.29,"oats, water",vegan;nut_free;gluten_free,
`

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"grocer"}, args...))
	return out.String(), err
}

func findFlag[T cli.Flag](cmd *cli.Command, name string) T {
	var zero T
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	return zero
}

func TestCommands(t *testing.T) {
	app := newApp()
	names := make([]string, len(app.Commands))
	for i, cmd := range app.Commands {
		names[i] = cmd.Name
	}
	assert.Equal(t, []string{"prepare-data", "search", "ask", "serve"}, names)

	force := findFlag[*cli.BoolFlag](app.Commands[0], "force")
	require.NotNil(t, force)
	assert.False(t, force.Value)

	addr := findFlag[*cli.StringFlag](app.Commands[3], "addr")
	require.NotNil(t, addr)
	assert.Equal(t, ":8000", addr.Value)
}

func TestEndToEndOffline(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "products.csv")
	require.NoError(t, os.WriteFile(data, []byte(productsCSV), 0o644))
	db := filepath.Join(dir, "db")

	out, err := runApp(t, "--offline", "--db", db, "prepare-data", "--data", data, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Prepared 5 products (0 rows skipped)")

	out, err = runApp(t, "--offline", "--db", db, "search", "--json", "nut-free", "granola", "under", "$5")
	require.NoError(t, err)
	var res server.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "nut-free granola under $5", res.Query)
	assert.NotEmpty(t, res.QueryID)
	require.NotEmpty(t, res.Candidates)
	for _, c := range res.Candidates {
		assert.LessOrEqual(t, c.Price, 5.0)
		assert.Contains(t, c.Attributes, "nut_free")
	}
	assert.NotEmpty(t, res.Suggestions)
	assert.True(t, res.Fallback)
	assert.LessOrEqual(t, len(res.Contexts), 10)

	out, err = runApp(t, "--offline", "--db", db, "search", "oat milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Found ")
	assert.Contains(t, out, "Suggestions:")

	out, err = runApp(t, "--offline", "--db", db, "ask", "oat milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Suggested options based on retrieved context:")
	assert.Contains(t, out, "(generated without the language model)")

	out, err = runApp(t, "--offline", "--db", db, "ask", "--json", "oat milk")
	require.NoError(t, err)
	var ask server.AskResponse
	require.NoError(t, json.Unmarshal([]byte(out), &ask))
	assert.True(t, ask.Fallback)
	assert.LessOrEqual(t, len(ask.Contexts), 10)
}

func TestSearchRequiresQuery(t *testing.T) {
	_, err := runApp(t, "--offline", "--db", filepath.Join(t.TempDir(), "db"), "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query text is required")
}

func TestInvalidBackendRejected(t *testing.T) {
	_, err := runApp(t, "--offline", "--db", filepath.Join(t.TempDir(), "db"), "--index-backend", "faiss", "search", "milk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid index backend")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Warn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, err := runApp(t, "--log-level", "loud", "search", "milk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				assert.Equal(t, "debug", c.String("log-level"))
				return nil
			},
		}
		require.NoError(t, app.Run([]string{"test", "-l", "debug"}))
	})
}
