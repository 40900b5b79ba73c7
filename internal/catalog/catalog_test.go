package catalog

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	targets := Default()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{"exact", "Televisores", "Televisores"},
		{"exact ignores case", "neveras", "Neveras"},
		{"substring", "portátiles", "Computadores Portátiles"},
		{"substring picks first in table order", "te", "Televisores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Resolve(targets, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, target.Name)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve(Default(), "Juguetería espacial")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = Resolve(Default(), "   ")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestLimit(t *testing.T) {
	targets := Default()

	assert.Len(t, Limit(targets, 3), 3)
	assert.Len(t, Limit(targets, 0), len(targets))
	assert.Len(t, Limit(targets, 1000), len(targets))
}

func TestDefaultReturnsCopy(t *testing.T) {
	targets := Default()
	targets[0].Name = "changed"

	assert.NotEqual(t, "changed", Default()[0].Name)
	assert.Equal(t, len(targets), len(Names(targets)))
}

const homePage = `<html><body>
<nav>
  <a href="/falabella-co/category/cat1361001/Televisores">Televisores</a>
  <a href="/falabella-co/category/cat1660941/Celulares-y-Telefonos"> Celulares  y teléfonos </a>
  <a href="/falabella-co/category/cat1361001/Televisores">TV</a>
  <a href="/falabella-co/category/cat50670/Audifonos"><img src="a.png"></a>
  <a href="/falabella-co/search?Ntt=ofertas">Ofertas</a>
  <a href="/falabella-co/search?q=nothing">Buscar</a>
  <a href="/falabella-co/page/ayuda">Ayuda</a>
  <a href="https://otro-sitio.com/category/cat1/Otro">Otro</a>
  <a href="/falabella-co/category/cat99/Televisores-Nuevos">Televisores</a>
</nav>
</body></html>`

func TestDiscover(t *testing.T) {
	transport := httpmock.NewMockTransport()
	resp := httpmock.NewStringResponse(200, homePage)
	resp.Header.Set("Content-Type", "text/html")
	transport.RegisterResponder("GET", HomeURL, httpmock.ResponderFromResponse(resp))

	d := NewDiscoverer("test-agent")
	d.Transport = transport

	targets, err := d.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Target{
		{Name: "Televisores", URL: "https://www.falabella.com.co/falabella-co/category/cat99/Televisores-Nuevos"},
		{Name: "Celulares y teléfonos", URL: "https://www.falabella.com.co/falabella-co/category/cat1660941/Celulares-y-Telefonos"},
		{Name: "Audifonos", URL: "https://www.falabella.com.co/falabella-co/category/cat50670/Audifonos"},
		{Name: "Ofertas", URL: "https://www.falabella.com.co/falabella-co/search?Ntt=ofertas"},
	}, targets)
}

func TestDiscoverHomePageError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", HomeURL, httpmock.NewStringResponder(503, "unavailable"))

	d := NewDiscoverer("test-agent")
	d.Transport = transport

	_, err := d.Discover(context.Background())
	assert.Error(t, err)
}
