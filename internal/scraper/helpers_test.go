package scraper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maltedev/falabella-scraper/internal/browser/browsertest"
	"github.com/maltedev/falabella-scraper/internal/storage"
)

const productBase = "https://www.falabella.com.co/falabella-co/product/"

type podFixture struct {
	id     int
	title  string
	alt    string
	price  string
	rating string
}

func (p podFixture) link() string {
	return fmt.Sprintf("%s%d/producto-%d", productBase, p.id, p.id)
}

func (p podFixture) markup() string {
	html := fmt.Sprintf(`<a data-pod="catalyst-pod" href="%s">`, p.link())
	html += fmt.Sprintf(`<img id="testId-pod-image-%d" src="https://media.falabella.com/%d.jpg" alt="%s">`, p.id, p.id, p.alt)
	if p.title != "" {
		html += fmt.Sprintf(`<b id="testId-pod-displaySubTitle-%d">%s</b>`, p.id, p.title)
	}
	if p.price != "" {
		html += fmt.Sprintf(`<ol><li class="prices-0"><span>%s</span></li></ol>`, p.price)
	}
	if p.rating != "" {
		html += fmt.Sprintf(`<div data-rating="%s"></div>`, p.rating)
	}
	return html + `</a>`
}

func (p podFixture) item() *browsertest.Item {
	return &browsertest.Item{Href: p.link(), Markup: p.markup()}
}

// product is a regular rated pod with a price.
func product(id int) podFixture {
	return podFixture{
		id:     id,
		title:  fmt.Sprintf("Samsung Smart TV %d\" UHD", 40+id),
		price:  fmt.Sprintf("$ %d.990.000", id),
		rating: "4.5",
	}
}

func items(pods ...podFixture) []*browsertest.Item {
	out := make([]*browsertest.Item, 0, len(pods))
	for _, s := range pods {
		out = append(out, s.item())
	}
	return out
}

func productRange(from, to int) []*browsertest.Item {
	var pods []podFixture
	for id := from; id <= to; id++ {
		pods = append(pods, product(id))
	}
	return items(pods...)
}

func newSession(t *testing.T, category string) (*Session, *storage.Store) {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	log, err := store.Open(category)
	require.NoError(t, err)

	return NewSession(NewRun(), category, log), store
}

const detailHTML = `<html><body>
<div id="productInfoContainer">
  <h2>Especificaciones</h2>
  <p>Pantalla de 55 pulgadas</p>
</div>
<div aria-label="4,7 de 5 estrellas"></div>
</body></html>`
