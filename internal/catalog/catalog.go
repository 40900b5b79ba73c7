package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// HomeURL is the storefront the category table and discovery start from.
const HomeURL = "https://www.falabella.com.co/falabella-co/"

var ErrUnknownCategory = errors.New("unknown category")

// Target is one category entry point.
type Target struct {
	Name string
	URL  string
}

var defaultTargets = []Target{
	{Name: "Televisores", URL: "https://www.falabella.com.co/falabella-co/category/cat1361001/Televisores"},
	{Name: "Celulares y Teléfonos", URL: "https://www.falabella.com.co/falabella-co/category/cat1660941/Celulares-y-Telefonos"},
	{Name: "Computadores Portátiles", URL: "https://www.falabella.com.co/falabella-co/category/cat1361003/Computadores-Portatiles"},
	{Name: "Audífonos", URL: "https://www.falabella.com.co/falabella-co/category/cat50670/Audifonos"},
	{Name: "Consolas", URL: "https://www.falabella.com.co/falabella-co/category/cat50590/Consolas"},
	{Name: "Neveras", URL: "https://www.falabella.com.co/falabella-co/category/cat1360991/Neveras"},
	{Name: "Lavadoras", URL: "https://www.falabella.com.co/falabella-co/category/cat1360993/Lavadoras"},
	{Name: "Colchones", URL: "https://www.falabella.com.co/falabella-co/category/cat2075/Colchones"},
	{Name: "Smartwatch", URL: "https://www.falabella.com.co/falabella-co/category/cat4290063/Smartwatch"},
	{Name: "Tenis Hombre", URL: "https://www.falabella.com.co/falabella-co/category/cat1470005/Tenis-hombre"},
}

// Default returns a copy of the static category table.
func Default() []Target {
	out := make([]Target, len(defaultTargets))
	copy(out, defaultTargets)
	return out
}

// Names lists the target names in table order.
func Names(targets []Target) []string {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	return names
}

// Resolve finds name in targets: an exact (case-insensitive) match first, then
// the first entry whose name contains it.
func Resolve(targets []Target, name string) (Target, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Target{}, fmt.Errorf("%w: empty name", ErrUnknownCategory)
	}

	for _, t := range targets {
		if strings.ToLower(t.Name) == needle {
			return t, nil
		}
	}

	for _, t := range targets {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			return t, nil
		}
	}

	return Target{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Limit truncates targets to max entries; max <= 0 keeps them all.
func Limit(targets []Target, max int) []Target {
	if max > 0 && len(targets) > max {
		return targets[:max]
	}
	return targets
}
