package catalog

import _ "embed"

//go:embed default-catalog.yaml
var defaultCatalog []byte

// Default returns the built-in catalog. It panics only if the embedded
// file is broken, which a test guards against.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}
