// Package catalog loads seed catalogs and imports them into the store.
//
// A catalog is a YAML file:
//
//	owner: seller@example.com
//	products:
//	  - title: Ceramic Mug
//	    price: 12.99
//	    description: Holds a generous amount of coffee.
//	    image: images/mug.png
//
// The document is checked against the embedded CUE schema (schema.cue)
// before it is decoded, so violations are reported with their YAML line
// and column. Image paths are relative to the catalog file.
package catalog
