// Package textutil holds the pure text, date, tag, and duplicate-detection helpers the normalizer
// applies to scraped records. Nothing in this package performs I/O.
package textutil
