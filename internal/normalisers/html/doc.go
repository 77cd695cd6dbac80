// Package html turns HTML pages into section drafts.
//
// Sections follow the h1-h3 outline of the page. Pages with fewer than two
// heading sections fall back to paragraph chunks of the page text.
package html
