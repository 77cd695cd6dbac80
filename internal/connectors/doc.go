// Package connectors holds page sources that feed the indexing service.
//
// A source yields domain.Page values; it never sectionizes or embeds.
package connectors
