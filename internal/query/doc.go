// Package query classifies user questions into intent types that steer
// reranking: contact, sla, process, tool, link or general.
//
// Classification is keyword driven. Link questions additionally resolve a
// link target, the phrase naming the form or board the user is looking
// for, which the scorer matches against chunk URLs.
package query
