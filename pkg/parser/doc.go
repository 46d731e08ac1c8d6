// Package parser turns one markdown file into a types.DocumentNode: title,
// body, corpus-relative path, doc_type and category tags, outgoing link
// targets and the handful of front-matter style fields the corpus uses
// (document version, effective date, preparer, approver).
//
// Parsing is a pure function of the file bytes and its path relative to the
// corpus root, so re-parsing an unchanged corpus yields identical nodes.
// Link targets are only normalised here; turning them into doc IDs needs the
// full node set and happens in package resolver.
package parser
