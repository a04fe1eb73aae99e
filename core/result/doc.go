// Package result decodes solver result files and accumulates the decoded
// values of one chunk into dense, offset anchored columns.
//
// A result file holds one variant. Each line is a ';' separated record whose
// first field is the record code. Outage identifiers used by curative records
// are declared earlier in the same file by C4 roster lines; the roster never
// outlives the file.
package result
