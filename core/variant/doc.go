// Package variant partitions variant ranges into fixed-size chunks.
// A Plan is immutable once built and safe for concurrent reads.
package variant
