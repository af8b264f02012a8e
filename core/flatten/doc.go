// Package flatten converts a USJ document tree into linear forms.
//
// Two projections are provided:
//
//   - ToTable: one row per text run or empty marker, each row carrying the
//     book, chapter and verse in effect plus the marker type and name.
//   - ToAlignedCorpus: verse-aligned parallel text, one entry per
//     reference, with consecutive fragments of the same verse merged.
//
// Both walk the tree in document order with a cursor that tracks the
// current book, chapter and verse. A chapter node clears the verse so a
// verse number never carries into the next chapter.
//
// Every call owns its own traversal state. The input tree is only read,
// so concurrent conversions of the same tree are safe.
//
// Marker names given to the table filters are plain lowercase codes
// ("id", "p", "v") plus the pseudo-name "text". Expanding filter groups
// is the caller's job.
package flatten
