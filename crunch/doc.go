/*Package crunch groups per-alignment records from a PacBio-style
  alignment container into compact, movie-indexed numeric tables.

  The package has two stages, consumed in sequence:

  Crunch performs one linear pass over an AlignmentSource. For every
  record matching the target movie it stores a per-subread statistics
  row keyed by (movie, hole, qStart, qEnd), widens the per-read
  reference span keyed by (movie, hole), and tracks the longest
  subread seen for each read. The full container is always scanned so
  the complete set of movie names is known to the caller even when
  only one movie is selected.

  Build partitions the crunched mappings by movie into two flat
  float64 arrays (read-span lengths and subread statistics rows) and
  records an offset/length index per movie so that either array can be
  sliced by movie without copying.

  All construction is single threaded. A built Table is immutable and
  safe for concurrent readers.
*/
package crunch
