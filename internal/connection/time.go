package connection

import "time"

// nowUTC is the single seam response timestamps flow through, kept
// separate so tests can substitute a fixed clock if ever needed.
func nowUTC() time.Time {
	return time.Now()
}
