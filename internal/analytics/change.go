// Package analytics derives dashboard summary figures from evaluation rows.
package analytics

// PercentageChange returns the change from old to new in percent. A change from
// zero is reported as 100 (or 0 when new is also zero) rather than infinity.
func PercentageChange(old, new float64) float64 {
	if old == 0 {
		if new == 0 {
			return 0
		}
		return 100
	}
	return (new - old) / old * 100
}
