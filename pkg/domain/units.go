package domain

import "math"

// MaxUnits bounds any unit count, submitted or stocked. It matches the
// INTEGER columns that persist units.
const MaxUnits = math.MaxInt32
