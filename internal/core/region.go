package core

import "strings"

// Region names produced by rating-code inference.
const (
	RegionNTSCU = "NTSC-U"
	RegionNTSCJ = "NTSC-J"
	RegionPAL   = "PAL"
)

// regionMarkers maps rating-board markers to the region they imply, checked
// in order. Unrecognized codes fall back to PAL.
var regionMarkers = []struct {
	marker string
	region string
}{
	{"NTSC", RegionNTSCU},
	{"CERO", RegionNTSCJ},
	{"ACB", RegionPAL},
	{"BBFC", RegionPAL},
	{"PEGI", RegionPAL},
}

// InferRegion classifies a rating code such as "PEGI 16" or "NTSC ESRB T".
func InferRegion(ratingCode string) string {
	code := strings.ToUpper(ratingCode)
	for _, m := range regionMarkers {
		if strings.Contains(code, m.marker) {
			return m.region
		}
	}
	return RegionPAL
}

// RegionIndex builds a case-insensitive name -> id index for import options.
func RegionIndex(regions []Region) map[string]int64 {
	idx := make(map[string]int64, len(regions))
	for _, r := range regions {
		idx[strings.ToUpper(strings.TrimSpace(r.Name))] = r.ID
	}
	return idx
}
