package validation

import (
	"time"

	"github.com/twpayne/go-geom"
)

// withinWindow reports whether the item interval [itemStart, itemEnd]
// intersects the query window [start, end]. Both ends are inclusive; a zero
// start or end leaves that side of the window open.
func withinWindow(start, end, itemStart, itemEnd time.Time) bool {
	if !start.IsZero() && start.After(itemEnd) {
		return false
	}
	if !end.IsZero() && itemStart.After(end) {
		return false
	}
	return true
}

// regionBounds returns the bounding box of roi. A nil or empty region does
// not constrain anything and yields ok == false.
func regionBounds(roi geom.T) (*geom.Bounds, bool) {
	if roi == nil {
		return nil, false
	}
	b := roi.Bounds()
	if b == nil || b.IsEmpty() {
		return nil, false
	}
	return b, true
}

// intersectsRegion reports whether item overlaps the bounding box of roi.
func intersectsRegion(item *geom.Bounds, roi geom.T) bool {
	region, ok := regionBounds(roi)
	if !ok {
		return true
	}
	return item.Overlaps(geom.XY, region)
}
