/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqldb

import (
	"fmt"
	"time"
)

// sqliteTimestampLayout is fixed-width, so stored values sort lexicographically in time order.
const sqliteTimestampLayout = "2006-01-02 15:04:05.000000000"

var timestampLayouts = []string{
	sqliteTimestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// timestampValue scans a temporal column. Drivers return time.Time when they know the column type
// and text otherwise (SQLite, MySQL without parseTime).
type timestampValue struct {
	time.Time
}

// Scan implements sql.Scanner interface.
func (v *timestampValue) Scan(src interface{}) error {
	switch s := src.(type) {
	case time.Time:
		v.Time = s
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	case nil:
		return fmt.Errorf("journal timestamp is NULL")
	}
	return fmt.Errorf("unsupported journal timestamp type %T", src)
}

func (v *timestampValue) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			v.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported journal timestamp format %q", s)
}

// hostClock hands out strictly increasing UTC timestamps, so journal primary keys never collide
// even when the clock resolution is coarse.
type hostClock struct {
	now  func() time.Time
	last time.Time
}

func (c *hostClock) next() time.Time {
	ts := c.now().UTC()
	if !ts.After(c.last) {
		ts = c.last.Add(time.Nanosecond)
	}
	c.last = ts
	return ts
}
