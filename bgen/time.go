package bgen

import (
	"fmt"
	"time"
)

// Time is a BGI timestamp. Index writers store either unix seconds or a
// "2006-01-02 15:04:05" string.
type Time time.Time

// Scan implements sql.Scanner.
func (t *Time) Scan(v interface{}) error {
	switch which := v.(type) {
	case nil:
		*t = Time(time.Time{})
		return nil
	case time.Time:
		*t = Time(which)
		return nil
	case int64:
		*t = Time(time.Unix(which, 0))
		return nil
	case []byte:
		return t.parse(string(which))
	case string:
		return t.parse(which)
	}

	return fmt.Errorf("No appropriate type could be found to decode %v", v)
}

func (t *Time) parse(s string) error {
	vt, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return err
	}
	*t = Time(vt)
	return nil
}

func (t Time) String() string {
	return time.Time(t).Format(time.RFC3339)
}
