package models

import "time"

func testTime() time.Time {
	return time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
}
