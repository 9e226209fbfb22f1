package domain

import "time"

// RegionMaxLength bounds the stored region/city preference.
const RegionMaxLength = 50

// Profile is the farmer's dashboard preferences.
type Profile struct {
	UserID    string
	Region    string
	UpdatedAt time.Time
}
