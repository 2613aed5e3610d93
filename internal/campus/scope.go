package campus

import "gorm.io/gorm"

// ForCampus returns a GORM scope that filters by campus_id. An empty id
// leaves the query unscoped.
func ForCampus(campusID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if campusID == "" {
			return db
		}
		return db.Where("campus_id = ?", campusID)
	}
}
