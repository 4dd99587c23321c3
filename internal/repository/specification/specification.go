package specification

import "gorm.io/gorm"

// Specification narrows a gorm query. Repositories compose them in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
