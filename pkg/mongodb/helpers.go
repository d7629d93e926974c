package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Pagination bounds a listing query by offset and limit
type Pagination struct {
	Limit  int64
	Offset int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{Limit: 20}
}

// FindOptions converts the pagination into find options sorted by field descending
func (p Pagination) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(SortDescending(sortField)).
		SetSkip(p.Offset).
		SetLimit(p.Limit)
}

// SortDescending creates a descending sort on field
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}
