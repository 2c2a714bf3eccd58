package domain

import "time"

// Record is a caller-supplied JSON object
type Record map[string]interface{}

// WriteRequest is a batch of records addressed to one collection
type WriteRequest struct {
	Collection string
	Token      string
	IDField    string
	Records    []Record
}

// PreparedDocument is the storage envelope built for one eligible record.
// ID becomes the document's unique key in the store.
type PreparedDocument struct {
	ID        string    `json:"_id" bson:"_id" msgpack:"_id"`
	Data      Record    `json:"data" bson:"data" msgpack:"data"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" msgpack:"createdAt"`
}

// InsertedRecord pairs an eligible record with its extracted identifier
type InsertedRecord struct {
	ID     string
	Record Record
}

// IDOf returns the string value stored under field, if any
func (r Record) IDOf(field string) (string, bool) {
	value, exists := r[field]
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}
