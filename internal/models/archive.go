package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArchivedPlan is a snapshot of a generated meal plan stored in MongoDB.
type ArchivedPlan struct {
	ID         primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	UserID     string             `json:"user_id"     bson:"user_id"`
	Goal       string             `json:"goal"        bson:"goal"`
	Plan       MealPlan           `json:"plan"        bson:"plan"`
	ArchivedAt time.Time          `json:"archived_at" bson:"archived_at"`
}

// ExportObject describes a meal plan export held in object storage.
type ExportObject struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.Time)
}

func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	if typ == bsontype.Null {
		t.Time = time.Time{}
		return nil
	}
	var parsed time.Time
	if err := (bson.RawValue{Type: typ, Value: data}).Unmarshal(&parsed); err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
