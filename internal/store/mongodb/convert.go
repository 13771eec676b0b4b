package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// idFilter matches a document ID stored either as a string or, for documents
// created outside fireview, as the ObjectID with the same hex form.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// toDocument splits _id out of a decoded BSON document.
func toDocument(raw bson.M) types.Document {
	id := idString(raw["_id"])
	data := make(map[string]fieldvalue.Value, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		data[k] = fromBSON(v)
	}
	return types.Document{ID: id, Data: data}
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprintf("%v", id)
	}
}

// fromBSON converts BSON-decoded values, which may arrive as int32, int64,
// primitive wrappers or nested bson.M / bson.D / bson.A.
func fromBSON(v interface{}) fieldvalue.Value {
	switch x := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return fieldvalue.Null()
	case primitive.DateTime:
		return fieldvalue.Timestamp(x.Time())
	case primitive.Timestamp:
		return fieldvalue.Int(int64(x.T))
	case primitive.ObjectID:
		return fieldvalue.String(x.Hex())
	case primitive.Decimal128:
		return fieldvalue.String(x.String())
	case primitive.Binary:
		return fieldvalue.FromInterface(x.Data)
	case primitive.Regex:
		return fieldvalue.String(x.String())
	case primitive.Symbol:
		return fieldvalue.String(string(x))
	case primitive.JavaScript:
		return fieldvalue.String(string(x))
	case bson.A:
		items := make([]fieldvalue.Value, len(x))
		for i, item := range x {
			items[i] = fromBSON(item)
		}
		return fieldvalue.Sequence(items...)
	case bson.M:
		fields := make(map[string]fieldvalue.Value, len(x))
		for k, item := range x {
			fields[k] = fromBSON(item)
		}
		return fieldvalue.Mapping(fields)
	case bson.D:
		fields := make(map[string]fieldvalue.Value, len(x))
		for _, e := range x {
			fields[e.Key] = fromBSON(e.Value)
		}
		return fieldvalue.Mapping(fields)
	default:
		return fieldvalue.FromInterface(v)
	}
}

// toBSON converts a field map into a BSON document. time.Time values encode
// as BSON dates.
func toBSON(data map[string]fieldvalue.Value) bson.M {
	out := make(bson.M, len(data))
	for k, v := range data {
		out[k] = v.Interface()
	}
	return out
}
