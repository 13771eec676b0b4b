package firestore

import (
	"cloud.google.com/go/firestore"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// latLng matches *latlng.LatLng without importing genproto directly.
type latLng interface {
	GetLatitude() float64
	GetLongitude() float64
}

func snapshotToDocument(snap *firestore.DocumentSnapshot) types.Document {
	return types.Document{
		ID:   snap.Ref.ID,
		Data: fromNativeMap(snap.Data()),
	}
}

func fromNativeMap(m map[string]interface{}) map[string]fieldvalue.Value {
	out := make(map[string]fieldvalue.Value, len(m))
	for k, v := range m {
		out[k] = fromNative(v)
	}
	return out
}

// fromNative handles the Firestore-specific types before deferring to the
// generic conversion.
func fromNative(v interface{}) fieldvalue.Value {
	switch x := v.(type) {
	case *firestore.DocumentRef:
		if x == nil {
			return fieldvalue.Null()
		}
		return fieldvalue.String(x.Path)
	case latLng:
		return fieldvalue.Mapping(map[string]fieldvalue.Value{
			"latitude":  fieldvalue.Float(x.GetLatitude()),
			"longitude": fieldvalue.Float(x.GetLongitude()),
		})
	case []interface{}:
		items := make([]fieldvalue.Value, len(x))
		for i, item := range x {
			items[i] = fromNative(item)
		}
		return fieldvalue.Sequence(items...)
	case map[string]interface{}:
		return fieldvalue.Mapping(fromNativeMap(x))
	default:
		return fieldvalue.FromInterface(v)
	}
}

func toNative(data map[string]fieldvalue.Value) map[string]interface{} {
	return fieldvalue.ToMap(data)
}

func toNativeValue(v fieldvalue.Value) interface{} {
	return v.Interface()
}
