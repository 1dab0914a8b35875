package mongo

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Reserved keys stored next to the document fields.
const (
	idKey  = "_id"
	revKey = "_rev"
)

// toBSON converts a JSON value to its BSON equivalent by way of Extended
// JSON, wrapping it so scalars and arrays decode too.
func toBSON(raw json.RawMessage) (any, error) {
	wrapped := append(append([]byte(`{"v":`), raw...), '}')
	var d bson.D
	if err := bson.UnmarshalExtJSON(wrapped, false, &d); err != nil {
		return nil, fmt.Errorf("converting field to bson: %w", err)
	}
	if len(d) != 1 {
		return nil, fmt.Errorf("converting field to bson: unexpected shape")
	}
	return d[0].Value, nil
}

func patchToBSON(patch map[string]json.RawMessage) (bson.D, error) {
	out := make(bson.D, 0, len(patch))
	for name, raw := range patch {
		v, err := toBSON(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, bson.E{Key: name, Value: v})
	}
	return out, nil
}

// fromBSON splits a stored document into its revision and JSON fields.
func fromBSON(raw bson.Raw) (int64, map[string]json.RawMessage, error) {
	elems, err := raw.Elements()
	if err != nil {
		return 0, nil, fmt.Errorf("reading bson document: %w", err)
	}
	var rev int64
	doc := make(map[string]json.RawMessage, len(elems))
	for _, el := range elems {
		switch el.Key() {
		case idKey:
			continue
		case revKey:
			v := el.Value()
			if n, ok := v.AsInt64OK(); ok {
				rev = n
			}
			continue
		}
		data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: el.Value()}}, false, false)
		if err != nil {
			return 0, nil, fmt.Errorf("converting field %q to json: %w", el.Key(), err)
		}
		var wrapper struct {
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return 0, nil, fmt.Errorf("converting field %q to json: %w", el.Key(), err)
		}
		doc[el.Key()] = wrapper.V
	}
	return rev, doc, nil
}
