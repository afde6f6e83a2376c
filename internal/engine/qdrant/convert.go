package qdrant

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

func toDistance(m domain.Metric) qdrant.Distance {
	switch m {
	case domain.MetricIP:
		return qdrant.Distance_Dot
	case domain.MetricCosine:
		return qdrant.Distance_Cosine
	default:
		return qdrant.Distance_Euclid
	}
}

func fromDistance(d qdrant.Distance) domain.Metric {
	switch d {
	case qdrant.Distance_Dot:
		return domain.MetricIP
	case qdrant.Distance_Cosine:
		return domain.MetricCosine
	default:
		return domain.MetricL2
	}
}

func toFieldType(s string) (qdrant.FieldType, error) {
	switch s {
	case "", "keyword":
		return qdrant.FieldType_FieldTypeKeyword, nil
	case "integer":
		return qdrant.FieldType_FieldTypeInteger, nil
	case "float":
		return qdrant.FieldType_FieldTypeFloat, nil
	case "bool":
		return qdrant.FieldType_FieldTypeBool, nil
	case "text":
		return qdrant.FieldType_FieldTypeText, nil
	default:
		return 0, fmt.Errorf("%w: unknown field index type %q", domain.ErrInvalidSchema, s)
	}
}

// toPointID keeps numeric ids numeric so points written by other clients stay
// addressable and passes real UUIDs through. The engine accepts no other id
// kind, so any remaining string maps to a name-based UUID; the mapping is
// deterministic, repeated writes and deletes under the same string hit the
// same point.
func toPointID(id string) *qdrant.PointId {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func fromPointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func toPointStruct(p domain.Point) *qdrant.PointStruct {
	payload := make(map[string]*qdrant.Value, len(p.Payload))
	for k, v := range p.Payload {
		payload[k] = toValue(v)
	}
	return &qdrant.PointStruct{
		Id:      toPointID(p.ID),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: payload,
	}
}

func toValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func fromValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

func fromScoredPoint(sp *qdrant.ScoredPoint) domain.SearchResult {
	res := domain.SearchResult{
		ID:    fromPointID(sp.GetId()),
		Score: sp.GetScore(),
	}
	if payload := sp.GetPayload(); len(payload) > 0 {
		res.Payload = make(map[string]any, len(payload))
		for k, v := range payload {
			res.Payload[k] = fromValue(v)
		}
	}
	if vec := sp.GetVectors().GetVector(); vec != nil {
		if dense := vec.GetDense(); dense != nil {
			res.Vector = dense.GetData()
		}
	}
	return res
}

// toFilter builds an exact-match Must filter from a flat condition map.
func toFilter(conditions map[string]any) *qdrant.Filter {
	if len(conditions) == 0 {
		return nil
	}
	filter := &qdrant.Filter{Must: make([]*qdrant.Condition, 0, len(conditions))}
	for field, v := range conditions {
		filter.Must = append(filter.Must, toCondition(field, v))
	}
	return filter
}

func toCondition(field string, v any) *qdrant.Condition {
	switch val := v.(type) {
	case string:
		return qdrant.NewMatch(field, val)
	case bool:
		return qdrant.NewMatchBool(field, val)
	case int:
		return qdrant.NewMatchInt(field, int64(val))
	case int64:
		return qdrant.NewMatchInt(field, val)
	case float64:
		// JSON numbers decode as float64; integral values match int payloads.
		if val == float64(int64(val)) {
			return qdrant.NewMatchInt(field, int64(val))
		}
		return qdrant.NewMatch(field, strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return qdrant.NewMatch(field, fmt.Sprintf("%v", val))
	}
}
