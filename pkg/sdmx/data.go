package sdmx

// KeyValue is one id/value pair of a series key or attribute block.
type KeyValue struct {
	ID    string
	Value string
}

// TimePeriod is the observation-level dimension of data queries.
const TimePeriod = "TIME_PERIOD"

// Observation is one generic:Obs element. Period is only read from a
// TIME_PERIOD observation dimension.
type Observation struct {
	Dimension  string
	Period     string
	Value      string
	HasValue   bool
	Attributes []KeyValue
}

// Series is one generic:Series element with its observations.
type Series struct {
	Key          []KeyValue
	Attributes   []KeyValue
	Observations []Observation
}

// Value returns the value of id, looking at the series key first and then at
// the series attributes.
func (s Series) Value(id string) (string, bool) {
	for _, kv := range s.Key {
		if kv.ID == id {
			return kv.Value, true
		}
	}
	for _, kv := range s.Attributes {
		if kv.ID == id {
			return kv.Value, true
		}
	}
	return "", false
}

// ParseGenericData reads a generic-data message into series, across every
// data set of the message.
func ParseGenericData(data []byte) ([]Series, error) {
	var msg xmlGenericData
	if err := decode("data", data, &msg); err != nil {
		return nil, err
	}
	var out []Series
	for _, ds := range msg.DataSets {
		for _, xs := range ds.Series {
			s := Series{
				Key:        toKeyValues(xs.Key.Values),
				Attributes: toKeyValues(xs.Attributes.Values),
			}
			for _, xo := range xs.Obs {
				var o Observation
				if xo.Dimension != nil {
					o.Dimension = xo.Dimension.ID
					if xo.Dimension.ID == TimePeriod {
						o.Period = xo.Dimension.Value
					}
				}
				if xo.Value != nil {
					o.Value, o.HasValue = xo.Value.Value, true
				}
				o.Attributes = toKeyValues(xo.Attributes.Values)
				s.Observations = append(s.Observations, o)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func toKeyValues(vs []xmlValue) []KeyValue {
	if len(vs) == 0 {
		return nil
	}
	out := make([]KeyValue, len(vs))
	for i, v := range vs {
		out[i] = KeyValue{ID: v.ID, Value: v.Value}
	}
	return out
}
