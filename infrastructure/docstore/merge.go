package docstore

import "encoding/json"

// mergeJSON overlays the top-level fields of incoming onto existing. When
// either side is not a JSON object the incoming value wins outright, which
// also covers first writes and corrupt existing documents.
func mergeJSON(existing, incoming []byte) []byte {
	var base map[string]json.RawMessage
	if err := json.Unmarshal(existing, &base); err != nil || base == nil {
		return incoming
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(incoming, &overlay); err != nil || overlay == nil {
		return incoming
	}
	for k, v := range overlay {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return incoming
	}
	return merged
}
