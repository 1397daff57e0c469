package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBodySize caps request bodies accepted by ParseJSON.
const MaxBodySize = 1 << 20 // 1 MB

// ParseJSON decodes a JSON request body into dst, rejecting unknown fields
// and bodies larger than MaxBodySize.
func ParseJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
